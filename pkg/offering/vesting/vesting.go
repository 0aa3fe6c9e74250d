// Package vesting implements the stepped release schedule that gates how much of an
// earned allocation can be claimed.
//
// The released percent only changes on admin action. NextReleaseTimestamp announces
// when the next step is expected and is never used to interpolate the percent.
package vesting

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

const MaxPercent = 100

type ReleaseSchedule struct {
	ReleasedPercent      uint64
	NextReleaseTimestamp types.Timestamp
}

// NewReleaseSchedule validates the initial step. The first release must be announced
// after the offering closes.
func NewReleaseSchedule(percent uint64, nextReleaseTimestamp types.Timestamp, closeTime types.Timestamp) (*ReleaseSchedule, error) {
	if percent < 1 || percent > MaxPercent {
		return nil, types.Wrap(types.ErrPercentOutOfRange, "%d", percent)
	}
	if nextReleaseTimestamp <= closeTime {
		return nil, types.Wrap(types.ErrInvalidNextRelease, "%d <= %d", nextReleaseTimestamp, closeTime)
	}
	return &ReleaseSchedule{
		ReleasedPercent:      percent,
		NextReleaseTimestamp: nextReleaseTimestamp,
	}, nil
}

// ValidateRelease checks that (percent, nextTimestamp) is a legal next step.
func (s *ReleaseSchedule) ValidateRelease(percent uint64, nextTimestamp types.Timestamp) error {
	if percent > MaxPercent || percent < 1 {
		return types.Wrap(types.ErrPercentOutOfRange, "%d", percent)
	}
	if percent <= s.ReleasedPercent {
		return types.Wrap(types.ErrNotMonotonicPercent, "%d <= %d", percent, s.ReleasedPercent)
	}
	if nextTimestamp <= s.NextReleaseTimestamp {
		return types.Wrap(types.ErrNotMonotonicTimestamp, "%d <= %d", nextTimestamp, s.NextReleaseTimestamp)
	}
	return nil
}

// Release advances the schedule, leaving it unchanged when the step is rejected.
func (s *ReleaseSchedule) Release(percent uint64, nextTimestamp types.Timestamp) error {
	if err := s.ValidateRelease(percent, nextTimestamp); err != nil {
		return err
	}
	s.ReleasedPercent = percent
	s.NextReleaseTimestamp = nextTimestamp
	return nil
}

// Vested is floor(owed * releasedPercent / 100).
func (s *ReleaseSchedule) Vested(owed *big.Int) *big.Int {
	return fixedPoint.Percent(owed, s.ReleasedPercent)
}

// Claimable is the vested amount not yet claimed, floored at zero.
func (s *ReleaseSchedule) Claimable(owed *big.Int, claimed *big.Int) *big.Int {
	return fixedPoint.SubFloor(s.Vested(owed), claimed)
}

func (s *ReleaseSchedule) Clone() *ReleaseSchedule {
	c := *s
	return &c
}
