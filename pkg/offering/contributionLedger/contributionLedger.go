// Package contributionLedger tracks per-user, per-pool contribution records.
package contributionLedger

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

type UserPosition struct {
	AmountContributed     *big.Int
	ClaimedOfferingAmount *big.Int
	// HasHarvested is set by the first harvest, which is also when any refund is settled.
	HasHarvested bool
}

func newUserPosition() *UserPosition {
	return &UserPosition{
		AmountContributed:     fixedPoint.Zero(),
		ClaimedOfferingAmount: fixedPoint.Zero(),
	}
}

func (p *UserPosition) Clone() *UserPosition {
	return &UserPosition{
		AmountContributed:     fixedPoint.Copy(p.AmountContributed),
		ClaimedOfferingAmount: fixedPoint.Copy(p.ClaimedOfferingAmount),
		HasHarvested:          p.HasHarvested,
	}
}

type PositionKey struct {
	User   types.Identity
	PoolId types.PoolId
}

// PositionRecord is a keyed position, used for snapshots.
type PositionRecord struct {
	PositionKey
	Position *UserPosition
}

type ContributionLedger struct {
	positions map[PositionKey]*UserPosition
}

func NewContributionLedger() *ContributionLedger {
	return &ContributionLedger{
		positions: make(map[PositionKey]*UserPosition),
	}
}

// Position returns a copy of the user's position in pool; unknown positions are zero.
func (l *ContributionLedger) Position(user types.Identity, poolId types.PoolId) *UserPosition {
	p, ok := l.positions[PositionKey{User: user, PoolId: poolId}]
	if !ok {
		return newUserPosition()
	}
	return p.Clone()
}

func (l *ContributionLedger) live(user types.Identity, poolId types.PoolId) *UserPosition {
	key := PositionKey{User: user, PoolId: poolId}
	p, ok := l.positions[key]
	if !ok {
		p = newUserPosition()
		l.positions[key] = p
	}
	return p
}

// CheckLimit fails with ErrLimitExceeded when adding amount would pass perUserLimit.
// A zero or nil limit means unlimited.
func (l *ContributionLedger) CheckLimit(user types.Identity, poolId types.PoolId, amount *big.Int, perUserLimit *big.Int) error {
	if !fixedPoint.IsPositive(perUserLimit) {
		return nil
	}
	current := l.Position(user, poolId).AmountContributed
	next := fixedPoint.Add(current, amount)
	if next.Cmp(perUserLimit) > 0 {
		return types.Wrap(types.ErrLimitExceeded, "%s + %s > %s", current.String(), amount.String(), perUserLimit.String())
	}
	return nil
}

// RecordDeposit adds amount to the user's contribution.
func (l *ContributionLedger) RecordDeposit(user types.Identity, poolId types.PoolId, amount *big.Int) error {
	if !fixedPoint.IsPositive(amount) {
		return types.ErrInvalidAmount
	}
	p := l.live(user, poolId)
	p.AmountContributed = fixedPoint.Add(p.AmountContributed, amount)
	return nil
}

// RevertDeposit undoes RecordDeposit after a failed transfer.
func (l *ContributionLedger) RevertDeposit(user types.Identity, poolId types.PoolId, amount *big.Int) error {
	key := PositionKey{User: user, PoolId: poolId}
	p, ok := l.positions[key]
	if !ok {
		return fixedPoint.ErrUnderflow
	}
	next, err := fixedPoint.Sub(p.AmountContributed, amount)
	if err != nil {
		return err
	}
	p.AmountContributed = next
	if next.Sign() == 0 && !p.HasHarvested && fixedPoint.IsZero(p.ClaimedOfferingAmount) {
		delete(l.positions, key)
	}
	return nil
}

// SetHarvested sets the harvested flag and returns its previous value.
func (l *ContributionLedger) SetHarvested(user types.Identity, poolId types.PoolId, harvested bool) bool {
	p := l.live(user, poolId)
	prev := p.HasHarvested
	p.HasHarvested = harvested
	return prev
}

// AddClaimed adds amount to the user's claimed offering tokens.
func (l *ContributionLedger) AddClaimed(user types.Identity, poolId types.PoolId, amount *big.Int) {
	p := l.live(user, poolId)
	p.ClaimedOfferingAmount = fixedPoint.Add(p.ClaimedOfferingAmount, amount)
}

// RevertClaimed undoes AddClaimed after a failed transfer.
func (l *ContributionLedger) RevertClaimed(user types.Identity, poolId types.PoolId, amount *big.Int) error {
	p := l.live(user, poolId)
	next, err := fixedPoint.Sub(p.ClaimedOfferingAmount, amount)
	if err != nil {
		return err
	}
	p.ClaimedOfferingAmount = next
	return nil
}

// TotalContributed sums every recorded contribution into poolId.
func (l *ContributionLedger) TotalContributed(poolId types.PoolId) *big.Int {
	total := fixedPoint.Zero()
	for k, p := range l.positions {
		if k.PoolId == poolId {
			total.Add(total, p.AmountContributed)
		}
	}
	return total
}

// Participants returns the users with a position in poolId, in address order.
func (l *ContributionLedger) Participants(poolId types.PoolId) []types.Identity {
	users := make([]types.Identity, 0)
	for k := range l.positions {
		if k.PoolId == poolId {
			users = append(users, k.User)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i].Bytes(), users[j].Bytes()) < 0
	})
	return users
}

// Snapshot returns every position ordered by (user, pool).
func (l *ContributionLedger) Snapshot() []*PositionRecord {
	records := make([]*PositionRecord, 0, len(l.positions))
	for k, p := range l.positions {
		records = append(records, &PositionRecord{PositionKey: k, Position: p.Clone()})
	}
	SortRecords(records)
	return records
}

// SortRecords orders records by user, then pool.
func SortRecords(records []*PositionRecord) {
	sort.Slice(records, func(i, j int) bool {
		c := bytes.Compare(records[i].User.Bytes(), records[j].User.Bytes())
		if c != 0 {
			return c < 0
		}
		return records[i].PoolId < records[j].PoolId
	})
}

// Restore replaces the ledger contents with records.
func (l *ContributionLedger) Restore(records []*PositionRecord) {
	l.positions = make(map[PositionKey]*UserPosition, len(records))
	for _, r := range records {
		if r == nil || r.Position == nil {
			continue
		}
		l.positions[r.PositionKey] = r.Position.Clone()
	}
}
