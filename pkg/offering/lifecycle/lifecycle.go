// Package lifecycle derives the sale phase from the offering window and the current time.
// Phases are never stored; they are a pure function of (window, now).
package lifecycle

import (
	"math"

	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

type Phase string

const (
	Phase_Setup       Phase = "setup"
	Phase_Open        Phase = "open"
	Phase_Preparation Phase = "preparation"
	Phase_Harvest     Phase = "harvest"
	Phase_Settled     Phase = "settled"
)

func (p Phase) String() string {
	return string(p)
}

// DefaultFinalWithdrawDelay is the cooldown after close before unsold tokens can be swept.
const DefaultFinalWithdrawDelay = uint64(48 * 60 * 60)

type Window struct {
	OpenTime           types.Timestamp
	CloseTime          types.Timestamp
	PreparationSeconds uint64
	FinalWithdrawDelay uint64
}

func NewWindow(openTime, closeTime types.Timestamp, preparationSeconds, finalWithdrawDelay uint64) (*Window, error) {
	if openTime >= closeTime {
		return nil, types.Wrap(types.ErrInvalidSaleWindow, "%d >= %d", openTime, closeTime)
	}
	if err := checkDelay(closeTime, preparationSeconds); err != nil {
		return nil, err
	}
	if err := checkDelay(closeTime, finalWithdrawDelay); err != nil {
		return nil, err
	}
	return &Window{
		OpenTime:           openTime,
		CloseTime:          closeTime,
		PreparationSeconds: preparationSeconds,
		FinalWithdrawDelay: finalWithdrawDelay,
	}, nil
}

// checkDelay rejects delays that would push a phase boundary past the largest timestamp.
func checkDelay(closeTime types.Timestamp, seconds uint64) error {
	if seconds > math.MaxUint64-closeTime {
		return types.Wrap(types.ErrInvalidSaleWindow, "delay %d after close %d overflows", seconds, closeTime)
	}
	return nil
}

// SetPreparationSeconds changes the pause between close and harvest.
func (w *Window) SetPreparationSeconds(seconds uint64) error {
	if err := checkDelay(w.CloseTime, seconds); err != nil {
		return err
	}
	w.PreparationSeconds = seconds
	return nil
}

func (w *Window) HarvestStart() types.Timestamp {
	return w.CloseTime + w.PreparationSeconds
}

func (w *Window) FinalWithdrawStart() types.Timestamp {
	return w.CloseTime + w.FinalWithdrawDelay
}

// PhaseAt returns the phase at now. Settled takes precedence over Preparation when the
// final withdraw delay is shorter than the preparation period.
func (w *Window) PhaseAt(now types.Timestamp) Phase {
	switch {
	case now < w.OpenTime:
		return Phase_Setup
	case now < w.CloseTime:
		return Phase_Open
	case now >= w.FinalWithdrawStart():
		return Phase_Settled
	case now < w.HarvestStart():
		return Phase_Preparation
	default:
		return Phase_Harvest
	}
}

func (w *Window) IsPreparationPeriod(now types.Timestamp) bool {
	return now >= w.CloseTime && now < w.HarvestStart()
}

// RequireSetup fails with ErrSaleStarted once the offering has opened.
func (w *Window) RequireSetup(now types.Timestamp) error {
	if now >= w.OpenTime {
		return types.Wrap(types.ErrSaleStarted, "now %d >= open %d", now, w.OpenTime)
	}
	return nil
}

// RequireOpen fails with ErrTooEarly or ErrTooLate outside [OpenTime, CloseTime).
func (w *Window) RequireOpen(now types.Timestamp) error {
	if now < w.OpenTime {
		return types.Wrap(types.ErrTooEarly, "now %d < open %d", now, w.OpenTime)
	}
	if now >= w.CloseTime {
		return types.Wrap(types.ErrTooLate, "now %d >= close %d", now, w.CloseTime)
	}
	return nil
}

// RequireHarvestable fails before close and during the preparation period.
func (w *Window) RequireHarvestable(now types.Timestamp) error {
	if now < w.CloseTime {
		return types.Wrap(types.ErrTooEarlyToHarvest, "now %d < close %d", now, w.CloseTime)
	}
	if w.IsPreparationPeriod(now) {
		return types.Wrap(types.ErrInPreparationPeriod, "harvest opens at %d", w.HarvestStart())
	}
	return nil
}

// RequireClosed fails with ErrCannotWithdrawNow before close.
func (w *Window) RequireClosed(now types.Timestamp) error {
	if now < w.CloseTime {
		return types.Wrap(types.ErrCannotWithdrawNow, "now %d < close %d", now, w.CloseTime)
	}
	return nil
}

// RequireSettled fails with ErrCannotWithdrawNow until the final withdraw delay has elapsed.
func (w *Window) RequireSettled(now types.Timestamp) error {
	if now < w.FinalWithdrawStart() {
		return types.Wrap(types.ErrCannotWithdrawNow, "final withdraw opens at %d", w.FinalWithdrawStart())
	}
	return nil
}
