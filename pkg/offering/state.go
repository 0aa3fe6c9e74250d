package offering

import (
	"math"
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/vesting"
	"go.uber.org/zap"
)

// OfferingState is a deep copy of everything an engine owns. The eligibility oracle is a
// live collaborator and is not part of the state; HasVault records whether one was set.
type OfferingState struct {
	ContributionToken types.Identity
	OfferingToken     types.Identity
	Custody           types.Identity
	Admin             types.Identity

	OpenTime           types.Timestamp
	CloseTime          types.Timestamp
	PreparationSeconds uint64
	FinalWithdrawDelay uint64

	ReleasedPercent      uint64
	NextReleaseTimestamp types.Timestamp

	RaisedWithdrawn bool
	HasVault        bool
	MinVaultBalance *big.Int

	Pools     []*poolRegistry.Pool
	Positions []*contributionLedger.PositionRecord
}

// State returns a snapshot of the engine. Pools are indexed by id and positions are
// ordered by (user, pool), so equal ledgers produce equal snapshots.
func (e *Engine) State() (*OfferingState, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	return &OfferingState{
		ContributionToken:    e.contributionToken,
		OfferingToken:        e.offeringToken,
		Custody:              e.custody,
		Admin:                e.admin,
		OpenTime:             e.window.OpenTime,
		CloseTime:            e.window.CloseTime,
		PreparationSeconds:   e.window.PreparationSeconds,
		FinalWithdrawDelay:   e.window.FinalWithdrawDelay,
		ReleasedPercent:      e.schedule.ReleasedPercent,
		NextReleaseTimestamp: e.schedule.NextReleaseTimestamp,
		RaisedWithdrawn:      e.raisedWithdrawn,
		HasVault:             e.vault != nil,
		MinVaultBalance:      fixedPoint.Copy(e.minVaultBalance),
		Pools:                e.pools.Snapshot(),
		Positions:            e.ledger.Snapshot(),
	}, nil
}

// NewEngineFromState rebuilds an engine from a snapshot. vault is reattached when the
// snapshot had one; it may be nil otherwise.
func NewEngineFromState(
	state *OfferingState,
	vault types.EligibilityOracle,
	clock types.Clock,
	assets types.AssetTransfer,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) (*Engine, error) {
	if state.HasVault && vault == nil {
		return nil, types.ErrMissingVault
	}
	if state.CloseTime == math.MaxUint64 {
		return nil, types.Wrap(types.ErrInvalidSaleWindow, "close %d leaves no room for a release", state.CloseTime)
	}

	// The schedule is restored after construction; a released schedule need not satisfy
	// the initial constraints.
	e, err := NewEngine(&EngineConfig{
		ContributionToken:    state.ContributionToken,
		OfferingToken:        state.OfferingToken,
		Custody:              state.Custody,
		Admin:                state.Admin,
		OpenTime:             state.OpenTime,
		CloseTime:            state.CloseTime,
		ReleasedPercent:      1,
		NextReleaseTimestamp: state.CloseTime + 1,
		NumberPools:          len(state.Pools),
		PreparationSeconds:   state.PreparationSeconds,
		FinalWithdrawDelay:   state.FinalWithdrawDelay,
	}, clock, assets, eb, ms, l)
	if err != nil {
		return nil, err
	}

	if state.ReleasedPercent < 1 || state.ReleasedPercent > vesting.MaxPercent {
		return nil, types.Wrap(types.ErrPercentOutOfRange, "%d", state.ReleasedPercent)
	}
	e.schedule.ReleasedPercent = state.ReleasedPercent
	e.schedule.NextReleaseTimestamp = state.NextReleaseTimestamp

	if err := e.pools.Restore(state.Pools); err != nil {
		return nil, err
	}
	e.ledger.Restore(state.Positions)
	e.raisedWithdrawn = state.RaisedWithdrawn
	if state.HasVault {
		e.vault = vault
	}
	if state.MinVaultBalance != nil {
		e.minVaultBalance = fixedPoint.Copy(state.MinVaultBalance)
	}
	e.publishSettings()
	return e, nil
}
