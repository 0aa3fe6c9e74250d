package offering

import (
	"math/big"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"go.uber.org/zap"
)

// SetPool configures pool poolId. Admin only, before the offering opens.
func (e *Engine) SetPool(
	caller types.Identity,
	poolId types.PoolId,
	offeringAmount *big.Int,
	raisingAmount *big.Int,
	perUserLimit *big.Int,
	hasTax bool,
) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_SetPool, &poolId, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.window.RequireSetup(e.clock.Now()); err != nil {
		return err
	}
	if perUserLimit == nil {
		perUserLimit = fixedPoint.Zero()
	}
	if err := e.pools.CreateOrUpdatePool(poolId, offeringAmount, raisingAmount, perUserLimit, hasTax); err != nil {
		return err
	}

	e.publishEvent(eventBusTypes.Event_PoolSet, &eventBusTypes.PoolSetData{
		PoolId:         poolId,
		OfferingAmount: fixedPoint.Copy(offeringAmount),
		RaisingAmount:  fixedPoint.Copy(raisingAmount),
		PerUserLimit:   fixedPoint.Copy(perUserLimit),
		HasTax:         hasTax,
	})
	return nil
}

// SetPrepPeriod sets the pause between close and harvest. Admin only, before the offering opens.
func (e *Engine) SetPrepPeriod(caller types.Identity, seconds uint64) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_SetPrepPeriod, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.window.RequireSetup(e.clock.Now()); err != nil {
		return err
	}
	if err := e.window.SetPreparationSeconds(seconds); err != nil {
		return err
	}
	e.publishSettings()

	e.publishEvent(eventBusTypes.Event_PrepPeriodSet, &eventBusTypes.PrepPeriodSetData{
		PreparationSeconds: seconds,
	})
	return nil
}

// SetVault installs the eligibility oracle. A nil oracle removes the eligibility gate.
// Admin only, before the offering opens.
func (e *Engine) SetVault(caller types.Identity, vault types.EligibilityOracle) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_SetVault, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.window.RequireSetup(e.clock.Now()); err != nil {
		return err
	}
	e.vault = vault
	e.publishSettings()

	e.publishEvent(eventBusTypes.Event_VaultSet, &eventBusTypes.VaultSetData{
		HasVault:        vault != nil,
		MinVaultBalance: fixedPoint.Copy(e.minVaultBalance),
	})
	return nil
}

// SetMinVaultBalance sets the vault balance required to participate. Admin only,
// before the offering opens.
func (e *Engine) SetMinVaultBalance(caller types.Identity, amount *big.Int) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_SetMinVaultBalance, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.window.RequireSetup(e.clock.Now()); err != nil {
		return err
	}
	if amount == nil {
		amount = fixedPoint.Zero()
	}
	if amount.Sign() < 0 {
		return types.Wrap(types.ErrInvalidAmount, "minimum vault balance must not be negative")
	}
	e.minVaultBalance = fixedPoint.Copy(amount)
	e.publishSettings()

	e.publishEvent(eventBusTypes.Event_VaultSet, &eventBusTypes.VaultSetData{
		HasVault:        e.vault != nil,
		MinVaultBalance: fixedPoint.Copy(amount),
	})
	return nil
}

// ReleaseTokens advances the vesting schedule. Admin only, legal in any phase.
func (e *Engine) ReleaseTokens(caller types.Identity, percent uint64, nextReleaseTimestamp types.Timestamp) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_ReleaseTokens, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.schedule.Release(percent, nextReleaseTimestamp); err != nil {
		return err
	}
	e.publishSettings()

	_ = e.metricsSink.Gauge(metricsTypes.Metric_Gauge_ReleasedPercent, float64(percent), nil)
	e.publishEvent(eventBusTypes.Event_TokensReleased, &eventBusTypes.TokensReleasedData{
		ReleasedPercent:      percent,
		NextReleaseTimestamp: nextReleaseTimestamp,
	})
	e.logger.Sugar().Infow("Released tokens",
		zap.Uint64("releasedPercent", percent),
		zap.Uint64("nextReleaseTimestamp", nextReleaseTimestamp),
	)
	return nil
}

// WithdrawRaised pays the sold contribution tokens, the sum of min(total, raising) over
// every pool, to the admin. Legal once, any time after close.
func (e *Engine) WithdrawRaised(caller types.Identity) (amount *big.Int, err error) {
	start := time.Now()
	defer func() { e.observe(Operation_WithdrawRaised, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := e.window.RequireClosed(e.clock.Now()); err != nil {
		return nil, err
	}
	if e.raisedWithdrawn {
		return nil, types.ErrAlreadyWithdrawn
	}

	amount = e.pools.TotalRaised()
	if err := e.requireCustody(e.contributionToken, amount); err != nil {
		return nil, err
	}

	e.raisedWithdrawn = true
	if fixedPoint.IsPositive(amount) {
		if err := e.transferOut(Operation_WithdrawRaised, e.contributionToken, caller, amount); err != nil {
			e.raisedWithdrawn = false
			return nil, err
		}
	}
	e.publishSettings()

	e.publishEvent(eventBusTypes.Event_RaisedWithdrawn, &eventBusTypes.WithdrawData{
		ContributionAmount: fixedPoint.Copy(amount),
		OfferingAmount:     fixedPoint.Zero(),
	})
	e.logger.Sugar().Infow("Withdrew raised contribution tokens", zap.String("amount", amount.String()))
	return amount, nil
}

// FinalWithdraw sweeps arbitrary custody balances to the admin once the final withdraw
// delay has elapsed after close.
//
// Both balances are checked before either transfer. A failure of the second transfer
// after the first succeeded is returned as is; the first transfer is not reversed.
func (e *Engine) FinalWithdraw(caller types.Identity, contributionAmount *big.Int, offeringAmount *big.Int) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_FinalWithdraw, nil, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.window.RequireSettled(e.clock.Now()); err != nil {
		return err
	}
	if contributionAmount == nil {
		contributionAmount = fixedPoint.Zero()
	}
	if offeringAmount == nil {
		offeringAmount = fixedPoint.Zero()
	}
	if contributionAmount.Sign() < 0 || offeringAmount.Sign() < 0 {
		return types.Wrap(types.ErrInvalidAmount, "withdraw amounts must not be negative")
	}
	if err := e.requireCustody(e.contributionToken, contributionAmount); err != nil {
		return err
	}
	if err := e.requireCustody(e.offeringToken, offeringAmount); err != nil {
		return err
	}

	if fixedPoint.IsPositive(contributionAmount) {
		if err := e.transferOut(Operation_FinalWithdraw, e.contributionToken, caller, contributionAmount); err != nil {
			return err
		}
	}
	if fixedPoint.IsPositive(offeringAmount) {
		if err := e.transferOut(Operation_FinalWithdraw, e.offeringToken, caller, offeringAmount); err != nil {
			return err
		}
	}

	e.publishEvent(eventBusTypes.Event_FinalWithdraw, &eventBusTypes.WithdrawData{
		ContributionAmount: fixedPoint.Copy(contributionAmount),
		OfferingAmount:     fixedPoint.Copy(offeringAmount),
	})
	e.logger.Sugar().Infow("Final withdraw",
		zap.String("contributionAmount", contributionAmount.String()),
		zap.String("offeringAmount", offeringAmount.String()),
	)
	return nil
}
