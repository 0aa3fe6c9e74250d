package offering

import (
	"math/big"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/allocation"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// HarvestResult is what a single harvest paid out.
type HarvestResult struct {
	OfferingAmount *big.Int
	RefundAmount   *big.Int
	TaxAmount      *big.Int
}

// HarvestPool pays the caller's currently claimable offering tokens and, on the first
// harvest, the refund net of tax.
//
// The refund and the offering claim are separate units, each committed together with
// its transfer. Harvesting again without a schedule change succeeds and pays nothing.
// When the refund was paid but the offering transfer failed, the error is returned along
// with a result holding the refund and a zero offering amount.
func (e *Engine) HarvestPool(caller types.Identity, poolId types.PoolId) (result *HarvestResult, err error) {
	start := time.Now()
	defer func() { e.observe(Operation_Harvest, &poolId, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.window.RequireHarvestable(e.clock.Now()); err != nil {
		return nil, err
	}
	pool, err := e.pools.Get(poolId)
	if err != nil {
		return nil, err
	}
	position := e.ledger.Position(caller, poolId)
	if !fixedPoint.IsPositive(position.AmountContributed) {
		return nil, types.Wrap(types.ErrDidNotParticipate, "%s in pool %d", caller.Hex(), poolId)
	}

	amounts, err := allocation.Calculate(pool, position.AmountContributed)
	if err != nil {
		return nil, err
	}

	result = &HarvestResult{
		OfferingAmount: fixedPoint.Zero(),
		RefundAmount:   fixedPoint.Zero(),
		TaxAmount:      fixedPoint.Zero(),
	}
	settleRefund := !position.HasHarvested
	if settleRefund {
		result.RefundAmount = amounts.Refunding
		result.TaxAmount = amounts.Tax
	}
	result.OfferingAmount = e.schedule.Claimable(amounts.OfferingOwed, position.ClaimedOfferingAmount)

	// Both payouts are checked before any state changes.
	if err := e.requireCustody(e.contributionToken, result.RefundAmount); err != nil {
		return nil, err
	}
	if err := e.requireCustody(e.offeringToken, result.OfferingAmount); err != nil {
		return nil, err
	}

	if settleRefund {
		e.ledger.SetHarvested(caller, poolId, true)
		if fixedPoint.IsPositive(result.RefundAmount) {
			if err := e.transferOut(Operation_Harvest, e.contributionToken, caller, result.RefundAmount); err != nil {
				e.ledger.SetHarvested(caller, poolId, false)
				return nil, err
			}
		}
	}

	if fixedPoint.IsPositive(result.OfferingAmount) {
		e.ledger.AddClaimed(caller, poolId, result.OfferingAmount)
		if err := e.transferOut(Operation_Harvest, e.offeringToken, caller, result.OfferingAmount); err != nil {
			_ = e.ledger.RevertClaimed(caller, poolId, result.OfferingAmount)
			if !settleRefund {
				return nil, err
			}
			result.OfferingAmount = fixedPoint.Zero()
			e.publishHarvest(caller, poolId, result)
			return result, err
		}
	}

	e.publishHarvest(caller, poolId, result)
	return result, nil
}

func (e *Engine) publishHarvest(caller types.Identity, poolId types.PoolId, result *HarvestResult) {
	e.publishEvent(eventBusTypes.Event_Harvest, &eventBusTypes.HarvestData{
		User:           caller,
		PoolId:         poolId,
		OfferingAmount: fixedPoint.Copy(result.OfferingAmount),
		RefundAmount:   fixedPoint.Copy(result.RefundAmount),
		TaxAmount:      fixedPoint.Copy(result.TaxAmount),
	})
}
