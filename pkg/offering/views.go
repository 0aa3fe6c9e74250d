package offering

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/allocation"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/lifecycle"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

type UserInfo struct {
	PoolId            types.PoolId
	AmountContributed *big.Int
	HasHarvested      bool
	// OfferingAmountOwed is recomputed from the current pool aggregates on every call.
	OfferingAmountOwed    *big.Int
	ClaimedOfferingAmount *big.Int
}

// ClaimableTokens returns, per requested pool, the offering tokens a harvest would pay now.
func (e *Engine) ClaimableTokens(user types.Identity, poolIds []types.PoolId) ([]*big.Int, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]*big.Int, 0, len(poolIds))
	for _, poolId := range poolIds {
		amounts, position, err := e.amountsFor(user, poolId)
		if err != nil {
			return nil, err
		}
		out = append(out, e.schedule.Claimable(amounts.OfferingOwed, position.ClaimedOfferingAmount))
	}
	return out, nil
}

func (e *Engine) ViewUserInfo(user types.Identity, poolIds []types.PoolId) ([]*UserInfo, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]*UserInfo, 0, len(poolIds))
	for _, poolId := range poolIds {
		amounts, position, err := e.amountsFor(user, poolId)
		if err != nil {
			return nil, err
		}
		out = append(out, &UserInfo{
			PoolId:                poolId,
			AmountContributed:     position.AmountContributed,
			HasHarvested:          position.HasHarvested,
			OfferingAmountOwed:    amounts.OfferingOwed,
			ClaimedOfferingAmount: position.ClaimedOfferingAmount,
		})
	}
	return out, nil
}

func (e *Engine) ViewPoolInformation(poolId types.PoolId) (*poolRegistry.PoolInformation, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.pools.View(poolId)
}

// ViewPoolTotalContributed returns the pool's aggregate contributions, including overflow.
func (e *Engine) ViewPoolTotalContributed(poolId types.PoolId) (*big.Int, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	pool, err := e.pools.Get(poolId)
	if err != nil {
		return nil, err
	}
	return fixedPoint.Copy(pool.TotalContributed), nil
}

// ViewUserOfferingAndRefundingAmountsForPools returns (offeringOwed, refundNet, tax) per
// pool. The refund excludes tax.
func (e *Engine) ViewUserOfferingAndRefundingAmountsForPools(user types.Identity, poolIds []types.PoolId) ([]*allocation.Amounts, error) {
	unlock, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]*allocation.Amounts, 0, len(poolIds))
	for _, poolId := range poolIds {
		amounts, _, err := e.amountsFor(user, poolId)
		if err != nil {
			return nil, err
		}
		out = append(out, amounts)
	}
	return out, nil
}

func (e *Engine) amountsFor(user types.Identity, poolId types.PoolId) (*allocation.Amounts, *contributionLedger.UserPosition, error) {
	pool, err := e.pools.Get(poolId)
	if err != nil {
		return nil, nil, err
	}
	position := e.ledger.Position(user, poolId)
	amounts, err := allocation.Calculate(pool, position.AmountContributed)
	if err != nil {
		return nil, nil, err
	}
	return amounts, position, nil
}

func (e *Engine) IsPreparationPeriod() bool {
	s := e.settings.Load()
	return s.window.IsPreparationPeriod(e.clock.Now())
}

func (e *Engine) Phase() lifecycle.Phase {
	s := e.settings.Load()
	return s.window.PhaseAt(e.clock.Now())
}

func (e *Engine) PrepPeriod() uint64 {
	return e.settings.Load().window.PreparationSeconds
}

func (e *Engine) ReleasedPercent() uint64 {
	return e.settings.Load().releasedPercent
}

func (e *Engine) NextReleaseTimestamp() types.Timestamp {
	return e.settings.Load().nextReleaseTimestamp
}

func (e *Engine) RaisedWithdrawn() bool {
	return e.settings.Load().raisedWithdrawn
}

func (e *Engine) MinVaultBalance() *big.Int {
	return fixedPoint.Copy(e.settings.Load().minVaultBalance)
}

// IsEligible reads the vault balance directly; it does not touch ledger state.
func (e *Engine) IsEligible(user types.Identity) (bool, error) {
	s := e.settings.Load()
	return checkEligibility(s.vault, s.minVaultBalance, user)
}

// UserVaultBalance is zero when no vault is configured.
func (e *Engine) UserVaultBalance(user types.Identity) (*big.Int, error) {
	s := e.settings.Load()
	if s.vault == nil {
		return fixedPoint.Zero(), nil
	}
	return readVaultBalance(s.vault, user)
}
