package offering

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// DepositPool pulls amount contribution tokens from caller into poolId.
//
// Checks run in a fixed order: pool id, pool configured, sale open, positive amount,
// eligibility, per-user limit. Contributions past the pool's raising cap are accepted.
func (e *Engine) DepositPool(caller types.Identity, poolId types.PoolId, amount *big.Int) (err error) {
	start := time.Now()
	defer func() { e.observe(Operation_Deposit, &poolId, start, err) }()

	unlock, err := e.enter()
	if err != nil {
		return err
	}
	defer unlock()

	pool, err := e.pools.GetConfigured(poolId)
	if err != nil {
		return err
	}
	if err := e.window.RequireOpen(e.clock.Now()); err != nil {
		return err
	}
	if !fixedPoint.IsPositive(amount) {
		return types.ErrInvalidAmount
	}
	var eligible bool
	err = e.external(func() error {
		var err error
		eligible, err = checkEligibility(e.vault, e.minVaultBalance, caller)
		return err
	})
	if err != nil {
		return err
	}
	if !eligible {
		return types.Wrap(types.ErrNotEligible, "%s", caller.Hex())
	}
	if err := e.ledger.CheckLimit(caller, poolId, amount, pool.PerUserLimit); err != nil {
		return err
	}

	amount = fixedPoint.Copy(amount)
	if err := e.ledger.RecordDeposit(caller, poolId, amount); err != nil {
		return err
	}
	if err := e.pools.RecordContribution(poolId, amount); err != nil {
		_ = e.ledger.RevertDeposit(caller, poolId, amount)
		return err
	}

	if err := e.transferIn(Operation_Deposit, e.contributionToken, caller, amount); err != nil {
		if rerr := e.pools.RevertContribution(poolId, amount); rerr != nil {
			return fmt.Errorf("failed to revert pool contribution after '%v': %w", err, rerr)
		}
		if rerr := e.ledger.RevertDeposit(caller, poolId, amount); rerr != nil {
			return fmt.Errorf("failed to revert user deposit after '%v': %w", err, rerr)
		}
		return err
	}

	e.recordPoolGauge(poolId, pool.TotalContributed)
	e.publishEvent(eventBusTypes.Event_Deposit, &eventBusTypes.DepositData{
		User:   caller,
		PoolId: poolId,
		Amount: fixedPoint.Copy(amount),
	})
	return nil
}

// checkEligibility is true without a vault, otherwise when the user's vault balance
// reaches minBalance.
func checkEligibility(vault types.EligibilityOracle, minBalance *big.Int, user types.Identity) (bool, error) {
	if vault == nil {
		return true, nil
	}
	balance, err := readVaultBalance(vault, user)
	if err != nil {
		return false, err
	}
	return balance.Cmp(minBalance) >= 0, nil
}

func readVaultBalance(vault types.EligibilityOracle, user types.Identity) (*big.Int, error) {
	balance, err := vault.BalanceOf(user)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance for '%s': %w", user.Hex(), err)
	}
	if balance == nil {
		return fixedPoint.Zero(), nil
	}
	return balance, nil
}
