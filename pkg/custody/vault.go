package custody

import (
	"math/big"
	"sync"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// Vault holds per-user staked balances and serves them as a types.EligibilityOracle.
type Vault struct {
	mu       sync.RWMutex
	balances map[types.Identity]*big.Int
}

func NewVault() *Vault {
	return &Vault{
		balances: make(map[types.Identity]*big.Int),
	}
}

func (v *Vault) Deposit(user types.Identity, amount *big.Int) error {
	if !fixedPoint.IsPositive(amount) {
		return types.ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[user] = fixedPoint.Add(v.current(user), amount)
	return nil
}

func (v *Vault) Withdraw(user types.Identity, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	current := v.current(user)
	next, err := fixedPoint.Sub(current, amount)
	if err != nil {
		return types.Wrap(types.ErrInsufficientBalance, "vault holds %s for %s", current.String(), user.Hex())
	}
	v.balances[user] = next
	return nil
}

func (v *Vault) current(user types.Identity) *big.Int {
	b, ok := v.balances[user]
	if !ok {
		return fixedPoint.Zero()
	}
	return b
}

func (v *Vault) BalanceOf(user types.Identity) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return fixedPoint.Copy(v.current(user)), nil
}
