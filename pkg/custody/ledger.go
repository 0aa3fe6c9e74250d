// Package custody is an in-memory token ledger with ERC20-style balances and allowances,
// plus a vault whose balances gate eligibility. It backs the scenario runner and tests.
package custody

import (
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"go.uber.org/zap"
)

// MaxAllowance is never decremented by TransferFrom.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type allowanceKey struct {
	owner   types.Identity
	spender types.Identity
}

type Ledger struct {
	mu         sync.Mutex
	balances   map[types.Identity]map[types.Identity]*big.Int
	allowances map[types.Identity]map[allowanceKey]*big.Int
	logger     *zap.Logger
}

func NewLedger(l *zap.Logger) *Ledger {
	return &Ledger{
		balances:   make(map[types.Identity]map[types.Identity]*big.Int),
		allowances: make(map[types.Identity]map[allowanceKey]*big.Int),
		logger:     l,
	}
}

func (cl *Ledger) balance(token, holder types.Identity) *big.Int {
	holders, ok := cl.balances[token]
	if !ok {
		return fixedPoint.Zero()
	}
	b, ok := holders[holder]
	if !ok {
		return fixedPoint.Zero()
	}
	return b
}

func (cl *Ledger) setBalance(token, holder types.Identity, amount *big.Int) {
	holders, ok := cl.balances[token]
	if !ok {
		holders = make(map[types.Identity]*big.Int)
		cl.balances[token] = holders
	}
	if amount.Sign() == 0 {
		delete(holders, holder)
		return
	}
	holders[holder] = amount
}

// Mint credits amount of token to holder.
func (cl *Ledger) Mint(token, to types.Identity, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return types.Wrap(types.ErrInvalidAmount, "mint amount must not be negative")
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.setBalance(token, to, fixedPoint.Add(cl.balance(token, to), amount))
	cl.logger.Sugar().Debugw("Minted tokens",
		zap.String("token", token.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
	)
	return nil
}

func (cl *Ledger) BalanceOf(token, holder types.Identity) *big.Int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return fixedPoint.Copy(cl.balance(token, holder))
}

func (cl *Ledger) TotalSupply(token types.Identity) *big.Int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	total := fixedPoint.Zero()
	for _, b := range cl.balances[token] {
		total.Add(total, b)
	}
	return total
}

// Holders returns every account with a positive balance of token, in address order.
func (cl *Ledger) Holders(token types.Identity) []types.Identity {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]types.Identity, 0, len(cl.balances[token]))
	for h := range cl.balances[token] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

func (cl *Ledger) Approve(token, owner, spender types.Identity, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return types.Wrap(types.ErrInvalidAmount, "allowance must not be negative")
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	allowances, ok := cl.allowances[token]
	if !ok {
		allowances = make(map[allowanceKey]*big.Int)
		cl.allowances[token] = allowances
	}
	allowances[allowanceKey{owner: owner, spender: spender}] = fixedPoint.Copy(amount)
	return nil
}

func (cl *Ledger) Allowance(token, owner, spender types.Identity) *big.Int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return fixedPoint.Copy(cl.allowance(token, owner, spender))
}

func (cl *Ledger) allowance(token, owner, spender types.Identity) *big.Int {
	a, ok := cl.allowances[token][allowanceKey{owner: owner, spender: spender}]
	if !ok {
		return fixedPoint.Zero()
	}
	return a
}

// Transfer moves amount of token from one holder to another.
func (cl *Ledger) Transfer(token, from, to types.Identity, amount *big.Int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.transfer(token, from, to, amount)
}

func (cl *Ledger) transfer(token, from, to types.Identity, amount *big.Int) error {
	if !fixedPoint.IsPositive(amount) {
		return types.ErrInvalidAmount
	}
	fromBalance := cl.balance(token, from)
	next, err := fixedPoint.Sub(fromBalance, amount)
	if err != nil {
		return types.Wrap(types.ErrInsufficientBalance, "%s holds %s of %s, need %s", from.Hex(), fromBalance.String(), token.Hex(), amount.String())
	}
	cl.setBalance(token, from, next)
	cl.setBalance(token, to, fixedPoint.Add(cl.balance(token, to), amount))
	return nil
}

// TransferFrom moves amount from owner to to on behalf of spender, consuming allowance.
func (cl *Ledger) TransferFrom(token, spender, owner, to types.Identity, amount *big.Int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	allowance := cl.allowance(token, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return types.Wrap(types.ErrInsufficientAllowance, "%s allowed %s to spend %s, need %s", owner.Hex(), spender.Hex(), allowance.String(), amount.String())
	}
	if err := cl.transfer(token, owner, to, amount); err != nil {
		return err
	}
	if allowance.Cmp(MaxAllowance) != 0 {
		cl.allowances[token][allowanceKey{owner: owner, spender: spender}] = new(big.Int).Sub(allowance, amount)
	}
	return nil
}
