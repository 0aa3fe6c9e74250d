// Package allocation converts contributions into offering-token allocations,
// refunds and tax.
//
// Amounts are computed from the pool aggregate and the user's contribution alone,
// so repeated calls without intervening state changes return identical results.
//
// Without overflow the pool sells at its fixed price, raisingAmount contribution
// tokens for offeringAmount offering tokens. With overflow every participant receives
// a share of offeringAmount pro-rata to their contribution and the unsold part of the
// contribution is refunded:
//
//	offeringOwed = floor(offeringAmount * user / total)
//	refund       = floor(user * (total - raising) / total)
//	tax          = floor(refund * (total - raising) / total)   (taxed pools only)
//
// The refund is floored, never the sold portion, which keeps the sum of refunds and
// tax within the pool's overflow. Flooring the tax leaves the residual with users.
package allocation

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
)

type Amounts struct {
	// OfferingOwed is the user's total earned allocation, independent of vesting.
	OfferingOwed *big.Int
	// Refunding is the contribution returned to the user, net of tax.
	Refunding *big.Int
	Tax       *big.Int
}

func zeroAmounts() *Amounts {
	return &Amounts{
		OfferingOwed: fixedPoint.Zero(),
		Refunding:    fixedPoint.Zero(),
		Tax:          fixedPoint.Zero(),
	}
}

// Allocated is the part of the contribution treated as sold.
func (a *Amounts) Allocated(userContributed *big.Int) *big.Int {
	return fixedPoint.SubFloor(userContributed, fixedPoint.Add(a.Refunding, a.Tax))
}

// Calculate computes the amounts owed to a user who contributed userContributed into pool.
func Calculate(pool *poolRegistry.Pool, userContributed *big.Int) (*Amounts, error) {
	if !pool.IsConfigured() || !fixedPoint.IsPositive(userContributed) || !fixedPoint.IsPositive(pool.TotalContributed) {
		return zeroAmounts(), nil
	}

	if !pool.HasOverflow() {
		owed, err := fixedPoint.MulDivFloor(userContributed, pool.OfferingAmount, pool.RaisingAmount)
		if err != nil {
			return nil, err
		}
		res := zeroAmounts()
		res.OfferingOwed = owed
		return res, nil
	}

	total := pool.TotalContributed
	overflow := pool.Overflow()

	owed, err := fixedPoint.MulDivFloor(pool.OfferingAmount, userContributed, total)
	if err != nil {
		return nil, err
	}
	refund, err := fixedPoint.MulDivFloor(userContributed, overflow, total)
	if err != nil {
		return nil, err
	}

	tax := fixedPoint.Zero()
	if pool.HasTax {
		tax, err = TaxOnRefund(pool, refund)
		if err != nil {
			return nil, err
		}
	}
	net, err := fixedPoint.Sub(refund, tax)
	if err != nil {
		return nil, err
	}
	return &Amounts{
		OfferingOwed: owed,
		Refunding:    net,
		Tax:          tax,
	}, nil
}

// TaxOnRefund applies the pool's overflow ratio, (total - raising) / total, to refund.
func TaxOnRefund(pool *poolRegistry.Pool, refund *big.Int) (*big.Int, error) {
	if !pool.HasTax || !pool.HasOverflow() {
		return fixedPoint.Zero(), nil
	}
	return fixedPoint.MulDivFloor(refund, pool.Overflow(), pool.TotalContributed)
}
