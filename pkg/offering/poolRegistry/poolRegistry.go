// Package poolRegistry stores per-pool configuration and contribution aggregates.
package poolRegistry

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// Pool is the configuration and aggregate state of a single pool.
type Pool struct {
	OfferingAmount   *big.Int
	RaisingAmount    *big.Int
	PerUserLimit     *big.Int
	HasTax           bool
	TotalContributed *big.Int
}

// IsConfigured reports whether the admin has set the pool.
func (p *Pool) IsConfigured() bool {
	return p != nil && fixedPoint.IsPositive(p.RaisingAmount)
}

// HasOverflow reports whether contributions exceed the raising cap.
func (p *Pool) HasOverflow() bool {
	return p.IsConfigured() && p.TotalContributed.Cmp(p.RaisingAmount) > 0
}

// Raised is the amount of contribution tokens treated as sold: min(total, raising).
func (p *Pool) Raised() *big.Int {
	if !p.IsConfigured() {
		return fixedPoint.Zero()
	}
	return fixedPoint.Min(p.TotalContributed, p.RaisingAmount)
}

// Overflow is max(total - raising, 0).
func (p *Pool) Overflow() *big.Int {
	if !p.IsConfigured() {
		return fixedPoint.Zero()
	}
	return fixedPoint.SubFloor(p.TotalContributed, p.RaisingAmount)
}

func (p *Pool) Clone() *Pool {
	return &Pool{
		OfferingAmount:   fixedPoint.Copy(p.OfferingAmount),
		RaisingAmount:    fixedPoint.Copy(p.RaisingAmount),
		PerUserLimit:     fixedPoint.Copy(p.PerUserLimit),
		HasTax:           p.HasTax,
		TotalContributed: fixedPoint.Copy(p.TotalContributed),
	}
}

// PoolInformation is the informational view of a pool.
type PoolInformation struct {
	RaisingAmount  *big.Int
	OfferingAmount *big.Int
	PerUserLimit   *big.Int
	HasTax         bool
}

// PoolRegistry holds a fixed number of pool slots.
type PoolRegistry struct {
	pools []*Pool
}

func NewPoolRegistry(numberPools int) (*PoolRegistry, error) {
	if numberPools < 1 || numberPools > types.MaxNumberPools {
		return nil, types.Wrap(types.ErrInvalidNumberPools, "%d", numberPools)
	}
	pools := make([]*Pool, numberPools)
	for i := range pools {
		pools[i] = emptyPool()
	}
	return &PoolRegistry{pools: pools}, nil
}

func emptyPool() *Pool {
	return &Pool{
		OfferingAmount:   fixedPoint.Zero(),
		RaisingAmount:    fixedPoint.Zero(),
		PerUserLimit:     fixedPoint.Zero(),
		TotalContributed: fixedPoint.Zero(),
	}
}

func (r *PoolRegistry) NumberPools() int {
	return len(r.pools)
}

// ValidatePoolId fails with ErrInvalidPool for ids outside the registry.
func (r *PoolRegistry) ValidatePoolId(id types.PoolId) error {
	if int(id) >= len(r.pools) {
		return types.Wrap(types.ErrInvalidPool, "pool %d of %d", id, len(r.pools))
	}
	return nil
}

// Get returns the live pool for id. Callers must not retain it across operations.
func (r *PoolRegistry) Get(id types.PoolId) (*Pool, error) {
	if err := r.ValidatePoolId(id); err != nil {
		return nil, err
	}
	return r.pools[id], nil
}

// GetConfigured is Get that also requires the pool to be set.
func (r *PoolRegistry) GetConfigured(id types.PoolId) (*Pool, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !p.IsConfigured() {
		return nil, types.Wrap(types.ErrPoolNotConfigured, "pool %d", id)
	}
	return p, nil
}

// CreateOrUpdatePool sets the configuration of a pool. Phase and admin checks are the
// caller's responsibility; contributions already recorded are kept.
func (r *PoolRegistry) CreateOrUpdatePool(id types.PoolId, offeringAmount, raisingAmount, perUserLimit *big.Int, hasTax bool) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if !fixedPoint.IsPositive(offeringAmount) || !fixedPoint.IsPositive(raisingAmount) {
		return types.Wrap(types.ErrInvalidAmount, "offering and raising amounts must be positive")
	}
	if perUserLimit != nil && perUserLimit.Sign() < 0 {
		return types.Wrap(types.ErrInvalidAmount, "per user limit must not be negative")
	}
	p.OfferingAmount = fixedPoint.Copy(offeringAmount)
	p.RaisingAmount = fixedPoint.Copy(raisingAmount)
	p.PerUserLimit = fixedPoint.Copy(perUserLimit)
	p.HasTax = hasTax
	return nil
}

// RecordContribution adds amount to the pool total. Exceeding the raising cap is allowed.
func (r *PoolRegistry) RecordContribution(id types.PoolId, amount *big.Int) error {
	p, err := r.GetConfigured(id)
	if err != nil {
		return err
	}
	if !fixedPoint.IsPositive(amount) {
		return types.ErrInvalidAmount
	}
	p.TotalContributed = fixedPoint.Add(p.TotalContributed, amount)
	return nil
}

// RevertContribution undoes RecordContribution after a failed transfer.
func (r *PoolRegistry) RevertContribution(id types.PoolId, amount *big.Int) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	total, err := fixedPoint.Sub(p.TotalContributed, amount)
	if err != nil {
		return err
	}
	p.TotalContributed = total
	return nil
}

// View returns the pool's informational tuple.
func (r *PoolRegistry) View(id types.PoolId) (*PoolInformation, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return &PoolInformation{
		RaisingAmount:  fixedPoint.Copy(p.RaisingAmount),
		OfferingAmount: fixedPoint.Copy(p.OfferingAmount),
		PerUserLimit:   fixedPoint.Copy(p.PerUserLimit),
		HasTax:         p.HasTax,
	}, nil
}

// TotalRaised sums Raised over every pool.
func (r *PoolRegistry) TotalRaised() *big.Int {
	total := fixedPoint.Zero()
	for _, p := range r.pools {
		total.Add(total, p.Raised())
	}
	return total
}

// Snapshot returns deep copies of every pool, indexed by pool id.
func (r *PoolRegistry) Snapshot() []*Pool {
	out := make([]*Pool, len(r.pools))
	for i, p := range r.pools {
		out[i] = p.Clone()
	}
	return out
}

// Restore replaces the registry contents with pools.
func (r *PoolRegistry) Restore(pools []*Pool) error {
	if len(pools) < 1 || len(pools) > types.MaxNumberPools {
		return types.Wrap(types.ErrInvalidNumberPools, "%d", len(pools))
	}
	r.pools = make([]*Pool, len(pools))
	for i, p := range pools {
		if p == nil {
			r.pools[i] = emptyPool()
			continue
		}
		r.pools[i] = p.Clone()
	}
	return nil
}
