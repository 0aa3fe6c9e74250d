package allocation

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/stretchr/testify/assert"
)

func units(v string) *big.Int {
	return fixedPoint.MustParseUnits(v, 18)
}

func newPool(offering, raising *big.Int, hasTax bool, contributions ...*big.Int) *poolRegistry.Pool {
	return &poolRegistry.Pool{
		OfferingAmount:   offering,
		RaisingAmount:    raising,
		PerUserLimit:     fixedPoint.Zero(),
		HasTax:           hasTax,
		TotalContributed: fixedPoint.Sum(contributions...),
	}
}

func Test_Calculate(t *testing.T) {
	t.Run("No overflow sells at the fixed price", func(t *testing.T) {
		pool := newPool(units("1000"), units("8000"), false, units("9"), units("4"))

		a, err := Calculate(pool, units("9"))
		assert.Nil(t, err)
		assert.Equal(t, units("1.125").String(), a.OfferingOwed.String())
		assert.Equal(t, "0", a.Refunding.String())
		assert.Equal(t, "0", a.Tax.String())
		assert.Equal(t, units("9").String(), a.Allocated(units("9")).String())

		b, err := Calculate(pool, units("4"))
		assert.Nil(t, err)
		assert.Equal(t, units("0.5").String(), b.OfferingOwed.String())
	})

	t.Run("Overflow without tax refunds pro-rata", func(t *testing.T) {
		pool := newPool(big.NewInt(100), big.NewInt(50), false, big.NewInt(40), big.NewInt(30))

		a, err := Calculate(pool, big.NewInt(40))
		assert.Nil(t, err)
		assert.Equal(t, "57", a.OfferingOwed.String())
		assert.Equal(t, "11", a.Refunding.String())
		assert.Equal(t, "0", a.Tax.String())
		assert.Equal(t, "29", a.Allocated(big.NewInt(40)).String())

		b, err := Calculate(pool, big.NewInt(30))
		assert.Nil(t, err)
		assert.Equal(t, "42", b.OfferingOwed.String())
		assert.Equal(t, "8", b.Refunding.String())
	})

	t.Run("Overflow with tax deducts at the pool overflow ratio", func(t *testing.T) {
		pool := newPool(big.NewInt(100), big.NewInt(50), true, big.NewInt(40), big.NewInt(30))

		a, err := Calculate(pool, big.NewInt(40))
		assert.Nil(t, err)
		assert.Equal(t, "57", a.OfferingOwed.String())
		assert.Equal(t, "3", a.Tax.String())
		assert.Equal(t, "8", a.Refunding.String())

		b, err := Calculate(pool, big.NewInt(30))
		assert.Nil(t, err)
		assert.Equal(t, "2", b.Tax.String())
		assert.Equal(t, "6", b.Refunding.String())
	})

	t.Run("Zero contribution or unset pool yields zero", func(t *testing.T) {
		pool := newPool(big.NewInt(100), big.NewInt(50), true)
		a, err := Calculate(pool, big.NewInt(0))
		assert.Nil(t, err)
		assert.Equal(t, "0", a.OfferingOwed.String())

		unset := newPool(fixedPoint.Zero(), fixedPoint.Zero(), false, big.NewInt(5))
		a, err = Calculate(unset, big.NewInt(5))
		assert.Nil(t, err)
		assert.Equal(t, "0", a.OfferingOwed.String())
	})

	t.Run("Calculation is a pure function of pool and user state", func(t *testing.T) {
		pool := newPool(units("70000"), units("14000"), true, units("9600"), units("8200"), units("92540"))
		first, err := Calculate(pool, units("8200"))
		assert.Nil(t, err)
		second, err := Calculate(pool, units("8200"))
		assert.Nil(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, units("110340").String(), pool.TotalContributed.String())
	})
}

func Test_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		users := 2 + r.Intn(20)
		contributions := make([]*big.Int, users)
		for u := range contributions {
			contributions[u] = new(big.Int).Mul(big.NewInt(1+r.Int63n(1_000_000)), big.NewInt(1+r.Int63n(1_000_000_007)))
		}
		total := fixedPoint.Sum(contributions...)
		raising := new(big.Int).Div(total, big.NewInt(1+r.Int63n(50)))
		if raising.Sign() == 0 {
			raising = big.NewInt(1)
		}
		offering := big.NewInt(1 + r.Int63n(1_000_000_000_000))
		pool := newPool(offering, raising, r.Intn(2) == 0, contributions...)

		refunds := fixedPoint.Zero()
		owed := fixedPoint.Zero()
		for _, c := range contributions {
			a, err := Calculate(pool, c)
			assert.Nil(t, err)
			refunds.Add(refunds, a.Refunding)
			refunds.Add(refunds, a.Tax)
			owed.Add(owed, a.OfferingOwed)
		}

		assert.True(t, refunds.Cmp(pool.Overflow()) <= 0, "refunds %s exceed overflow %s", refunds, pool.Overflow())
		assert.True(t, owed.Cmp(offering) <= 0, "owed %s exceeds offering %s", owed, offering)
	}
}
