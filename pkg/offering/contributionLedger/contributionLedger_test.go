package contributionLedger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/stretchr/testify/assert"
)

var (
	alice = types.HexToIdentity("0x00000000000000000000000000000000000000a1")
	bob   = types.HexToIdentity("0x00000000000000000000000000000000000000b0")
)

func Test_ContributionLedger(t *testing.T) {
	t.Run("Deposits accumulate per user and pool", func(t *testing.T) {
		l := NewContributionLedger()
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(1)))
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(2)))
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(6)))
		assert.Nil(t, l.RecordDeposit(bob, 0, big.NewInt(4)))
		assert.Nil(t, l.RecordDeposit(bob, 1, big.NewInt(100)))

		assert.Equal(t, "9", l.Position(alice, 0).AmountContributed.String())
		assert.Equal(t, "0", l.Position(alice, 1).AmountContributed.String())
		assert.Equal(t, "13", l.TotalContributed(0).String())
		assert.Equal(t, "100", l.TotalContributed(1).String())
		assert.Equal(t, []types.Identity{alice, bob}, l.Participants(0))
	})

	t.Run("Rejects non positive deposits", func(t *testing.T) {
		l := NewContributionLedger()
		assert.True(t, errors.Is(l.RecordDeposit(alice, 0, big.NewInt(0)), types.ErrInvalidAmount))
		assert.True(t, errors.Is(l.RecordDeposit(alice, 0, nil), types.ErrInvalidAmount))
	})

	t.Run("Per user limit", func(t *testing.T) {
		l := NewContributionLedger()
		limit := big.NewInt(10)
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(9)))

		err := l.CheckLimit(alice, 0, big.NewInt(8), limit)
		assert.True(t, errors.Is(err, types.ErrLimitExceeded))

		assert.Nil(t, l.CheckLimit(alice, 0, big.NewInt(1), limit))
		assert.Nil(t, l.CheckLimit(alice, 0, big.NewInt(1000), big.NewInt(0)))
		assert.Nil(t, l.CheckLimit(alice, 0, big.NewInt(1000), nil))
	})

	t.Run("Reverting a deposit restores the previous state", func(t *testing.T) {
		l := NewContributionLedger()
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(5)))
		assert.Nil(t, l.RevertDeposit(alice, 0, big.NewInt(5)))
		assert.Equal(t, 0, len(l.Snapshot()))

		err := l.RevertDeposit(alice, 0, big.NewInt(1))
		assert.True(t, errors.Is(err, fixedPoint.ErrUnderflow))
	})

	t.Run("Claims and harvest flag", func(t *testing.T) {
		l := NewContributionLedger()
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(5)))
		assert.False(t, l.SetHarvested(alice, 0, true))
		assert.True(t, l.SetHarvested(alice, 0, true))

		l.AddClaimed(alice, 0, big.NewInt(3))
		l.AddClaimed(alice, 0, big.NewInt(2))
		assert.Equal(t, "5", l.Position(alice, 0).ClaimedOfferingAmount.String())

		assert.Nil(t, l.RevertClaimed(alice, 0, big.NewInt(2)))
		assert.Equal(t, "3", l.Position(alice, 0).ClaimedOfferingAmount.String())
		assert.NotNil(t, l.RevertClaimed(alice, 0, big.NewInt(4)))
	})

	t.Run("Position returns a copy", func(t *testing.T) {
		l := NewContributionLedger()
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(5)))
		p := l.Position(alice, 0)
		p.AmountContributed.SetInt64(100)
		assert.Equal(t, "5", l.Position(alice, 0).AmountContributed.String())
	})

	t.Run("Snapshot is ordered and restorable", func(t *testing.T) {
		l := NewContributionLedger()
		assert.Nil(t, l.RecordDeposit(bob, 1, big.NewInt(2)))
		assert.Nil(t, l.RecordDeposit(alice, 1, big.NewInt(3)))
		assert.Nil(t, l.RecordDeposit(alice, 0, big.NewInt(4)))

		snap := l.Snapshot()
		assert.Equal(t, 3, len(snap))
		assert.Equal(t, alice, snap[0].User)
		assert.Equal(t, types.PoolId(0), snap[0].PoolId)
		assert.Equal(t, alice, snap[1].User)
		assert.Equal(t, types.PoolId(1), snap[1].PoolId)
		assert.Equal(t, bob, snap[2].User)

		restored := NewContributionLedger()
		restored.Restore(snap)
		assert.Equal(t, "3", restored.Position(alice, 1).AmountContributed.String())
		assert.Equal(t, "5", restored.TotalContributed(1).String())
	})
}
