package levelStore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/custody"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/stateRoot"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin          = types.HexToIdentity("0x00000000000000000000000000000000000000ad")
	alice          = types.HexToIdentity("0x0000000000000000000000000000000000000001")
	lpToken        = types.HexToIdentity("0x00000000000000000000000000000000000000a1")
	offeringToken  = types.HexToIdentity("0x00000000000000000000000000000000000000a2")
	custodyAccount = types.HexToIdentity("0x00000000000000000000000000000000000000cc")
)

func engineWithDeposit(t *testing.T) (*offering.Engine, *types.ManualClock, *custody.Ledger) {
	l := tests.GetLogger()
	clock := types.NewManualClock(0)
	ledger := custody.NewLedger(l)

	e, err := offering.NewEngine(&offering.EngineConfig{
		ContributionToken:    lpToken,
		OfferingToken:        offeringToken,
		Custody:              custodyAccount,
		Admin:                admin,
		OpenTime:             100,
		CloseTime:            200,
		ReleasedPercent:      25,
		NextReleaseTimestamp: 300,
	}, clock, custody.NewSpender(ledger, custodyAccount), nil, nil, l)
	require.Nil(t, err)

	require.Nil(t, e.SetPool(admin, 1, big.NewInt(1000), big.NewInt(100), big.NewInt(0), true))
	_ = ledger.Mint(lpToken, alice, big.NewInt(150))
	_ = ledger.Approve(lpToken, alice, custodyAccount, custody.MaxAllowance)

	clock.Set(100)
	require.Nil(t, e.DepositPool(alice, 1, big.NewInt(150)))
	return e, clock, ledger
}

func Test_LevelStore(t *testing.T) {
	l := tests.GetLogger()

	t.Run("Empty store", func(t *testing.T) {
		store, err := NewMemoryLevelStore(l)
		require.Nil(t, err)
		defer store.Close()

		_, err = store.LoadRecords()
		assert.True(t, errors.Is(err, storage.ErrStateNotFound))
	})
	t.Run("Engine state survives a round trip", func(t *testing.T) {
		store, err := NewMemoryLevelStore(l)
		require.Nil(t, err)
		defer store.Close()

		e, clock, ledger := engineWithDeposit(t)
		state, err := e.State()
		require.Nil(t, err)

		root, err := storage.SaveState(store, "ifo", "v1.0.0", state)
		require.Nil(t, err)

		loaded, err := storage.LoadState(store, "v1.0.0")
		require.Nil(t, err)
		loadedRoot, err := stateRoot.Compute(loaded)
		require.Nil(t, err)
		assert.Equal(t, root, loadedRoot)

		restored, err := offering.NewEngineFromState(loaded, nil, clock, custody.NewSpender(ledger, custodyAccount), nil, nil, l)
		require.Nil(t, err)
		total, err := restored.ViewPoolTotalContributed(1)
		assert.Nil(t, err)
		assert.Equal(t, "150", total.String())
		assert.Equal(t, uint64(25), restored.ReleasedPercent())
	})
	t.Run("Saving replaces stale positions", func(t *testing.T) {
		store, err := NewMemoryLevelStore(l)
		require.Nil(t, err)
		defer store.Close()

		e, _, _ := engineWithDeposit(t)
		state, _ := e.State()
		_, err = storage.SaveState(store, "ifo", "v1.0.0", state)
		require.Nil(t, err)

		state.Positions = state.Positions[:0]
		_, err = storage.SaveState(store, "ifo", "v1.0.0", state)
		require.Nil(t, err)

		records, err := store.LoadRecords()
		require.Nil(t, err)
		assert.Equal(t, 0, len(records.Positions))
		assert.Equal(t, 2, len(records.Pools))
	})
	t.Run("Files persist across reopen", func(t *testing.T) {
		dir := t.TempDir()
		e, _, _ := engineWithDeposit(t)
		state, _ := e.State()

		store, err := NewLevelStore(dir, l)
		require.Nil(t, err)
		root, err := storage.SaveState(store, "ifo", "v1.0.0", state)
		require.Nil(t, err)
		require.Nil(t, store.Close())

		reopened, err := NewLevelStore(dir, l)
		require.Nil(t, err)
		defer reopened.Close()

		records, err := reopened.LoadRecords()
		require.Nil(t, err)
		assert.Equal(t, string(root), records.Offering.StateRoot)
		assert.Equal(t, "ifo", records.Offering.OfferingId)
	})
}
