package postgresStore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/postgres"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(contributed int64) *offering.OfferingState {
	return &offering.OfferingState{
		ContributionToken:    types.HexToIdentity("0x00000000000000000000000000000000000000a1"),
		OfferingToken:        types.HexToIdentity("0x00000000000000000000000000000000000000a2"),
		Custody:              types.HexToIdentity("0x00000000000000000000000000000000000000cc"),
		Admin:                types.HexToIdentity("0x00000000000000000000000000000000000000ad"),
		OpenTime:             1000,
		CloseTime:            2000,
		FinalWithdrawDelay:   172800,
		ReleasedPercent:      100,
		NextReleaseTimestamp: 2001,
		MinVaultBalance:      big.NewInt(0),
		Pools: []*poolRegistry.Pool{
			{
				OfferingAmount:   new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
				RaisingAmount:    big.NewInt(50),
				PerUserLimit:     big.NewInt(0),
				TotalContributed: big.NewInt(contributed),
			},
		},
		Positions: []*contributionLedger.PositionRecord{
			{
				PositionKey: contributionLedger.PositionKey{User: types.HexToIdentity("0x0000000000000000000000000000000000000001"), PoolId: 0},
				Position:    &contributionLedger.UserPosition{AmountContributed: big.NewInt(contributed), ClaimedOfferingAmount: big.NewInt(0)},
			},
		},
	}
}

func Test_PostgresStore(t *testing.T) {
	dbCfg := tests.GetDbConfigFromEnv()
	if dbCfg == nil {
		t.Skip("IFO_TEST_DATABASE_HOST not set")
	}
	l := tests.GetLogger()

	dbName, _, grm, err := postgres.GetTestPostgresDatabase(*dbCfg, tests.GetConfig(), l)
	if err != nil {
		t.Fatal(err)
	}
	defer postgres.TeardownTestDatabase(dbName, dbCfg, grm, l)

	t.Run("Missing offering", func(t *testing.T) {
		_, err := NewPostgresStore(grm, "missing", l).LoadRecords()
		assert.True(t, errors.Is(err, storage.ErrStateNotFound))
	})
	t.Run("Save, overwrite and load", func(t *testing.T) {
		store := NewPostgresStore(grm, "ifo-1", l)

		_, err := storage.SaveState(store, "ifo-1", "v1.0.0", testState(10))
		require.Nil(t, err)
		root, err := storage.SaveState(store, "ifo-1", "v1.0.0", testState(20))
		require.Nil(t, err)

		records, err := store.LoadRecords()
		require.Nil(t, err)
		assert.Equal(t, string(root), records.Offering.StateRoot)
		assert.Equal(t, 1, len(records.Positions))

		state, err := storage.LoadState(store, "v1.0.0")
		require.Nil(t, err)
		assert.Equal(t, "20", state.Pools[0].TotalContributed.String())
		assert.Equal(t, "1000000000000000000000000000000", state.Pools[0].OfferingAmount.String())
	})
	t.Run("Offerings are isolated", func(t *testing.T) {
		_, err := storage.SaveState(NewPostgresStore(grm, "ifo-2", l), "ifo-2", "v1.0.0", testState(5))
		require.Nil(t, err)

		state, err := storage.LoadState(NewPostgresStore(grm, "ifo-1", l), "v1.0.0")
		require.Nil(t, err)
		assert.Equal(t, "20", state.Pools[0].TotalContributed.String())
	})
}
