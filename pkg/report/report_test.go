package report

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/custody"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin          = types.HexToIdentity("0x00000000000000000000000000000000000000ad")
	alice          = types.HexToIdentity("0x0000000000000000000000000000000000000001")
	bob            = types.HexToIdentity("0x0000000000000000000000000000000000000002")
	lpToken        = types.HexToIdentity("0x00000000000000000000000000000000000000a1")
	offeringToken  = types.HexToIdentity("0x00000000000000000000000000000000000000a2")
	custodyAccount = types.HexToIdentity("0x00000000000000000000000000000000000000cc")
)

// Pool 1 is oversubscribed by 50 and taxed.
func oversubscribedEngine(t *testing.T) *offering.Engine {
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
	return e
}

func Test_PositionRows(t *testing.T) {
	e := oversubscribedEngine(t)
	cfg := &ReportConfig{}

	rows, err := PositionRows(e, []*User{{Label: "alice", Identity: alice}, {Label: "bob", Identity: bob}}, cfg)
	require.Nil(t, err)
	require.Equal(t, 1, len(rows))

	row := rows[0]
	assert.Equal(t, alice.Hex(), row.User)
	assert.Equal(t, "alice", row.Label)
	assert.Equal(t, uint8(1), row.PoolId)
	assert.Equal(t, "150", row.Contributed)
	assert.Equal(t, "1000", row.OfferingOwed)
	assert.Equal(t, "250", row.Claimable)
	assert.Equal(t, "0", row.Claimed)
	assert.Equal(t, "34", row.Refunding)
	assert.Equal(t, "16", row.Tax)
	assert.False(t, row.Harvested)
}

func Test_FormattedUnits(t *testing.T) {
	e := oversubscribedEngine(t)
	rows, err := PoolRows(e, &ReportConfig{ContributionDecimals: 2, OfferingDecimals: 3})
	require.Nil(t, err)
	require.Equal(t, 2, len(rows))

	assert.Equal(t, "0", rows[0].OfferingAmount)
	assert.Equal(t, "1", rows[1].OfferingAmount)
	assert.Equal(t, "1", rows[1].RaisingAmount)
	assert.Equal(t, "1.5", rows[1].TotalContributed)
	assert.True(t, rows[1].HasTax)
}

func Test_WriteCsv(t *testing.T) {
	e := oversubscribedEngine(t)

	t.Run("Positions", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.Nil(t, WritePositions(buf, e, []*User{{Label: "alice", Identity: alice}}, &ReportConfig{}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Equal(t, 2, len(lines))
		assert.Equal(t, "user,label,pool_id,contributed,offering_owed,claimed,claimable,refunding,tax,harvested", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], alice.Hex()+",alice,1,150,1000,0,250,34,16,"))
	})
	t.Run("Pools", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.Nil(t, WritePools(buf, e, &ReportConfig{}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Equal(t, 3, len(lines))
		assert.Equal(t, "pool_id,offering_amount,raising_amount,per_user_limit,has_tax,total_contributed", lines[0])
	})
}

type failingReader struct {
	*offering.Engine
}

func (f *failingReader) ClaimableTokens(user types.Identity, poolIds []types.PoolId) ([]*big.Int, error) {
	return nil, errors.New("unavailable")
}

func Test_ReaderErrors(t *testing.T) {
	r := &failingReader{Engine: oversubscribedEngine(t)}
	err := WritePositions(&bytes.Buffer{}, r, []*User{{Label: "alice", Identity: alice}}, &ReportConfig{})
	assert.ErrorContains(t, err, "unavailable")
}
