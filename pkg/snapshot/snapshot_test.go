package snapshot

import (
	"bytes"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/snapshot/snapshotManifest"
	"github.com/Layr-Labs/offering-ledger/pkg/stateRoot"
	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() *offering.OfferingState {
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
				OfferingAmount:   big.NewInt(100),
				RaisingAmount:    big.NewInt(50),
				PerUserLimit:     big.NewInt(0),
				HasTax:           true,
				TotalContributed: big.NewInt(70),
			},
			{
				OfferingAmount:   big.NewInt(0),
				RaisingAmount:    big.NewInt(0),
				PerUserLimit:     big.NewInt(0),
				TotalContributed: big.NewInt(0),
			},
		},
		Positions: []*contributionLedger.PositionRecord{
			{
				PositionKey: contributionLedger.PositionKey{User: types.HexToIdentity("0x0000000000000000000000000000000000000001"), PoolId: 0},
				Position:    &contributionLedger.UserPosition{AmountContributed: big.NewInt(70), ClaimedOfferingAmount: big.NewInt(0)},
			},
		},
	}
}

func newService(t *testing.T, dir string, version string, publicKey string) *SnapshotService {
	ss, err := NewSnapshotService(&SnapshotConfig{Dir: dir, Version: version, PublicKey: publicKey}, nil, tests.GetLogger())
	require.Nil(t, err)
	return ss
}

func signFile(t *testing.T, entity *openpgp.Entity, sf *SnapshotFile) {
	data, err := os.Open(sf.FullPath())
	require.Nil(t, err)
	defer data.Close()

	sig, err := os.Create(sf.SignatureFilePath())
	require.Nil(t, err)
	defer sig.Close()

	require.Nil(t, openpgp.ArmoredDetachSign(sig, entity, data, nil))
}

func armoredPublicKey(t *testing.T, entity *openpgp.Entity) string {
	buf := &bytes.Buffer{}
	w, err := armor.Encode(buf, openpgp.PublicKeyType, nil)
	require.Nil(t, err)
	require.Nil(t, entity.Serialize(w))
	require.Nil(t, w.Close())
	return buf.String()
}

func Test_CreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	expectedRoot, err := stateRoot.Compute(testState())
	require.Nil(t, err)

	ss := newService(t, dir, "v1.0.0", "")
	sf, err := ss.CreateSnapshot("ifo-1", testState())
	require.Nil(t, err)

	t.Run("Writes the snapshot, hash and manifest", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(sf.SnapshotFileName, "offering_ifo-1_v1.0.0_"))
		assert.FileExists(t, sf.FullPath())
		assert.FileExists(t, sf.HashFilePath())

		hash, err := os.ReadFile(sf.HashFilePath())
		require.Nil(t, err)
		fields := strings.Fields(string(hash))
		assert.Equal(t, 2, len(fields))
		assert.Equal(t, 64, len(fields[0]))
		assert.Equal(t, sf.SnapshotFileName, fields[1])

		manifest, err := snapshotManifest.LoadFromDir(dir)
		require.Nil(t, err)
		require.Equal(t, 1, len(manifest.Snapshots))
		assert.Equal(t, string(expectedRoot), manifest.Snapshots[0].StateRoot)
	})
	t.Run("Restores the newest snapshot from the manifest", func(t *testing.T) {
		state, err := ss.RestoreSnapshot("", "ifo-1")
		require.Nil(t, err)

		root, err := stateRoot.Compute(state)
		require.Nil(t, err)
		assert.Equal(t, expectedRoot, root)
		assert.Equal(t, "70", state.Pools[0].TotalContributed.String())
	})
	t.Run("Restores an explicit path", func(t *testing.T) {
		state, err := ss.RestoreSnapshot(sf.FullPath(), "ifo-1")
		require.Nil(t, err)
		assert.Equal(t, 1, len(state.Positions))
	})
	t.Run("Unknown offering", func(t *testing.T) {
		_, err := ss.RestoreSnapshot("", "ifo-2")
		assert.True(t, errors.Is(err, ErrNoSnapshot))
	})
	t.Run("Older versions do not pick newer snapshots", func(t *testing.T) {
		_, err := newService(t, dir, "v0.9.0", "").RestoreSnapshot("", "ifo-1")
		assert.True(t, errors.Is(err, ErrNoSnapshot))
	})
}

func Test_TamperedSnapshot(t *testing.T) {
	dir := t.TempDir()
	ss := newService(t, dir, "v1.0.0", "")
	sf, err := ss.CreateSnapshot("ifo-1", testState())
	require.Nil(t, err)

	data, err := os.ReadFile(sf.FullPath())
	require.Nil(t, err)
	tampered := strings.Replace(string(data), `"totalContributed": "70"`, `"totalContributed": "71"`, 1)
	require.NotEqual(t, string(data), tampered)
	require.Nil(t, os.WriteFile(sf.FullPath(), []byte(tampered), 0644))

	t.Run("Hash check fails", func(t *testing.T) {
		_, err := ss.RestoreSnapshot(sf.FullPath(), "ifo-1")
		assert.True(t, errors.Is(err, ErrHashMismatch))
	})
	t.Run("Rehashed files still fail the state root check", func(t *testing.T) {
		require.Nil(t, sf.GenerateAndSaveSnapshotHash())
		_, err := ss.RestoreSnapshot(sf.FullPath(), "ifo-1")
		assert.NotNil(t, err)
		assert.False(t, errors.Is(err, ErrHashMismatch))
	})
}

func Test_Signatures(t *testing.T) {
	signer, err := openpgp.NewEntity("offering ledger", "", "ledger@example.com", nil)
	require.Nil(t, err)
	other, err := openpgp.NewEntity("someone else", "", "other@example.com", nil)
	require.Nil(t, err)

	dir := t.TempDir()
	sf, err := newService(t, dir, "v1.0.0", "").CreateSnapshot("ifo-1", testState())
	require.Nil(t, err)

	t.Run("Missing signature", func(t *testing.T) {
		_, err := newService(t, dir, "v1.0.0", armoredPublicKey(t, signer)).RestoreSnapshot(sf.FullPath(), "ifo-1")
		assert.NotNil(t, err)
	})

	signFile(t, signer, sf)

	t.Run("Valid signature", func(t *testing.T) {
		entity, err := sf.ValidateSignature(armoredPublicKey(t, signer))
		require.Nil(t, err)
		assert.Equal(t, signer.PrimaryKey.KeyId, entity.PrimaryKey.KeyId)

		_, err = newService(t, dir, "v1.0.0", armoredPublicKey(t, signer)).RestoreSnapshot(sf.FullPath(), "ifo-1")
		assert.Nil(t, err)
	})
	t.Run("Signed by another key", func(t *testing.T) {
		_, err := newService(t, dir, "v1.0.0", armoredPublicKey(t, other)).RestoreSnapshot(sf.FullPath(), "ifo-1")
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})
	t.Run("Malformed key", func(t *testing.T) {
		_, err := sf.ValidateSignature("not a key")
		assert.NotNil(t, err)
	})
}

func Test_RestoreFromUrl(t *testing.T) {
	dir := t.TempDir()
	ss := newService(t, dir, "v1.0.0", "")
	ss.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	sf, err := ss.CreateSnapshot("ifo-1", testState())
	require.Nil(t, err)
	assert.Equal(t, "offering_ifo-1_v1.0.0_20261019090000.json", sf.SnapshotFileName)

	server := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer server.Close()

	t.Run("Downloads the snapshot and its hash", func(t *testing.T) {
		state, err := ss.RestoreSnapshot(server.URL+"/"+sf.SnapshotFileName, "ifo-1")
		require.Nil(t, err)
		assert.Equal(t, uint64(2000), state.CloseTime)
	})
	t.Run("Missing files fail", func(t *testing.T) {
		_, err := ss.RestoreSnapshot(server.URL+"/missing.json", "ifo-1")
		assert.NotNil(t, err)
	})
}

func Test_IsNetworkURL(t *testing.T) {
	cases := []struct {
		in       string
		expected bool
	}{
		{"https://example.com/snapshot.json", true},
		{"http://localhost:8080/a.json", true},
		{"file:///tmp/a.json", false},
		{"/tmp/a.json", false},
		{"snapshot.json", false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.expected, isNetworkURL(c.in))
		})
	}
}

func Test_NewSnapshotService(t *testing.T) {
	_, err := NewSnapshotService(&SnapshotConfig{}, nil, tests.GetLogger())
	assert.NotNil(t, err)

	ss, err := NewSnapshotService(&SnapshotConfig{Dir: "relative"}, nil, tests.GetLogger())
	require.Nil(t, err)
	assert.True(t, filepath.IsAbs(ss.cfg.Dir))
}
