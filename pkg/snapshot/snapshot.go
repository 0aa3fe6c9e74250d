// Package snapshot exports offering state to portable, hashed json files and restores it.
package snapshot

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/snapshot/snapshotManifest"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrHashMismatch     = errors.New("snapshot hash does not match")
	ErrInvalidSignature = errors.New("snapshot signature is invalid")
	ErrNoSnapshot       = errors.New("no compatible snapshot found")
)

type SnapshotConfig struct {
	// Dir holds exported snapshots and their manifest.
	Dir string
	// PublicKey is an armored PGP public key. When set, restored snapshots must carry a
	// detached signature made with it.
	PublicKey string
	Version   string
}

type SnapshotService struct {
	cfg         *SnapshotConfig
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
	now         func() time.Time
}

func NewSnapshotService(cfg *SnapshotConfig, ms *metrics.MetricsSink, l *zap.Logger) (*SnapshotService, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("error getting absolute path: %w", err)
	}
	cfg.Dir = dir

	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	return &SnapshotService{
		cfg:         cfg,
		metricsSink: ms,
		logger:      l,
		now:         time.Now,
	}, nil
}

func (ss *SnapshotService) timing(name string, offeringId string, start time.Time) {
	_ = ss.metricsSink.Timing(name, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "offeringId", Value: offeringId},
		{Name: "version", Value: ss.cfg.Version},
	})
}

// CreateSnapshot writes state to a new file in the snapshot directory, with its hash file,
// and records it in the manifest.
func (ss *SnapshotService) CreateSnapshot(offeringId string, state *offering.OfferingState) (*SnapshotFile, error) {
	start := time.Now()

	if err := os.MkdirAll(ss.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating snapshot directory: %w", err)
	}
	manifest, err := snapshotManifest.LoadFromDir(ss.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	snapshotFile := newSnapshotExportFile(ss.cfg.Dir, offeringId, ss.cfg.Version, ss.now())
	root, err := storage.SaveState(snapshotFile, offeringId, ss.cfg.Version, state)
	if err != nil {
		snapshotFile.ClearFiles()
		return nil, err
	}
	if err := snapshotFile.GenerateAndSaveSnapshotHash(); err != nil {
		snapshotFile.ClearFiles()
		return nil, err
	}

	manifest.AddSnapshot(&snapshotManifest.Snapshot{
		OfferingId: offeringId,
		Version:    ss.cfg.Version,
		CreatedAt:  snapshotManifest.CreatedAt{Time: snapshotFile.CreatedTimestamp},
		FileName:   snapshotFile.SnapshotFileName,
		StateRoot:  string(root),
	})
	if err := manifest.SaveToDir(ss.cfg.Dir); err != nil {
		return nil, fmt.Errorf("error writing manifest: %w", err)
	}

	ss.logger.Sugar().Infow("Snapshot created",
		zap.String("outputFile", snapshotFile.FullPath()),
		zap.String("stateRoot", string(root)),
	)
	ss.timing(metricsTypes.Metric_Timing_CreateSnapshot, offeringId, start)
	return snapshotFile, nil
}

// RestoreSnapshot loads input, a local path or an http(s) url, verifying its hash and,
// when a public key is configured, its signature. An empty input selects the newest
// compatible snapshot of offeringId from the manifest.
func (ss *SnapshotService) RestoreSnapshot(input string, offeringId string) (*offering.OfferingState, error) {
	start := time.Now()

	snapshotFile, cleanup, err := ss.resolveInput(input, offeringId)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := snapshotFile.ValidateHash(); err != nil {
		return nil, err
	}
	if ss.cfg.PublicKey != "" {
		signer, err := snapshotFile.ValidateSignature(ss.cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		ss.logger.Sugar().Infow("Snapshot signature verified", zap.String("signerKeyId", signer.PrimaryKey.KeyIdString()))
	}

	state, err := storage.LoadState(snapshotFile, ss.cfg.Version)
	if err != nil {
		return nil, err
	}
	ss.logger.Sugar().Infow("Snapshot restored", zap.String("inputFile", snapshotFile.FullPath()))
	ss.timing(metricsTypes.Metric_Timing_RestoreSnapshot, offeringId, start)
	return state, nil
}

func (ss *SnapshotService) resolveInput(input string, offeringId string) (*SnapshotFile, func(), error) {
	noop := func() {}

	if input == "" {
		manifest, err := snapshotManifest.LoadFromDir(ss.cfg.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("error reading manifest: %w", err)
		}
		found := manifest.FindSnapshot(offeringId, ss.cfg.Version)
		if found == nil {
			return nil, noop, errors.Wrapf(ErrNoSnapshot, "offering '%s', version %s", offeringId, ss.cfg.Version)
		}
		return newSnapshotFile(filepath.Join(ss.cfg.Dir, found.FileName)), noop, nil
	}

	if !isNetworkURL(input) {
		return newSnapshotFile(input), noop, nil
	}

	tmpDir, err := os.MkdirTemp("", "offering-snapshot-")
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			ss.logger.Sugar().Warnw("Failed to remove temporary directory", zap.String("dir", tmpDir), zap.Error(err))
		}
	}

	parsed, _ := url.Parse(input)
	snapshotFile := &SnapshotFile{Dir: tmpDir, SnapshotFileName: filepath.Base(parsed.Path)}

	downloads := []struct {
		url      string
		dest     string
		optional bool
	}{
		{input, snapshotFile.FullPath(), false},
		{fmt.Sprintf("%s.%s", input, snapshotFile.HashExt()), snapshotFile.HashFilePath(), false},
		{fmt.Sprintf("%s.%s", input, snapshotFile.SignatureExt()), snapshotFile.SignatureFilePath(), ss.cfg.PublicKey == ""},
	}
	for _, d := range downloads {
		if err := downloadFile(d.url, d.dest); err != nil {
			if d.optional {
				continue
			}
			cleanup()
			return nil, noop, fmt.Errorf("failed to download %s: %w", d.url, err)
		}
		ss.logger.Sugar().Debugw("Downloaded file", zap.String("url", d.url))
	}
	return snapshotFile, cleanup, nil
}

// isNetworkURL reports whether str is an http or https url.
func isNetworkURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func downloadFile(url string, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
