package cmd

import (
	"fmt"
	"os"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/Layr-Labs/offering-ledger/internal/version"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/snapshot"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var restoreSnapshotCmd = &cobra.Command{
	Use:   "restore-snapshot",
	Short: "Restore an offering from a snapshot file into the configured stores",
	Long: `Restore an offering from a previously exported snapshot file.

The input can be a local file path or an http(s) url. The snapshot's .sha256 file is always
checked. When --snapshot.public-key-file is set, a detached .asc signature is required too.
Without --snapshot.input, the newest snapshot of --scenario.offering-id that this version
can read is taken from the manifest in --snapshot.dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			return errors.Wrap(err, "failed to setup metrics clients")
		}
		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			return errors.Wrap(err, "failed to setup metrics sink")
		}
		defer sink.Flush()

		svc, err := newSnapshotService(cfg, sink, l)
		if err != nil {
			return err
		}

		state, err := svc.RestoreSnapshot(cfg.SnapshotConfig.Input, cfg.ScenarioConfig.OfferingId)
		if err != nil {
			return errors.Wrap(err, "failed to restore snapshot")
		}

		stores, err := openStores(cfg, l)
		if err != nil {
			return err
		}
		defer closeStores(stores, l)
		if len(stores) == 0 {
			return fmt.Errorf("set --%s or --%s", config.StorageSnapshotDir, config.DatabaseHost)
		}

		for _, ns := range stores {
			root, err := storage.SaveState(ns.store, cfg.ScenarioConfig.OfferingId, version.GetVersion(), state)
			if err != nil {
				return errors.Wrapf(err, "failed to save state to %s", ns.name)
			}
			fmt.Printf("%s: %s\n", ns.name, root)
		}
		return nil
	},
}

// newSnapshotService builds a snapshot service from the snapshot.* settings, reading the
// armored public key when one is configured.
func newSnapshotService(cfg *config.Config, sink *metrics.MetricsSink, l *zap.Logger) (*snapshot.SnapshotService, error) {
	publicKey := ""
	if cfg.SnapshotConfig.PublicKeyFile != "" {
		data, err := os.ReadFile(cfg.SnapshotConfig.PublicKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read snapshot public key")
		}
		publicKey = string(data)
	}

	dir := cfg.SnapshotConfig.Dir
	if dir == "" {
		dir = "."
	}
	return snapshot.NewSnapshotService(&snapshot.SnapshotConfig{
		Dir:       dir,
		PublicKey: publicKey,
		Version:   version.GetVersion(),
	}, sink, l)
}
