package cmd

import (
	"fmt"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/Layr-Labs/offering-ledger/internal/version"
	"github.com/Layr-Labs/offering-ledger/pkg/stateRoot"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var stateRootCmd = &cobra.Command{
	Use:   "state-root",
	Short: "Load a saved offering, verify it and print its state root",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		stores, err := openStores(cfg, l)
		if err != nil {
			return err
		}
		defer closeStores(stores, l)
		if len(stores) == 0 {
			return fmt.Errorf("set --%s or --%s", config.StorageSnapshotDir, config.DatabaseHost)
		}

		for _, ns := range stores {
			state, err := storage.LoadState(ns.store, version.GetVersion())
			if err != nil {
				return errors.Wrapf(err, "failed to load state from %s", ns.name)
			}
			root, err := stateRoot.Compute(state)
			if err != nil {
				return err
			}
			l.Sugar().Debugw("Verified offering state",
				zap.String("store", ns.name),
				zap.Int("positions", len(state.Positions)),
			)
			fmt.Printf("%s: %s\n", ns.name, root)
		}
		return nil
	},
}
