package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/Layr-Labs/offering-ledger/internal/version"
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus"
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/prometheus"
	"github.com/Layr-Labs/offering-ledger/pkg/report"
	"github.com/Layr-Labs/offering-ledger/pkg/scenario"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const eventBufferSize = 4096

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a scenario file against a fresh offering",
	Long: `Replay a scenario file against a fresh offering and print the resulting state root.

The final state is saved to every configured store: postgres when --database.host is set,
and leveldb when --storage.snapshot-dir is set. With --snapshot.dir, a hashed json snapshot
is exported as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		if cfg.ScenarioConfig.Path == "" {
			return fmt.Errorf("--%s is required", config.ScenarioPath)
		}

		l.Sugar().Infow("offering-ledger simulate",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("scenario", cfg.ScenarioConfig.Path),
		)

		s, err := scenario.Load(cfg.ScenarioConfig.Path)
		if err != nil {
			return err
		}
		s.ApplyDefaults(&cfg.OfferingConfig)

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			return errors.Wrap(err, "failed to setup metrics clients")
		}
		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			return errors.Wrap(err, "failed to setup metrics sink")
		}
		defer sink.Flush()

		eb := eventBus.NewEventBus(l)
		recorder := eventBus.NewRecorder(eb, eventBufferSize)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := scenario.NewRunner(s, &scenario.RunnerConfig{Progress: os.Stderr}, eb, sink, l).Run(ctx)
		events := recorder.Stop()
		if err != nil {
			return err
		}

		stores, err := openStores(cfg, l)
		if err != nil {
			return err
		}
		defer closeStores(stores, l)

		for _, ns := range stores {
			root, err := storage.SaveState(ns.store, cfg.ScenarioConfig.OfferingId, version.GetVersion(), result.State)
			if err != nil {
				return errors.Wrapf(err, "failed to save state to %s", ns.name)
			}
			l.Sugar().Infow("Saved offering state",
				zap.String("store", ns.name),
				zap.String("offeringId", cfg.ScenarioConfig.OfferingId),
				zap.String("stateRoot", string(root)),
			)
		}

		if cfg.SnapshotConfig.Dir != "" {
			svc, err := newSnapshotService(cfg, sink, l)
			if err != nil {
				return err
			}
			if _, err := svc.CreateSnapshot(cfg.ScenarioConfig.OfferingId, result.State); err != nil {
				return errors.Wrap(err, "failed to export snapshot")
			}
		}
		if cfg.ScenarioConfig.ReportDir != "" {
			if err := writeReports(cfg.ScenarioConfig.ReportDir, s, result); err != nil {
				return err
			}
		}
		if cfg.ScenarioConfig.EventsFile != "" {
			if err := writeEvents(cfg.ScenarioConfig.EventsFile, events); err != nil {
				return err
			}
		}
		if cfg.PrometheusConfig.Textfile != "" {
			if err := writePrometheusTextfile(cfg.PrometheusConfig.Textfile, metricsClients); err != nil {
				return err
			}
		}

		fmt.Printf("runId: %s\nphase: %s\nstateRoot: %s\n", result.RunId, result.Engine.Phase(), result.StateRoot)
		return nil
	},
}

func writeReports(dir string, s *scenario.Scenario, result *scenario.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}

	names := make([]string, 0, len(result.Accounts))
	for name := range result.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	users := make([]*report.User, 0, len(names))
	for _, name := range names {
		users = append(users, &report.User{Label: name, Identity: result.Accounts[name]})
	}

	contributionDecimals, offeringDecimals := s.Offering.TokenDecimals()
	cfg := &report.ReportConfig{
		ContributionDecimals: contributionDecimals,
		OfferingDecimals:     offeringDecimals,
	}

	writers := []struct {
		file  string
		write func(f *os.File) error
	}{
		{"positions.csv", func(f *os.File) error { return report.WritePositions(f, result.Engine, users, cfg) }},
		{"pools.csv", func(f *os.File) error { return report.WritePools(f, result.Engine, cfg) }},
	}
	for _, w := range writers {
		f, err := os.Create(filepath.Join(dir, w.file))
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", w.file)
		}
		err = w.write(f)
		closeErr := f.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to write %s", w.file)
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

func writeEvents(path string, events []*eventBusTypes.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create events file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return errors.Wrap(err, "failed to write event")
		}
	}
	return nil
}

func writePrometheusTextfile(path string, clients []metricsTypes.IMetricsClient) error {
	for _, c := range clients {
		if pc, ok := c.(*prometheus.PrometheusMetricsClient); ok {
			return pc.WriteTextfile(path)
		}
	}
	return fmt.Errorf("--%s requires --%s", config.PrometheusTextfile, config.PrometheusEnabled)
}
