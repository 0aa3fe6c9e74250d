package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "offering-ledger",
	Short: "Replays and inspects initial farm offerings against an in-process ledger",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.OfferingAdmin, "", `Admin identity used when a scenario does not name one`)
	rootCmd.PersistentFlags().Int32(config.OfferingContributionDecimals, 18, `Decimals of the contribution token when a scenario does not set them`)
	rootCmd.PersistentFlags().Int32(config.OfferingOfferingDecimals, 18, `Decimals of the offering token when a scenario does not set them`)
	rootCmd.PersistentFlags().Int(config.OfferingNumberPools, config.DefaultNumberPools, `Number of pools when a scenario does not set it`)
	rootCmd.PersistentFlags().Uint64(config.OfferingFinalWithdrawDelay, 0, `Seconds after close before a final withdraw, 0 for the 48 hour default`)

	rootCmd.PersistentFlags().String(config.StorageSnapshotDir, "", `Directory of the leveldb snapshot store`)

	rootCmd.PersistentFlags().String(config.SnapshotDir, "", `Directory of exported snapshots and their manifest`)

	rootCmd.PersistentFlags().String(config.ScenarioOfferingId, "default", `Key of the offering in storage`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "", `PostgreSQL host, leave empty to skip postgres`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "ifo", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "offerings", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `Sample rate between 0 and 1`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.PrometheusTextfile, "", `File to write gathered prometheus metrics to after a run`)

	// setup sub commands
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(stateRootCmd)
	rootCmd.AddCommand(restoreSnapshotCmd)
	rootCmd.AddCommand(versionCmd)

	// bind any subcommand flags
	simulateCmd.PersistentFlags().String(config.ScenarioPath, "", `Path to the scenario yaml file (required)`)
	simulateCmd.PersistentFlags().String(config.ScenarioReportDir, "", `Directory to write positions.csv and pools.csv to`)
	simulateCmd.PersistentFlags().String(config.ScenarioEventsFile, "", `File to write the event journal to, one json event per line`)

	restoreSnapshotCmd.PersistentFlags().String(config.SnapshotInput, "", `Snapshot path or http(s) url, empty for the newest in --snapshot.dir`)
	restoreSnapshotCmd.PersistentFlags().String(config.SnapshotPublicKeyFile, "", `Armored PGP public key that must have signed the snapshot`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// bindCommandFlags binds a subcommand's own flags, which the root pass above does not see.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		if err := viper.BindPFlag(key, f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(key); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
