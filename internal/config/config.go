package config

import (
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "IFO"

// DefaultNumberPools matches the two-pool layout (base and unlimited) of a standard offering.
const DefaultNumberPools = 2

const (
	Debug = "debug"

	OfferingContributionToken    = "offering.contribution-token"
	OfferingOfferingToken        = "offering.offering-token"
	OfferingContributionDecimals = "offering.contribution-decimals"
	OfferingOfferingDecimals     = "offering.offering-decimals"
	OfferingOpenTime             = "offering.open-time"
	OfferingCloseTime            = "offering.close-time"
	OfferingReleasedPercent      = "offering.released-percent"
	OfferingNextRelease          = "offering.next-release"
	OfferingAdmin                = "offering.admin"
	OfferingNumberPools          = "offering.number-pools"
	OfferingPreparationSeconds   = "offering.preparation-seconds"
	OfferingFinalWithdrawDelay   = "offering.final-withdraw-delay"

	StorageSnapshotDir = "storage.snapshot-dir"

	SnapshotDir           = "snapshot.dir"
	SnapshotInput         = "snapshot.input"
	SnapshotPublicKeyFile = "snapshot.public-key-file"

	ScenarioPath       = "scenario.path"
	ScenarioOfferingId = "scenario.offering-id"
	ScenarioReportDir  = "scenario.report-dir"
	ScenarioEventsFile = "scenario.events-file"

	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db-name"
	DatabaseSchemaName  = "database.schema-name"
	DatabaseSSLMode     = "database.ssl-mode"
	DatabaseSSLCert     = "database.ssl-cert"
	DatabaseSSLKey      = "database.ssl-key"
	DatabaseSSLRootCert = "database.ssl-root-cert"

	PrometheusEnabled  = "prometheus.enabled"
	PrometheusTextfile = "prometheus.textfile"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample-rate"
)

type Config struct {
	Debug            bool
	OfferingConfig   OfferingConfig
	StorageConfig    StorageConfig
	SnapshotConfig   SnapshotConfig
	ScenarioConfig   ScenarioConfig
	DatabaseConfig   DatabaseConfig
	PrometheusConfig PrometheusConfig
	DataDogConfig    DataDogConfig
}

type OfferingConfig struct {
	ContributionToken    string
	OfferingToken        string
	ContributionDecimals int32
	OfferingDecimals     int32
	OpenTime             uint64
	CloseTime            uint64
	ReleasedPercent      uint64
	NextRelease          uint64
	Admin                string
	NumberPools          int
	PreparationSeconds   uint64
	FinalWithdrawDelay   uint64
}

type StorageConfig struct {
	SnapshotDir string
}

type SnapshotConfig struct {
	// Dir receives exported snapshots and their manifest.
	Dir string
	// Input is a snapshot path or url to restore. Empty selects the newest one in Dir.
	Input         string
	PublicKeyFile string
}

type ScenarioConfig struct {
	Path string
	// OfferingId keys the offering in storage.
	OfferingId string
	ReportDir  string
	EventsFile string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type PrometheusConfig struct {
	Enabled bool
	// Textfile receives the gathered metrics in text exposition format once a run ends.
	Textfile string
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

// KebabToSnakeCase converts a flag name into the key viper stores it under.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

// NewConfig reads the bound flags and IFO_ prefixed environment variables.
func NewConfig() *Config {
	numberPools := viper.GetInt(normalizeFlagName(OfferingNumberPools))
	if numberPools == 0 {
		numberPools = DefaultNumberPools
	}

	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		OfferingConfig: OfferingConfig{
			ContributionToken:    viper.GetString(normalizeFlagName(OfferingContributionToken)),
			OfferingToken:        viper.GetString(normalizeFlagName(OfferingOfferingToken)),
			ContributionDecimals: viper.GetInt32(normalizeFlagName(OfferingContributionDecimals)),
			OfferingDecimals:     viper.GetInt32(normalizeFlagName(OfferingOfferingDecimals)),
			OpenTime:             viper.GetUint64(normalizeFlagName(OfferingOpenTime)),
			CloseTime:            viper.GetUint64(normalizeFlagName(OfferingCloseTime)),
			ReleasedPercent:      viper.GetUint64(normalizeFlagName(OfferingReleasedPercent)),
			NextRelease:          viper.GetUint64(normalizeFlagName(OfferingNextRelease)),
			Admin:                viper.GetString(normalizeFlagName(OfferingAdmin)),
			NumberPools:          numberPools,
			PreparationSeconds:   viper.GetUint64(normalizeFlagName(OfferingPreparationSeconds)),
			FinalWithdrawDelay:   viper.GetUint64(normalizeFlagName(OfferingFinalWithdrawDelay)),
		},

		StorageConfig: StorageConfig{
			SnapshotDir: viper.GetString(normalizeFlagName(StorageSnapshotDir)),
		},

		SnapshotConfig: SnapshotConfig{
			Dir:           viper.GetString(normalizeFlagName(SnapshotDir)),
			Input:         viper.GetString(normalizeFlagName(SnapshotInput)),
			PublicKeyFile: viper.GetString(normalizeFlagName(SnapshotPublicKeyFile)),
		},

		ScenarioConfig: ScenarioConfig{
			Path:       viper.GetString(normalizeFlagName(ScenarioPath)),
			OfferingId: viper.GetString(normalizeFlagName(ScenarioOfferingId)),
			ReportDir:  viper.GetString(normalizeFlagName(ScenarioReportDir)),
			EventsFile: viper.GetString(normalizeFlagName(ScenarioEventsFile)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled:  viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Textfile: viper.GetString(normalizeFlagName(PrometheusTextfile)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},
	}
}

// IsDatabaseConfigured reports whether enough connection details were provided to reach postgres.
func (c *Config) IsDatabaseConfigured() bool {
	return c.DatabaseConfig.Host != "" && c.DatabaseConfig.DbName != ""
}
