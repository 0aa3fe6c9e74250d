package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/postgres/migrations"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

var validDbName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig contains everything needed to open a connection.
type PostgresConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DbName   string
	// CreateDbIfNotExists creates DbName through the server's root database first.
	CreateDbIfNotExists bool
	SchemaName          string
	// SSLMode is one of disable, require, verify-ca, verify-full
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type Postgres struct {
	Db *sql.DB
}

// GetTestPostgresDatabase creates a uniquely named database with every migration applied.
// It returns the database name so the caller can tear it down.
func GetTestPostgresDatabase(cfg config.DatabaseConfig, gCfg *config.Config, l *zap.Logger) (
	string,
	*sql.DB,
	*gorm.DB,
	error,
) {
	testDbName, err := tests.GenerateTestDbName()
	if err != nil {
		return testDbName, nil, nil, err
	}
	cfg.DbName = testDbName

	pgConfig := PostgresConfigFromDbConfig(&cfg)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig, l)
	if err != nil {
		return testDbName, nil, nil, err
	}

	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return testDbName, nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, gCfg)
	if err = migrator.MigrateAll(); err != nil {
		return testDbName, nil, nil, err
	}
	return testDbName, pg.Db, grm, nil
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:        dbCfg.Host,
		Port:        dbCfg.Port,
		Username:    dbCfg.User,
		Password:    dbCfg.Password,
		DbName:      dbCfg.DbName,
		SchemaName:  dbCfg.SchemaName,
		SSLMode:     dbCfg.SSLMode,
		SSLCert:     dbCfg.SSLCert,
		SSLKey:      dbCfg.SSLKey,
		SSLRootCert: dbCfg.SSLRootCert,
	}
}

// getPostgresRootConnection connects to the server's 'postgres' database for
// administrative statements.
func getPostgresRootConnection(cfg *PostgresConfig) (*sql.DB, error) {
	rootCfg := *cfg
	rootCfg.DbName = "postgres"
	rootCfg.SchemaName = ""

	connStr, err := getPostgresConnectionString(&rootCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres connection string")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to postgres database")
	}
	return db, nil
}

// getPostgresConnectionString renders cfg as a libpq key/value connection string.
func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	sslMode := defaultSSLMode
	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	parts := []string{fmt.Sprintf("host=%s", cfg.Host)}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", cfg.DbName),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("sslmode=%s", sslMode),
		"TimeZone=UTC",
	)
	if cfg.SchemaName != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", cfg.SchemaName))
	}

	// certificates only apply once ssl is on
	if sslMode != defaultSSLMode {
		certs := []struct{ key, value string }{
			{"sslcert", cfg.SSLCert},
			{"sslkey", cfg.SSLKey},
			{"sslrootcert", cfg.SSLRootCert},
		}
		for _, c := range certs {
			if c.value != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", c.key, c.value))
			}
		}
	}
	return strings.Join(parts, " "), nil
}

// DeleteTestDatabase drops dbName.
func DeleteTestDatabase(cfg *PostgresConfig, dbName string, l *zap.Logger) error {
	if !validDbName.MatchString(dbName) {
		return fmt.Errorf("invalid database name '%s'", dbName)
	}
	rootDb, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer rootDb.Close()

	if _, err = rootDb.Exec(fmt.Sprintf("DROP DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		return errors.Wrap(err, "error dropping database")
	}
	l.Sugar().Infow("Dropped database", zap.String("dbName", dbName))
	return nil
}

func CreateDatabaseIfNotExists(cfg *PostgresConfig, l *zap.Logger) error {
	if !validDbName.MatchString(cfg.DbName) {
		return fmt.Errorf("invalid database name '%s'", cfg.DbName)
	}
	rootDb, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer rootDb.Close()

	var exists bool
	err = rootDb.QueryRow(`SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "error checking if database exists")
	}
	if exists {
		return nil
	}

	if _, err = rootDb.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(cfg.DbName))); err != nil {
		return errors.Wrap(err, "error creating database")
	}
	l.Sugar().Infow("Created database", zap.String("dbName", cfg.DbName))
	return nil
}

// NewPostgres opens, but does not ping, a connection described by cfg.
func NewPostgres(cfg *PostgresConfig, l *zap.Logger) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg, l); err != nil {
			return nil, errors.Wrap(err, "failed to create database if not exists")
		}
	}
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres connection string")
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup database")
	}
	return &Postgres{
		Db: db,
	}, nil
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup gorm")
	}
	return db, nil
}

// TeardownTestDatabase closes db and drops dbname.
func TeardownTestDatabase(dbname string, cfg *config.DatabaseConfig, db *gorm.DB, l *zap.Logger) {
	rawDb, _ := db.DB()
	_ = rawDb.Close()

	if err := DeleteTestDatabase(PostgresConfigFromDbConfig(cfg), dbname, l); err != nil {
		l.Sugar().Errorw("Failed to delete test database", zap.Error(err))
	}
}
