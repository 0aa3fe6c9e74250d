package migrations

import (
	"database/sql"
	"time"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	_202610190900_offeringTables "github.com/Layr-Labs/offering-ledger/pkg/postgres/migrations/202610190900_offeringTables"
	_202610191400_offeringStateRoots "github.com/Layr-Labs/offering-ledger/pkg/postgres/migrations/202610191400_offeringStateRoots"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

// Migrations records applied migrations by name.
type Migrations struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
	}
}

// Ordered by name; a migration's position never changes once released.
func allMigrations() []Migration {
	return []Migration{
		&_202610190900_offeringTables.Migration{},
		&_202610191400_offeringStateRoots.Migration{},
	}
}

func (m *Migrator) MigrateAll() error {
	err := m.GDb.Exec(`create table if not exists migrations (
		name text primary key,
		created_at timestamp with time zone default current_timestamp
	)`).Error
	if err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	for _, migration := range allMigrations() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	m.Logger.Sugar().Infow("Applied all migrations")
	return nil
}

// Migrate applies migration unless it has already been recorded.
func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var count int64
	if err := m.GDb.Model(&Migrations{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return errors.Wrapf(err, "failed to check migration %s", name)
	}
	if count > 0 {
		m.Logger.Sugar().Debugw("Migration already run", zap.String("migrationName", name))
		return nil
	}

	m.Logger.Sugar().Infow("Running migration", zap.String("migrationName", name))
	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration", zap.String("migrationName", name), zap.Error(err))
		return errors.Wrapf(err, "failed to run migration %s", name)
	}

	if err := m.GDb.Create(&Migrations{Name: name, CreatedAt: time.Now()}).Error; err != nil {
		return errors.Wrapf(err, "failed to record migration %s", name)
	}
	return nil
}
