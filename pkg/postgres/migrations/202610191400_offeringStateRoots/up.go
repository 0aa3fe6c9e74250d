package _202610191400_offeringStateRoots

import (
	"database/sql"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	query := `alter table offerings add column if not exists state_root varchar not null default ''`

	res := grm.Exec(query)
	return res.Error
}

func (m *Migration) GetName() string {
	return "202610191400_offeringStateRoots"
}
