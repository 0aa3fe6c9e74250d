package _202610190900_offeringTables

import (
	"database/sql"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists offerings (
			offering_id text primary key,
			version text not null,
			contribution_token varchar not null,
			offering_token varchar not null,
			custody varchar not null,
			admin varchar not null,
			open_time bigint not null,
			close_time bigint not null,
			preparation_seconds bigint not null,
			final_withdraw_delay bigint not null,
			released_percent bigint not null,
			next_release_timestamp bigint not null,
			raised_withdrawn boolean not null default false,
			has_vault boolean not null default false,
			min_vault_balance numeric not null,
			number_pools integer not null,
			created_at timestamp with time zone default current_timestamp
		)`,
		`create table if not exists offering_pools (
			offering_id text not null references offerings(offering_id) on delete cascade,
			pool_id smallint not null,
			offering_amount numeric not null,
			raising_amount numeric not null,
			per_user_limit numeric not null,
			has_tax boolean not null default false,
			total_contributed numeric not null,
			primary key (offering_id, pool_id)
		)`,
		`create table if not exists user_positions (
			offering_id text not null references offerings(offering_id) on delete cascade,
			user_address varchar not null,
			pool_id smallint not null,
			amount_contributed numeric not null,
			claimed_offering_amount numeric not null,
			has_harvested boolean not null default false,
			primary key (offering_id, user_address, pool_id)
		)`,
	}
	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610190900_offeringTables"
}
