package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createWalletTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE custodial_wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		provider_wallet_id TEXT NOT NULL,
		address TEXT NOT NULL,
		chain TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE linked_wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		address TEXT NOT NULL,
		chain TEXT NOT NULL,
		is_primary BOOLEAN,
		created_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createLedgerTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE ledger_balances (
		user_id TEXT PRIMARY KEY,
		gold INTEGER NOT NULL DEFAULT 0,
		diamond INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		provider_tx_id TEXT,
		chain_tx_hash TEXT,
		created_at DATETIME
	);`)
}

func createSettlementTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE settlement_records (
		id TEXT PRIMARY KEY,
		provider_tx_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		provider_wallet_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		stablecoin_amount TEXT NOT NULL,
		diamond_amount INTEGER NOT NULL,
		status TEXT NOT NULL,
		chain_tx_hash TEXT,
		error_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE purchase_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		settlement_id TEXT NOT NULL,
		provider_tx_id TEXT NOT NULL,
		diamond_amount INTEGER NOT NULL,
		stablecoin_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		chain_tx_hash TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	createWalletTables(t, db)
	createLedgerTables(t, db)
	createSettlementTables(t, db)
}
