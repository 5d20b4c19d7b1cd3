// Package dbtest opens throwaway sqlite databases carrying the marketplace
// schema for repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE merchant_profiles (
  id TEXT PRIMARY KEY,
  display_name TEXT NOT NULL,
  wallet_balance NUMERIC NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price NUMERIC NOT NULL,
  sale_price NUMERIC,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  free_shipping INTEGER NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_reference TEXT,
  payment_proof_ref TEXT,
  delivery_type TEXT NOT NULL,
  address TEXT,
  currency TEXT NOT NULL DEFAULT 'USD',
  platform_fee_pct NUMERIC NOT NULL,
  grand_total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'submitted',
  submission_deadline DATETIME NOT NULL,
  rejection_note TEXT,
  verified_at DATETIME,
  verified_by TEXT,
  rejected_at DATETIME,
  expired_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE settlement_units (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  merchant_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  items TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  shipping_cost NUMERIC NOT NULL,
  platform_fee NUMERIC NOT NULL,
  merchant_amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'submitted',
  shipping_guide_ref TEXT,
  review TEXT,
  buyer_review TEXT,
  payout_status TEXT,
  dispute_reason TEXT,
  dispute_description TEXT,
  dispute_opened_at DATETIME,
  dispute_resolution TEXT,
  dispute_note TEXT,
  dispute_resolved_at DATETIME,
  dispute_resolved_by TEXT,
  processing_at DATETIME,
  shipped_at DATETIME,
  released_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_settlement_units_order_merchant ON settlement_units (order_id, merchant_id);`,
	`CREATE TABLE payout_requests (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  note TEXT,
  processed_by TEXT,
  requested_at DATETIME NOT NULL,
  processed_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_payout_requests_one_pending ON payout_requests (merchant_id) WHERE status = 'pending';`,
	`CREATE TABLE ledger_events (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  order_id TEXT,
  unit_id TEXT,
  payout_request_id TEXT,
  actor_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_ledger_events_unit_release ON ledger_events (unit_id) WHERE type = 'release_credit';`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  recipient_role TEXT NOT NULL,
  template TEXT NOT NULL,
  reference_id TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a fresh in-memory database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:escrow_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes writes.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
