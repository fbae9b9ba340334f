package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Money columns hold integer cents.
const schema = `
CREATE TABLE IF NOT EXISTS operators (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'viewer' CHECK (role IN ('admin', 'operator', 'viewer')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_operators_username_active
    ON operators(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id         INTEGER PRIMARY KEY,
    title      TEXT NOT NULL,
    asin       TEXT NOT NULL DEFAULT '',
    brand      TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id                INTEGER PRIMARY KEY,
    product_id        INTEGER NOT NULL REFERENCES products(id),
    sku               TEXT NOT NULL DEFAULT '',
    item_condition    TEXT NOT NULL DEFAULT '',
    purchase_cost     INTEGER NOT NULL CHECK (purchase_cost >= 0),
    extra_costs       INTEGER NOT NULL DEFAULT 0 CHECK (extra_costs >= 0),
    status            TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN (
                          'AVAILABLE', 'FBA_INBOUND', 'FBA_WAREHOUSE', 'RESERVED',
                          'SOLD', 'RETURNED', 'DISCREPANCY', 'LOST')),
    pricing_mode      TEXT NOT NULL DEFAULT 'AUTO' CHECK (pricing_mode IN ('AUTO', 'MANUAL')),
    manual_price      INTEGER CHECK (manual_price >= 0),
    recommended_price INTEGER,
    effective_price   INTEGER,
    price_source      TEXT NOT NULL DEFAULT 'UNPRICED' CHECK (price_source IN (
                          'AUTO_MARKET', 'AUTO_FLOOR', 'MANUAL', 'UNPRICED')),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (pricing_mode = 'AUTO' OR manual_price IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);

CREATE TABLE IF NOT EXISTS market_snapshots (
    item_id         INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    condition_price INTEGER CHECK (condition_price >= 0),
    generic_price   INTEGER CHECK (generic_price >= 0),
    offer_count     INTEGER NOT NULL DEFAULT 0,
    sales_rank      INTEGER,
    captured_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shipments (
    id            INTEGER PRIMARY KEY,
    label         TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'SHIPPED', 'RECEIVED')),
    shipping_cost INTEGER NOT NULL DEFAULT 0 CHECK (shipping_cost >= 0),
    distribution  TEXT NOT NULL DEFAULT 'EQUAL' CHECK (distribution IN ('EQUAL', 'PURCHASE_PRICE_WEIGHTED')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    shipped_at    DATETIME,
    received_at   DATETIME
);

CREATE TABLE IF NOT EXISTS shipment_lines (
    shipment_id    INTEGER NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
    item_id        INTEGER NOT NULL REFERENCES items(id),
    position       INTEGER NOT NULL,
    allocated_cost INTEGER NOT NULL DEFAULT 0 CHECK (allocated_cost >= 0),
    disposition    TEXT CHECK (disposition IN ('RECEIVED', 'DISCREPANCY', 'LOST')),
    note           TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (shipment_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_shipment_lines_item ON shipment_lines(item_id);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
