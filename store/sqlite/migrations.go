package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the plan ledger store (SQLite).
var Migrations = migrate.NewGroup("planledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_planledger_state",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS planledger_state (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS planledger_state`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_planledger_history",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS planledger_history (
    id        TEXT PRIMARY KEY,
    key       TEXT NOT NULL,
    tx_id     TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL DEFAULT (datetime('now')),
    seq       INTEGER NOT NULL DEFAULT 0,
    is_delete INTEGER NOT NULL DEFAULT 0,
    value     BLOB
);

CREATE INDEX IF NOT EXISTS idx_planledger_history_key ON planledger_history (key, timestamp, seq);
CREATE INDEX IF NOT EXISTS idx_planledger_history_tx ON planledger_history (tx_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS planledger_history`)
				return err
			},
		},
	)
}
