package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    currency TEXT NOT NULL,
    target_amount REAL NOT NULL,
    deadline INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS monthly_plans (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL,
    month_label TEXT NOT NULL,
    required_monthly REAL NOT NULL,
    remaining_amount REAL NOT NULL,
    months_remaining INTEGER NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    state TEXT NOT NULL,
    custom_amount REAL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (goal_id, month_label),
    FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS execution_records (
    id TEXT PRIMARY KEY,
    month_label TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    started_at INTEGER,
    completed_at INTEGER,
    can_undo_until INTEGER,
    total_planned REAL NOT NULL DEFAULT 0,
    active_goal_count INTEGER NOT NULL DEFAULT 0,
    goal_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS execution_goal_snapshots (
    record_id TEXT NOT NULL,
    goal_id TEXT NOT NULL,
    goal_name TEXT NOT NULL,
    planned_amount REAL NOT NULL,
    currency TEXT NOT NULL,
    PRIMARY KEY (record_id, goal_id),
    FOREIGN KEY (record_id) REFERENCES execution_records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL,
    asset_id TEXT NOT NULL,
    amount REAL NOT NULL,
    asset_amount REAL NOT NULL,
    exchange_rate REAL NOT NULL,
    date INTEGER NOT NULL,
    month_label TEXT NOT NULL,
    execution_record_id TEXT,
    comment TEXT,
    FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS completed_executions (
    id TEXT PRIMARY KEY,
    record_id TEXT NOT NULL UNIQUE,
    total_contributed REAL NOT NULL,
    completion REAL NOT NULL,
    closed_at INTEGER NOT NULL,
    FOREIGN KEY (record_id) REFERENCES execution_records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS completed_goal_totals (
    completed_id TEXT NOT NULL,
    goal_id TEXT NOT NULL,
    planned REAL NOT NULL,
    contributed REAL NOT NULL,
    fulfillment REAL NOT NULL,
    PRIMARY KEY (completed_id, goal_id),
    FOREIGN KEY (completed_id) REFERENCES completed_executions(id) ON DELETE CASCADE
);

-- At most one non-closed execution record per month.
CREATE UNIQUE INDEX IF NOT EXISTS idx_execution_records_open
    ON execution_records(month_label) WHERE status != 'closed';

CREATE INDEX IF NOT EXISTS idx_monthly_plans_month ON monthly_plans(month_label);
CREATE INDEX IF NOT EXISTS idx_contributions_goal ON contributions(goal_id);
CREATE INDEX IF NOT EXISTS idx_contributions_record ON contributions(execution_record_id);
CREATE INDEX IF NOT EXISTS idx_execution_records_month ON execution_records(month_label);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
