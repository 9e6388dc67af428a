package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: usage records
	`CREATE TABLE IF NOT EXISTS usage_records (
		id                TEXT PRIMARY KEY,
		org_id            TEXT NOT NULL,
		provider          TEXT NOT NULL,
		model             TEXT NOT NULL,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens      INTEGER NOT NULL DEFAULT 0,
		cost              REAL NOT NULL DEFAULT 0.0,
		avg_latency_ms    REAL,
		temperature       REAL,
		top_p             REAL,
		endpoint_tag      TEXT NOT NULL DEFAULT '',
		task_intent       TEXT NOT NULL DEFAULT 'general_chat',
		timestamp         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_usage_org ON usage_records(org_id);
	CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage_records(provider);
	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// Migration 2: suggestions and A/B tests
	`CREATE TABLE IF NOT EXISTS suggestions (
		id                TEXT PRIMARY KEY,
		org_id            TEXT NOT NULL,
		rule_id           TEXT NOT NULL,
		usage_id          TEXT NOT NULL DEFAULT '',
		type              TEXT NOT NULL,
		title             TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		impact            REAL NOT NULL DEFAULT 0.0,
		impact_type       TEXT NOT NULL CHECK(impact_type IN ('daily', 'monthly', 'annual')),
		quality_delta_pct REAL,
		status            TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'implemented', 'dismissed')),
		details           TEXT,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		implemented_at    DATETIME,
		dismissed_at      DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_suggestions_org_status ON suggestions(org_id, status);
	CREATE INDEX IF NOT EXISTS idx_suggestions_created ON suggestions(created_at);

	CREATE TABLE IF NOT EXISTS ab_tests (
		id                   TEXT PRIMARY KEY,
		org_id               TEXT NOT NULL,
		current_model        TEXT NOT NULL,
		candidate_model      TEXT NOT NULL,
		endpoint_tag         TEXT NOT NULL DEFAULT '',
		sample_size          INTEGER NOT NULL,
		quality_delta_pct    REAL NOT NULL,
		avg_latency_delta_ms REAL NOT NULL,
		success              BOOLEAN NOT NULL,
		created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ab_tests_org ON ab_tests(org_id);`,

	// Migration 3: rule settings
	`CREATE TABLE IF NOT EXISTS rule_settings (
		rule_id    TEXT PRIMARY KEY,
		enabled    BOOLEAN NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		if err := applyMigration(db, i+1, migrations[i]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int, stmt string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	if _, err := tx.Exec(stmt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("run migration %d: %w", version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}
