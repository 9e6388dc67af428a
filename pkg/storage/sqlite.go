package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the API read while the proxy writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

const usageColumns = `id, org_id, provider, model, prompt_tokens, completion_tokens, total_tokens,
	cost, avg_latency_ms, temperature, top_p, endpoint_tag, task_intent, timestamp`

func (s *SQLite) RecordUsage(ctx context.Context, r *model.UsageRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.TaskIntent == "" {
		r.TaskIntent = model.IntentGeneralChat
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (`+usageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrgID, r.Provider, r.Model,
		r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.Cost,
		nullFloat(r.AvgLatencyMs), nullFloat(r.Temperature), nullFloat(r.TopP),
		r.EndpointTag, string(r.TaskIntent), r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (s *SQLite) QueryUsage(ctx context.Context, filter model.UsageFilter) ([]model.UsageRecord, error) {
	query := "SELECT " + usageColumns + " FROM usage_records"
	where, args := buildUsageWhere(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var r model.UsageRecord
		var latency, temp, topP sql.NullFloat64
		var intent string
		if err := rows.Scan(&r.ID, &r.OrgID, &r.Provider, &r.Model,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.Cost,
			&latency, &temp, &topP, &r.EndpointTag, &intent, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		r.AvgLatencyMs = floatPtr(latency)
		r.Temperature = floatPtr(temp)
		r.TopP = floatPtr(topP)
		r.TaskIntent = model.TaskIntent(intent)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildUsageWhere constructs a SQL WHERE clause from a UsageFilter.
func buildUsageWhere(filter model.UsageFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.OrgID != "" {
		conditions = append(conditions, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, strings.ToLower(filter.Provider))
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.TaskIntent != "" {
		conditions = append(conditions, "task_intent = ?")
		args = append(args, string(filter.TaskIntent))
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime.UTC())
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.EndTime.UTC())
	}

	return strings.Join(conditions, " AND "), args
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
