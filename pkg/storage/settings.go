package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

func (s *SQLite) SetRuleSetting(ctx context.Context, setting model.RuleSetting) error {
	if setting.UpdatedAt.IsZero() {
		setting.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rule_settings (rule_id, enabled, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(rule_id) DO UPDATE SET
		   enabled = excluded.enabled,
		   updated_at = excluded.updated_at`,
		setting.RuleID, setting.Enabled, setting.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set rule setting: %w", err)
	}
	return nil
}

func (s *SQLite) ListRuleSettings(ctx context.Context) ([]model.RuleSetting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, enabled, updated_at FROM rule_settings ORDER BY rule_id`)
	if err != nil {
		return nil, fmt.Errorf("list rule settings: %w", err)
	}
	defer rows.Close()

	var settings []model.RuleSetting
	for rows.Next() {
		var rs model.RuleSetting
		if err := rows.Scan(&rs.RuleID, &rs.Enabled, &rs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule setting row: %w", err)
		}
		settings = append(settings, rs)
	}
	return settings, rows.Err()
}
