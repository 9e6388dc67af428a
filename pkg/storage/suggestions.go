package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

const suggestionColumns = `id, org_id, rule_id, usage_id, type, title, description, impact, impact_type,
	quality_delta_pct, status, details, created_at, implemented_at, dismissed_at`

func (s *SQLite) SaveSuggestion(ctx context.Context, sg *model.Suggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	if sg.Status == "" {
		sg.Status = model.StatusActive
	}

	details, err := encodeDetails(sg.Details)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suggestions (`+suggestionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.OrgID, sg.RuleID, sg.UsageID, string(sg.Type), sg.Title, sg.Description,
		sg.Impact, string(sg.ImpactType), nullFloat(sg.QualityDeltaPct), string(sg.Status),
		details, sg.CreatedAt.UTC(), nullTime(sg.ImplementedAt), nullTime(sg.DismissedAt),
	)
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (s *SQLite) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+suggestionColumns+" FROM suggestions WHERE id = ?", id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrSuggestionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return sg, nil
}

func (s *SQLite) ListSuggestions(ctx context.Context, filter model.SuggestionFilter) ([]model.Suggestion, error) {
	var conditions []string
	var args []any
	if filter.OrgID != "" {
		conditions = append(conditions, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := "SELECT " + suggestionColumns + " FROM suggestions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion row: %w", err)
		}
		out = append(out, *sg)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateSuggestionStatus(ctx context.Context, sg *model.Suggestion) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ?, implemented_at = ?, dismissed_at = ?
		 WHERE id = ? AND status = ?`,
		string(sg.Status), nullTime(sg.ImplementedAt), nullTime(sg.DismissedAt),
		sg.ID, string(model.StatusActive),
	)
	if err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: either the id is unknown or another writer got there first.
	if _, err := s.GetSuggestion(ctx, sg.ID); err != nil {
		return err
	}
	return fmt.Errorf("%w: suggestion %s is no longer active", model.ErrInvalidTransition, sg.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (*model.Suggestion, error) {
	var sg model.Suggestion
	var typ, impactType, status string
	var quality sql.NullFloat64
	var details sql.NullString
	var implementedAt, dismissedAt sql.NullTime

	if err := row.Scan(&sg.ID, &sg.OrgID, &sg.RuleID, &sg.UsageID, &typ, &sg.Title, &sg.Description,
		&sg.Impact, &impactType, &quality, &status, &details, &sg.CreatedAt,
		&implementedAt, &dismissedAt); err != nil {
		return nil, err
	}

	sg.Type = model.SuggestionType(typ)
	sg.ImpactType = model.ImpactType(impactType)
	sg.Status = model.SuggestionStatus(status)
	sg.QualityDeltaPct = floatPtr(quality)
	sg.ImplementedAt = timePtr(implementedAt)
	sg.DismissedAt = timePtr(dismissedAt)

	if details.Valid && details.String != "" {
		var d model.Details
		if err := json.Unmarshal([]byte(details.String), &d); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		sg.Details = &d
	}
	return &sg, nil
}

func encodeDetails(d *model.Details) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return string(b), nil
}
