package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

func (s *SQLite) SaveABTest(ctx context.Context, t *model.ABTest) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ab_tests (id, org_id, current_model, candidate_model, endpoint_tag, sample_size,
		   quality_delta_pct, avg_latency_delta_ms, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrgID, t.CurrentModel, t.CandidateModel, t.EndpointTag, t.SampleSize,
		t.QualityDeltaPct, t.AvgLatencyDeltaMs, t.Success, t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert ab test: %w", err)
	}
	return nil
}

func (s *SQLite) ListABTests(ctx context.Context, orgID string) ([]model.ABTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, current_model, candidate_model, endpoint_tag, sample_size,
		   quality_delta_pct, avg_latency_delta_ms, success, created_at
		 FROM ab_tests WHERE org_id = ? ORDER BY created_at DESC, rowid DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list ab tests: %w", err)
	}
	defer rows.Close()

	var tests []model.ABTest
	for rows.Next() {
		var t model.ABTest
		if err := rows.Scan(&t.ID, &t.OrgID, &t.CurrentModel, &t.CandidateModel, &t.EndpointTag,
			&t.SampleSize, &t.QualityDeltaPct, &t.AvgLatencyDeltaMs, &t.Success, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ab test row: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
