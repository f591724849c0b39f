package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type StepRepository struct {
	db *sql.DB
}

func NewStepRepository(db *sql.DB) *StepRepository {
	return &StepRepository{db: db}
}

func (r *StepRepository) ListSteps(ctx context.Context, moduleID string) ([]domain.ModuleStep, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, module_id, step_type, title, order_index, status, completed_at, COALESCE(completed_by, '')
FROM module_steps
WHERE module_id = $1
ORDER BY order_index ASC
`, moduleID)
	if err != nil {
		return nil, classify("list steps", err)
	}
	defer rows.Close()

	out := make([]domain.ModuleStep, 0)
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, classify("scan step", err)
		}
		out = append(out, step)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate steps", err)
	}
	return out, nil
}

func (r *StepRepository) GetStep(ctx context.Context, stepID string) (*domain.ModuleStep, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, module_id, step_type, title, order_index, status, completed_at, COALESCE(completed_by, '')
FROM module_steps
WHERE id = $1
`, stepID)

	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get step", fmt.Errorf("step %s", stepID))
		}
		return nil, classify("get step", err)
	}

	responses, err := r.listResponses(ctx, stepID)
	if err != nil {
		return nil, err
	}
	step.Responses = responses
	return &step, nil
}

func (r *StepRepository) CreateStep(ctx context.Context, step *domain.ModuleStep) error {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	if step.Status == "" {
		step.Status = domain.StepNotStarted
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO module_steps (id, module_id, step_type, title, order_index, status)
VALUES ($1,$2,$3,$4,$5,$6)
`, step.ID, step.ModuleID, step.StepType, step.Title, step.OrderIndex, string(step.Status))
	if err != nil {
		return classify("create step", err)
	}
	return nil
}

func (r *StepRepository) UpdateStepStatus(ctx context.Context, stepID string, status domain.StepStatus, actor string) error {
	var result sql.Result
	var err error
	if status == domain.StepCompleted {
		result, err = r.db.ExecContext(ctx, `
UPDATE module_steps
SET status = $2, completed_at = $3, completed_by = $4
WHERE id = $1
`, stepID, string(status), time.Now().UTC(), actor)
	} else {
		result, err = r.db.ExecContext(ctx, `
UPDATE module_steps
SET status = $2
WHERE id = $1
`, stepID, string(status))
	}
	if err != nil {
		return classify("update step status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify("update step status rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update step status", fmt.Errorf("step %s", stepID))
	}
	return nil
}

// SaveResponse appends a new response version in a single transaction: the
// previous latest row is demoted and the insert computes version = max+1
// server-side, with UNIQUE (step_id, version) as the backstop against
// concurrent writers.
func (r *StepRepository) SaveResponse(ctx context.Context, stepID, content, author string) (*domain.StepResponse, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin save response", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE step_responses
SET is_latest = FALSE
WHERE step_id = $1 AND is_latest
`, stepID); err != nil {
		return nil, classify("demote latest response", err)
	}

	response := domain.StepResponse{
		ID:        uuid.NewString(),
		StepID:    stepID,
		Content:   content,
		IsLatest:  true,
		CreatedBy: author,
		CreatedAt: time.Now().UTC(),
	}

	row := tx.QueryRowContext(ctx, `
INSERT INTO step_responses (id, step_id, content, version, is_latest, created_by, created_at)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(version), 0) + 1 FROM step_responses WHERE step_id = $2), TRUE, $4, $5)
RETURNING version
`, response.ID, stepID, content, author, response.CreatedAt)
	if err := row.Scan(&response.Version); err != nil {
		return nil, classify("insert response", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit save response", err)
	}
	return &response, nil
}

func (r *StepRepository) DeleteStep(ctx context.Context, stepID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM module_steps WHERE id = $1`, stepID)
	if err != nil {
		return classify("delete step", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify("delete step rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete step", fmt.Errorf("step %s", stepID))
	}
	return nil
}

func (r *StepRepository) listResponses(ctx context.Context, stepID string) ([]domain.StepResponse, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, step_id, content, version, is_latest, created_by, created_at
FROM step_responses
WHERE step_id = $1
ORDER BY version ASC
`, stepID)
	if err != nil {
		return nil, classify("list responses", err)
	}
	defer rows.Close()

	out := make([]domain.StepResponse, 0)
	for rows.Next() {
		var resp domain.StepResponse
		if err := rows.Scan(
			&resp.ID,
			&resp.StepID,
			&resp.Content,
			&resp.Version,
			&resp.IsLatest,
			&resp.CreatedBy,
			&resp.CreatedAt,
		); err != nil {
			return nil, classify("scan response", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate responses", err)
	}
	return out, nil
}

type stepScanner interface {
	Scan(dest ...interface{}) error
}

func scanStep(row stepScanner) (domain.ModuleStep, error) {
	var step domain.ModuleStep
	var status string
	err := row.Scan(
		&step.ID,
		&step.ModuleID,
		&step.StepType,
		&step.Title,
		&step.OrderIndex,
		&status,
		&step.CompletedAt,
		&step.CompletedBy,
	)
	if err != nil {
		return domain.ModuleStep{}, err
	}
	step.Status = domain.StepStatus(status)
	return step, nil
}
