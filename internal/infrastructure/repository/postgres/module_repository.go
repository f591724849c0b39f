package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/catalog"
	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type ModuleRepository struct {
	db *sql.DB
}

func NewModuleRepository(db *sql.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// GetModule loads a module with its steps and all step responses eagerly.
func (r *ModuleRepository) GetModule(ctx context.Context, id string) (*domain.Module, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, module_type, title, status, current_step_id, last_activity_at, metadata, created_at, updated_at
FROM modules
WHERE id = $1
`, id)

	module, err := scanModule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get module", fmt.Errorf("module %s", id))
		}
		return nil, classify("get module", err)
	}

	if err := r.attachSteps(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

// GetModuleByType returns (nil, nil) when no module exists for the pair;
// a missing module is a normal state, not an error.
func (r *ModuleRepository) GetModuleByType(ctx context.Context, projectID string, moduleType domain.ModuleType) (*domain.Module, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, module_type, title, status, current_step_id, last_activity_at, metadata, created_at, updated_at
FROM modules
WHERE project_id = $1 AND module_type = $2
`, projectID, string(moduleType))

	module, err := scanModule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get module by type", err)
	}

	if err := r.attachSteps(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

// GetOrCreate returns the existing module for (project, type) or creates the
// module together with its full configured step set in one transaction. The
// ON CONFLICT guard makes racing callers converge on a single module row.
func (r *ModuleRepository) GetOrCreate(ctx context.Context, projectID string, moduleType domain.ModuleType, actor string) (*domain.Module, error) {
	existing, err := r.GetModuleByType(ctx, projectID, moduleType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	def, err := catalog.Lookup(moduleType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	module := &domain.Module{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		Type:           moduleType,
		Title:          def.Title,
		Status:         domain.ModuleDraft,
		LastActivityAt: now,
		Metadata:       map[string]any{"created_by": actor},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin create module", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	metadataJSON, err := json.Marshal(module.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal module metadata: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
INSERT INTO modules (id, project_id, module_type, title, status, current_step_id, last_activity_at, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULL,$6,$7,$6,$6)
ON CONFLICT (project_id, module_type) DO NOTHING
`, module.ID, projectID, string(moduleType), module.Title, string(module.Status), now, metadataJSON)
	if err != nil {
		return nil, classify("insert module", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, classify("insert module rows affected", err)
	}
	if inserted == 0 {
		// Another caller won the race; fall back to the idempotent read.
		_ = tx.Rollback()
		winner, err := r.GetModuleByType(ctx, projectID, moduleType)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, domain.WrapError(domain.ErrStorage, "get or create module", errors.New("conflicting module vanished"))
		}
		return winner, nil
	}

	for i, stepDef := range def.Steps {
		step := domain.ModuleStep{
			ID:         uuid.NewString(),
			ModuleID:   module.ID,
			StepType:   stepDef.StepType,
			Title:      stepDef.Title,
			OrderIndex: i,
			Status:     domain.StepNotStarted,
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO module_steps (id, module_id, step_type, title, order_index, status)
VALUES ($1,$2,$3,$4,$5,$6)
`, step.ID, step.ModuleID, step.StepType, step.Title, step.OrderIndex, string(step.Status)); err != nil {
			return nil, classify("insert module step", err)
		}
		module.Steps = append(module.Steps, step)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit create module", err)
	}
	return module, nil
}

// UpdateModule applies a partial patch, always stamping last_activity_at.
func (r *ModuleRepository) UpdateModule(ctx context.Context, id string, patch domain.ModulePatch) error {
	setClauses := "last_activity_at = $2, updated_at = $2"
	args := []any{id, time.Now().UTC()}
	next := 3

	if patch.Title != nil {
		setClauses += fmt.Sprintf(", title = $%d", next)
		args = append(args, *patch.Title)
		next++
	}
	if patch.Status != nil {
		setClauses += fmt.Sprintf(", status = $%d", next)
		args = append(args, string(*patch.Status))
		next++
	}
	if patch.ClearCurrent {
		setClauses += ", current_step_id = NULL"
	} else if patch.CurrentStepID != nil {
		setClauses += fmt.Sprintf(", current_step_id = $%d", next)
		args = append(args, *patch.CurrentStepID)
		next++
	}
	if patch.Metadata != nil {
		metadataJSON, err := json.Marshal(patch.Metadata)
		if err != nil {
			return fmt.Errorf("marshal module metadata: %w", err)
		}
		setClauses += fmt.Sprintf(", metadata = $%d", next)
		args = append(args, metadataJSON)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE modules SET `+setClauses+` WHERE id = $1`, args...)
	if err != nil {
		return classify("update module", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify("update module rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update module", fmt.Errorf("module %s", id))
	}
	return nil
}

func (r *ModuleRepository) UpdateModuleStatus(ctx context.Context, id string, status domain.ModuleStatus) error {
	return r.UpdateModule(ctx, id, domain.ModulePatch{Status: &status})
}

// DeleteModule removes the module; steps and responses cascade at the
// storage layer.
func (r *ModuleRepository) DeleteModule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return classify("delete module", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify("delete module rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete module", fmt.Errorf("module %s", id))
	}
	return nil
}

func (r *ModuleRepository) attachSteps(ctx context.Context, module *domain.Module) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, module_id, step_type, title, order_index, status, completed_at, COALESCE(completed_by, '')
FROM module_steps
WHERE module_id = $1
ORDER BY order_index ASC
`, module.ID)
	if err != nil {
		return classify("list module steps", err)
	}
	defer rows.Close()

	stepIndex := make(map[string]int)
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return classify("scan module step", err)
		}
		stepIndex[step.ID] = len(module.Steps)
		module.Steps = append(module.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return classify("iterate module steps", err)
	}
	if len(module.Steps) == 0 {
		return nil
	}

	respRows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.step_id, r.content, r.version, r.is_latest, r.created_by, r.created_at
FROM step_responses r
JOIN module_steps s ON s.id = r.step_id
WHERE s.module_id = $1
ORDER BY r.step_id, r.version ASC
`, module.ID)
	if err != nil {
		return classify("list module responses", err)
	}
	defer respRows.Close()

	for respRows.Next() {
		var resp domain.StepResponse
		if err := respRows.Scan(
			&resp.ID,
			&resp.StepID,
			&resp.Content,
			&resp.Version,
			&resp.IsLatest,
			&resp.CreatedBy,
			&resp.CreatedAt,
		); err != nil {
			return classify("scan module response", err)
		}
		if i, ok := stepIndex[resp.StepID]; ok {
			module.Steps[i].Responses = append(module.Steps[i].Responses, resp)
		}
	}
	if err := respRows.Err(); err != nil {
		return classify("iterate module responses", err)
	}
	return nil
}

type moduleScanner interface {
	Scan(dest ...interface{}) error
}

func scanModule(row moduleScanner) (*domain.Module, error) {
	var module domain.Module
	var moduleType, status string
	var metadataRaw []byte
	err := row.Scan(
		&module.ID,
		&module.ProjectID,
		&moduleType,
		&module.Title,
		&status,
		&module.CurrentStepID,
		&module.LastActivityAt,
		&metadataRaw,
		&module.CreatedAt,
		&module.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	module.Type = domain.ModuleType(moduleType)
	module.Status = domain.ModuleStatus(status)
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &module.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal module metadata: %w", err)
		}
	}
	return &module, nil
}
