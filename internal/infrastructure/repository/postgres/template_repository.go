package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// LatestTemplate picks the highest-version template for the module type.
func (r *TemplateRepository) LatestTemplate(ctx context.Context, moduleType domain.ModuleType) (*domain.DocumentTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, module_type, version, storage_path, created_at
FROM document_templates
WHERE module_type = $1
ORDER BY version DESC
LIMIT 1
`, string(moduleType))

	var tpl domain.DocumentTemplate
	var mt string
	err := row.Scan(&tpl.ID, &mt, &tpl.Version, &tpl.StoragePath, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTemplateNotFound, "latest template", fmt.Errorf("module type %s", moduleType))
		}
		return nil, classify("latest template", err)
	}
	tpl.ModuleType = domain.ModuleType(mt)
	return &tpl, nil
}

// RegisterTemplate records a template revision; versions are assigned
// monotonically per module type.
func (r *TemplateRepository) RegisterTemplate(ctx context.Context, tpl *domain.DocumentTemplate) error {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO document_templates (id, module_type, version, storage_path, created_at)
VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM document_templates WHERE module_type = $2), $3, $4)
RETURNING version
`, tpl.ID, string(tpl.ModuleType), tpl.StoragePath, tpl.CreatedAt)
	if err := row.Scan(&tpl.Version); err != nil {
		return classify("register template", err)
	}
	return nil
}
