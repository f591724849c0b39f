package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument inserts the row with a per-(project, module type) version
// computed server-side.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO documents (id, project_id, module_type, name, format, storage_path, version, template_version, status, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, '', (SELECT COALESCE(MAX(version), 0) + 1 FROM documents WHERE project_id = $2 AND module_type = $3), 0, $6, $7, $8, $8)
RETURNING version
`, doc.ID, doc.ProjectID, string(doc.ModuleType), doc.Name, string(doc.Format), string(doc.Status), metadataJSON, doc.CreatedAt)
	if err := row.Scan(&doc.Version); err != nil {
		return classify("insert document", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, module_type, name, format, storage_path, version, template_version, status, metadata, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, classify("get document", err)
	}
	return doc, nil
}

// ListDocuments returns documents for the pair, most recent first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, projectID string, moduleType domain.ModuleType) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, project_id, module_type, name, format, storage_path, version, template_version, status, metadata, created_at, updated_at
FROM documents
WHERE project_id = $1 AND module_type = $2
ORDER BY created_at DESC
`, projectID, string(moduleType))
	if err != nil {
		return nil, classify("list documents", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, classify("scan document", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate documents", err)
	}
	return out, nil
}

func (r *DocumentRepository) MarkCompleted(ctx context.Context, id, storagePath string, templateVersion int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, storage_path = $3, template_version = $4, updated_at = $5
WHERE id = $1
`, id, string(domain.DocumentCompleted), storagePath, templateVersion, time.Now().UTC())
	if err != nil {
		return classify("mark document completed", err)
	}
	return requireDocumentRow(result, id)
}

// MarkFailed demotes the document and merges the error message into its
// metadata so the record is never left dangling in processing.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id, errMessage string) error {
	errJSON, err := json.Marshal(map[string]string{"error": errMessage})
	if err != nil {
		return fmt.Errorf("marshal error metadata: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, metadata = metadata || $3::jsonb, updated_at = $4
WHERE id = $1
`, id, string(domain.DocumentFailed), errJSON, time.Now().UTC())
	if err != nil {
		return classify("mark document failed", err)
	}
	return requireDocumentRow(result, id)
}

func requireDocumentRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return classify("document rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update document", fmt.Errorf("document %s", id))
	}
	return nil
}

type documentScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row documentScanner) (*domain.Document, error) {
	var doc domain.Document
	var moduleType, format, status string
	var metadataRaw []byte
	err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&moduleType,
		&doc.Name,
		&format,
		&doc.StoragePath,
		&doc.Version,
		&doc.TemplateVersion,
		&status,
		&metadataRaw,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ModuleType = domain.ModuleType(moduleType)
	doc.Format = domain.DocumentFormat(format)
	doc.Status = domain.DocumentStatus(status)
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}
	return &doc, nil
}
