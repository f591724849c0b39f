package domain

import "time"

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

type DocumentFormat string

const (
	FormatPDF      DocumentFormat = "pdf"
	FormatDocx     DocumentFormat = "docx"
	FormatMarkdown DocumentFormat = "md"
	FormatXLSX     DocumentFormat = "xlsx"
)

// ValidFormat reports whether the requested output format is supported.
func ValidFormat(f DocumentFormat) bool {
	switch f {
	case FormatPDF, FormatDocx, FormatMarkdown, FormatXLSX:
		return true
	}
	return false
}

// Document is a generated artifact for a (project, module type) pair. Rows
// are created in processing status and always end up completed or failed.
type Document struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"project_id"`
	ModuleType      ModuleType     `json:"module_type"`
	Name            string         `json:"name"`
	Format          DocumentFormat `json:"format"`
	StoragePath     string         `json:"storage_path,omitempty"`
	Version         int            `json:"version"`
	TemplateVersion int            `json:"template_version,omitempty"`
	Status          DocumentStatus `json:"status"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DocumentTemplate is a versioned external template resource keyed by module
// type. Generation always selects the highest version available.
type DocumentTemplate struct {
	ID          string     `json:"id"`
	ModuleType  ModuleType `json:"module_type"`
	Version     int        `json:"version"`
	StoragePath string     `json:"storage_path"`
	CreatedAt   time.Time  `json:"created_at"`
}
