package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrConfiguration    = errors.New("configuration error")
	ErrDuplicate        = errors.New("duplicate record")
	ErrReference        = errors.New("invalid reference")
	ErrStorage          = errors.New("storage failure")
	ErrGeneration       = errors.New("generation failure")
	ErrEnrichment       = errors.New("enrichment failure")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
