package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedType  = errors.New("unsupported media type")
	ErrExtraction       = errors.New("extraction failure")
	ErrEmptyExtraction  = errors.New("extraction produced no content")
	ErrIndexWrite       = errors.New("vector index write failure")
	ErrArchival         = errors.New("file archival failure")
	ErrProvider         = errors.New("llm provider failure")
	ErrVersionConflict  = errors.New("version conflict")
	ErrNoValidResponses = errors.New("no valid responses from any document")
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
