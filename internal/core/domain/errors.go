package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("analysis credential missing")
	ErrOversizedFile     = errors.New("file exceeds size limit")
	ErrExtraction        = errors.New("extraction failed")
	ErrAnalysis          = errors.New("analysis failed")
	ErrJobActive         = errors.New("analysis job already active")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrResultNotFound    = errors.New("result not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
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
