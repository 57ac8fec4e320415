package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// ErrExtraction marks unsupported or corrupt source files. It is document-fatal.
	ErrExtraction = errors.New("text extraction failed")

	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrOracleTimeout     = errors.New("oracle timeout")
	ErrOracleMalformed   = errors.New("oracle malformed response")

	ErrInvalidRubric = errors.New("invalid rubric")
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

// IsOracleFailure reports whether err is one of the oracle error kinds.
func IsOracleFailure(err error) bool {
	return IsKind(err, ErrOracleUnavailable) || IsKind(err, ErrOracleTimeout) || IsKind(err, ErrOracleMalformed)
}
