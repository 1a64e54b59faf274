package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrClassificationFailed = errors.New("classification failed")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrExtractionMalformed  = errors.New("malformed extraction payload")
	ErrGatewayUnavailable   = errors.New("gateway unavailable")
	ErrPipelineFailed       = errors.New("pipeline failed")
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
