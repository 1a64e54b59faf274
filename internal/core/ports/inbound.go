package ports

import (
	"context"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

// ClaimProcessor is the inbound contract for one synchronous claim run.
type ClaimProcessor interface {
	ProcessClaim(ctx context.Context, docs []domain.RawDocument) (*domain.ClaimReport, error)
}
