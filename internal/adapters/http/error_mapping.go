package httpadapter

import (
	"net/http"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

// mapErrorToHTTPStatus translates pipeline error kinds into response
// codes. Pipeline failure is checked before gateway unavailability
// because a total-outage run wraps both kinds.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPipelineFailed):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
