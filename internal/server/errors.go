package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/HerbHall/atelier/internal/collection"
)

// WriteError writes the problem response matching a collection error.
// Anything unrecognised is a failed backend call and maps to 502. A failed
// refresh is always 502, whatever the backend said.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	detail, instance := err.Error(), r.URL.Path
	switch {
	case errors.Is(err, collection.ErrFetch):
		BadGateway(w, detail, instance)
	case errors.Is(err, collection.ErrValidation):
		UnprocessableEntity(w, detail, instance)
	case errors.Is(err, collection.ErrNotFound):
		NotFound(w, detail, instance)
	case errors.Is(err, collection.ErrReorderPending), errors.Is(err, collection.ErrNotSortable):
		Conflict(w, detail, instance)
	case errors.Is(err, collection.ErrClosed):
		WriteProblem(w, Problem{
			Type:     ProblemTypeInternal,
			Title:    "Service Unavailable",
			Status:   http.StatusServiceUnavailable,
			Detail:   detail,
			Instance: instance,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteProblem(w, Problem{
			Type:     ProblemTypeBadGateway,
			Title:    "Gateway Timeout",
			Status:   http.StatusGatewayTimeout,
			Detail:   detail,
			Instance: instance,
		})
	default:
		BadGateway(w, detail, instance)
	}
}
