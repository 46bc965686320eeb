package server

import (
	"errors"
	"net/http"

	"github.com/fsilva7456/commlink/internal/lifecycle"
	"github.com/fsilva7456/commlink/internal/schemas"
	"github.com/fsilva7456/commlink/internal/store"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound     *store.NotFoundError
		conflict     *store.ConflictError
		nonMonotonic *store.NonMonotonicEpochError
		invalidEdge  *lifecycle.InvalidTransitionError
		progress     *lifecycle.ProgressReportError
		validation   *schemas.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.As(err, &invalidEdge):
		return http.StatusConflict
	case errors.As(err, &nonMonotonic), errors.As(err, &progress), errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
