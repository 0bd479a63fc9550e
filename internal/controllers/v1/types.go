// Package v1 implements the v1 HTTP API.
package v1

import (
	"errors"
	"net/http"

	"github.com/pocketbudget/backend/internal/models"
	ez_uuid "github.com/pocketbudget/backend/internal/uuid"
)

// URIID is the URI binding for routes addressing a single resource.
type URIID struct {
	ID ez_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

type httpError struct {
	Error string `json:"error"`
}

// status translates an error into the HTTP status of the response.
// Not-found errors map to 404, general errors to 500, everything else
// is the client's fault.
func status(err error) int {
	switch {
	case errors.Is(err, models.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGeneral):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
