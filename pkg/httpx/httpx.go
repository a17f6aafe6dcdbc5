package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"certflow/pkg/domain"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteDomainError maps the workflow error taxonomy onto HTTP statuses and
// stable code strings. ClosedCertificationError gets its own code so clients
// can render "this certification is closed" instead of a form error.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var ferr *domain.ForbiddenError
	var nferr *domain.NotFoundError
	var cerr *domain.ConflictError
	var clerr *domain.ClosedCertificationError
	switch {
	case errors.As(err, &clerr):
		WriteError(w, http.StatusConflict, "CERTIFICATION_CLOSED", clerr.Error(), nil)
	case errors.As(err, &verr):
		var details any
		if len(verr.Fields) > 0 {
			details = verr.Fields
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", verr.Error(), details)
	case errors.As(err, &ferr):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", ferr.Error(), nil)
	case errors.As(err, &nferr):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", nferr.Error(), nil)
	case errors.As(err, &cerr):
		WriteError(w, http.StatusConflict, "CONFLICT", cerr.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
