package ipc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/saba-chan/saba-core/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	var coded domain.CodedError
	if errors.As(err, &coded) {
		code = coded.Code()
	}

	switch {
	case errors.Is(err, domain.ErrInstanceNotFound),
		errors.Is(err, domain.ErrModuleNotFound),
		errors.Is(err, domain.ErrExtensionNotFound),
		errors.Is(err, domain.ErrComponentNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidPort):
		status = http.StatusBadRequest
		code = "validation_failed"
	case errors.Is(err, domain.ErrInstanceExists), errors.Is(err, domain.ErrPortCollision), errors.Is(err, domain.ErrInstanceRunning), errors.Is(err, domain.ErrInUse), errors.Is(err, domain.ErrHasDependents):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrDependencyMissing), errors.Is(err, domain.ErrDependencyNotEnabled), errors.Is(err, domain.ErrComponentVersionUnsatisfied):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotDownloaded), errors.Is(err, domain.ErrNeedsSideUpdater):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"code":    code,
		},
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewTaxonomyError("validation_failed", "malformed request body: "+err.Error(), domain.ErrValidation)
	}
	return nil
}
