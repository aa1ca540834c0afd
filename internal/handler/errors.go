package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"depot/internal/domain"
	"depot/internal/httputil"
)

// respondServiceError maps domain errors to HTTP responses. Typed errors
// carry their own status; sentinels cover errors wrapped deeper in the stack.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		extras := conflictExtras(err)
		httputil.RespondErrorWithExtras(w, httpErr.StatusCode(), httpErr.Error(), extras)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrUnchanged):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLocked):
		httputil.RespondError(w, http.StatusLocked, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrExternalFetch):
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	default:
		logger.Error("unhandled service error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// conflictExtras surfaces the existing resource's identity on 409 responses
// so clients can resolve the conflict without a second lookup.
func conflictExtras(err error) map[string]interface{} {
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) || conflictErr.ResourceID == "" {
		return nil
	}
	return map[string]interface{}{
		"resource_type": conflictErr.ResourceType,
		"resource_id":   conflictErr.ResourceID,
	}
}
