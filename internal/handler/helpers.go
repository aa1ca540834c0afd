package handler

import (
	"net/http"

	"depot/internal/domain/models"
	"depot/internal/httputil"
)

// requireActor pulls the authenticated actor from the request. The auth
// middleware guarantees it for every route under /api; a miss means the route
// was wired without the middleware.
func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := httputil.GetActor(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
	}
	return actor, ok
}

// pathID returns a required path parameter, writing a 400 when missing.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, name+" is required")
	}
	return id, id != ""
}
