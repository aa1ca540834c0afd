package handler

import (
	"log/slog"
	"net/http"

	"depot/internal/httputil"
	"depot/internal/service"
)

// TreeHandler serves the full workspace tree
type TreeHandler struct {
	trees  *service.TreeService
	logger *slog.Logger
}

func NewTreeHandler(trees *service.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{trees: trees, logger: logger}
}

// GetTree returns the workspace's folder/file tree
// GET /api/workspaces/{id}/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tree, err := h.trees.Build(r.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
