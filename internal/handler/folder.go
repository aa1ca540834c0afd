package handler

import (
	"log/slog"
	"net/http"

	"depot/internal/domain/repositories"
	"depot/internal/httputil"
	"depot/internal/service"
)

// FolderHandler handles folder HTTP requests. All routes are nested under a
// workspace; the service enforces the boundary.
type FolderHandler struct {
	folders *service.FolderService
	logger  *slog.Logger
}

func NewFolderHandler(folders *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

// CreateFolder creates a new folder
// POST /api/workspaces/{id}/folders
// Returns 409 with the existing folder's ID on a duplicate sibling name.
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req service.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.folders.Create(r.Context(), actor, workspaceID, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder
// GET /api/workspaces/{id}/folders/{folderId}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "folderId")
	if !ok {
		return
	}

	folder, err := h.folders.Get(r.Context(), actor, workspaceID, folderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ListFolders lists direct children of a parent; no parent_id means roots
// GET /api/workspaces/{id}/folders?parent_id=...
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var parentID *string
	if p := r.URL.Query().Get("parent_id"); p != "" {
		parentID = &p
	}

	folders, err := h.folders.ListChildren(r.Context(), actor, workspaceID, parentID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// updateFolderRequest is the PATCH body: rename/reparent fields plus an
// optional description update.
type updateFolderRequest struct {
	service.MoveFolderRequest
	Description *string `json:"description,omitempty"`
}

// MoveFolder renames, reparents and/or updates the description of a folder
// PATCH /api/workspaces/{id}/folders/{folderId}
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "folderId")
	if !ok {
		return
	}

	var req updateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.folders.Move(r.Context(), actor, workspaceID, folderID, req.MoveFolderRequest)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	if req.Description != nil {
		folder, err = h.folders.UpdateDescription(r.Context(), actor, workspaceID, folderID, *req.Description)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ReorderFolders bulk-applies a sibling order permutation
// PUT /api/workspaces/{id}/folders/order
func (h *FolderHandler) ReorderFolders(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var orders []repositories.FolderOrder
	if err := httputil.ParseJSON(w, r, &orders); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.folders.Reorder(r.Context(), actor, workspaceID, orders); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteFolder soft-deletes a folder (no cascade to descendants)
// DELETE /api/workspaces/{id}/folders/{folderId}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "folderId")
	if !ok {
		return
	}

	if err := h.folders.Delete(r.Context(), actor, workspaceID, folderID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreFolder clears the folder's soft-delete marker
// POST /api/workspaces/{id}/folders/{folderId}/restore
func (h *FolderHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "folderId")
	if !ok {
		return
	}

	folder, err := h.folders.Restore(r.Context(), actor, workspaceID, folderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ForceDeleteFolder permanently removes a soft-deleted folder and its subtree
// DELETE /api/workspaces/{id}/folders/{folderId}/force
func (h *FolderHandler) ForceDeleteFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "folderId")
	if !ok {
		return
	}

	if err := h.folders.ForceDelete(r.Context(), actor, workspaceID, folderID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
