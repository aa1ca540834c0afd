package handler

import (
	"log/slog"
	"net/http"

	"depot/internal/domain/repositories"
	"depot/internal/httputil"
	"depot/internal/service"
)

// PlacementHandler handles placement, folder-contents and tag HTTP requests
type PlacementHandler struct {
	placements *service.PlacementService
	logger     *slog.Logger
}

func NewPlacementHandler(placements *service.PlacementService, logger *slog.Logger) *PlacementHandler {
	return &PlacementHandler{placements: placements, logger: logger}
}

// PlaceFile places a file into a folder
// PUT /api/workspaces/{id}/folders/{folderId}/files/{fileId}
func (h *PlacementHandler) PlaceFile(w http.ResponseWriter, r *http.Request) {
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
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}

	placement, err := h.placements.Place(r.Context(), actor, workspaceID, fileID, folderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, placement)
}

// UnplaceFile removes a file from a folder
// DELETE /api/workspaces/{id}/folders/{folderId}/files/{fileId}
func (h *PlacementHandler) UnplaceFile(w http.ResponseWriter, r *http.Request) {
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
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}

	if err := h.placements.Unplace(r.Context(), actor, workspaceID, fileID, folderID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderPlacements bulk-applies a placement order permutation in a folder
// PUT /api/workspaces/{id}/folders/{folderId}/files/order
func (h *PlacementHandler) ReorderPlacements(w http.ResponseWriter, r *http.Request) {
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

	var orders []repositories.PlacementOrder
	if err := httputil.ParseJSON(w, r, &orders); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.placements.Reorder(r.Context(), actor, workspaceID, folderID, orders); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FolderContents lists a folder's subfolders and placed files
// GET /api/workspaces/{id}/folders/{folderId}/contents
func (h *PlacementHandler) FolderContents(w http.ResponseWriter, r *http.Request) {
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

	contents, err := h.placements.Contents(r.Context(), actor, workspaceID, folderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// FilePlacements lists the folders a file is placed in
// GET /api/workspaces/{id}/files/{fileId}/placements
func (h *PlacementHandler) FilePlacements(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}

	placements, err := h.placements.Placements(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, placements)
}

// CreateTag creates a tag
// POST /api/tags
func (h *PlacementHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateTagRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := h.placements.CreateTag(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tag)
}

// ListTags lists all tags
// GET /api/tags
func (h *PlacementHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}

	tags, err := h.placements.Tags(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tags)
}

// DeleteTag removes a tag and its markings
// DELETE /api/tags/{tagId}
func (h *PlacementHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}

	if err := h.placements.DeleteTag(r.Context(), actor, tagID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkFile attaches a tag to a file
// PUT /api/workspaces/{id}/files/{fileId}/tags/{tagId}
func (h *PlacementHandler) MarkFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}

	if err := h.placements.Mark(r.Context(), actor, workspaceID, fileID, tagID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnmarkFile detaches a tag from a file
// DELETE /api/workspaces/{id}/files/{fileId}/tags/{tagId}
func (h *PlacementHandler) UnmarkFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}

	if err := h.placements.Unmark(r.Context(), actor, workspaceID, fileID, tagID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FileTags lists the tags attached to a file
// GET /api/workspaces/{id}/files/{fileId}/tags
func (h *PlacementHandler) FileTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}

	tags, err := h.placements.TagsForFile(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tags)
}
