package handler

import (
	"log/slog"
	"net/http"

	"depot/internal/domain/models"
	"depot/internal/httputil"
	"depot/internal/service"
)

// WorkspaceHandler handles workspace and membership HTTP requests
type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
	logger     *slog.Logger
}

func NewWorkspaceHandler(workspaces *service.WorkspaceService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, logger: logger}
}

// CreateWorkspace creates a new workspace
// POST /api/workspaces
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := h.workspaces.Create(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, ws)
}

// ListWorkspaces lists the actor's workspaces
// GET /api/workspaces
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	workspaces, err := h.workspaces.List(r.Context(), actor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspaces)
}

// GetWorkspace retrieves one workspace
// GET /api/workspaces/{id}
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ws)
}

// UpdateWorkspace applies partial updates
// PATCH /api/workspaces/{id}
func (h *WorkspaceHandler) UpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req service.UpdateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := h.workspaces.Update(r.Context(), actor, id, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ws)
}

// DeleteWorkspace soft-deletes the workspace and its contents
// DELETE /api/workspaces/{id}
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaces.Delete(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreWorkspace clears the soft-delete marker
// POST /api/workspaces/{id}/restore
func (h *WorkspaceHandler) RestoreWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.Restore(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ws)
}

// ForceDeleteWorkspace permanently removes a soft-deleted workspace.
// DELETE /api/workspaces/{id}/force
// The gateway re-authenticates before routing this call.
func (h *WorkspaceHandler) ForceDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaces.ForceDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeactivateWorkspace suspends the workspace
// POST /api/workspaces/{id}/deactivate
func (h *WorkspaceHandler) DeactivateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.Deactivate(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ws)
}

// ReactivateWorkspace clears the suspension
// POST /api/workspaces/{id}/reactivate
func (h *WorkspaceHandler) ReactivateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.Reactivate(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ws)
}

// ListMembers lists the workspace's memberships
// GET /api/workspaces/{id}/members
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.workspaces.Members(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// InviteMember invites a user to the workspace
// POST /api/workspaces/{id}/members
func (h *WorkspaceHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req service.InviteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.workspaces.Invite(r.Context(), actor, id, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, m)
}

// AcceptInvitation accepts the actor's pending invitation
// POST /api/workspaces/{id}/members/accept
func (h *WorkspaceHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	m, err := h.workspaces.Accept(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, m)
}

// RemoveMember removes a member (or the actor leaves/declines)
// DELETE /api/workspaces/{id}/members/{userId}
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	if err := h.workspaces.RemoveMember(r.Context(), actor, id, userID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMemberPermissions replaces a member's permission map
// PUT /api/workspaces/{id}/members/{userId}/permissions
func (h *WorkspaceHandler) UpdateMemberPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	var permissions models.PermissionMap
	if err := httputil.ParseJSON(w, r, &permissions); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.workspaces.UpdatePermissions(r.Context(), actor, id, userID, permissions)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, m)
}
