package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gosimple/slug"

	"depot/internal/config"
	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// AccessGuard is the workspace boundary every content service consults before
// touching workspace-scoped data. EnsureAccess returns the workspace so
// callers do not fetch it twice.
type AccessGuard interface {
	// EnsureAccess verifies the actor may act inside the workspace and, when
	// capability is non-empty, that the actor's permission map allows it.
	EnsureAccess(ctx context.Context, actor models.Actor, workspaceID, capability string) (*models.Workspace, error)
}

// WorkspaceService manages workspaces, memberships and the access boundary.
type WorkspaceService struct {
	wsRepo     repositories.WorkspaceRepository
	memberRepo repositories.MembershipRepository
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

func NewWorkspaceService(
	wsRepo repositories.WorkspaceRepository,
	memberRepo repositories.MembershipRepository,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *WorkspaceService {
	return &WorkspaceService{
		wsRepo:     wsRepo,
		memberRepo: memberRepo,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// CreateWorkspaceRequest carries the fields for creating a workspace.
type CreateWorkspaceRequest struct {
	Name        string         `json:"name"`
	Slug        string         `json:"slug,omitempty"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

func (r CreateWorkspaceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxWorkspaceNameLength)),
		validation.Field(&r.Slug, validation.Length(0, config.MaxWorkspaceNameLength)),
	)
}

// UpdateWorkspaceRequest carries partial updates; nil means "leave unchanged".
type UpdateWorkspaceRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

func (r UpdateWorkspaceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxWorkspaceNameLength)),
	)
}

// Create creates a workspace owned by the actor, with the owner membership
// materialized in the same transaction.
func (s *WorkspaceService) Create(ctx context.Context, actor models.Actor, req CreateWorkspaceRequest) (*models.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	wsSlug := req.Slug
	if wsSlug == "" {
		wsSlug = slug.Make(req.Name)
	}

	existing, err := s.wsRepo.GetBySlug(ctx, wsSlug)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("workspace with slug '%s' already exists", wsSlug),
			ResourceType: "workspace",
			ResourceID:   existing.ID,
		}
	}

	now := time.Now()
	ws := &models.Workspace{
		ID:          newID(),
		Name:        req.Name,
		Slug:        wsSlug,
		Description: req.Description,
		Settings:    req.Settings,
		Active:      true,
		OwnerID:     actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.wsRepo.Create(txCtx, ws); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		return s.memberRepo.Create(txCtx, ownerMembership(ws.ID, actor.ID, now))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("workspace created", "workspace_id", ws.ID, "slug", ws.Slug, "owner_id", actor.ID)
	return ws, nil
}

// Get retrieves a workspace the actor can access.
func (s *WorkspaceService) Get(ctx context.Context, actor models.Actor, id string) (*models.Workspace, error) {
	return s.EnsureAccess(ctx, actor, id, "")
}

// List lists the workspaces the actor owns or belongs to.
func (s *WorkspaceService) List(ctx context.Context, actor models.Actor) ([]models.Workspace, error) {
	workspaces, err := s.wsRepo.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// Update applies partial updates to name, description and settings.
func (s *WorkspaceService) Update(ctx context.Context, actor models.Actor, id string, req UpdateWorkspaceRequest) (*models.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.EnsureAccess(ctx, actor, id, models.CapabilitySettings)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		ws.Name = *req.Name
	}
	if req.Description != nil {
		ws.Description = *req.Description
	}
	if req.Settings != nil {
		ws.Settings = req.Settings
	}
	ws.UpdatedBy = &actor.ID
	ws.UpdatedAt = time.Now()

	if err := s.wsRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}
	return ws, nil
}

// Deactivate suspends the workspace without hiding it. Deactivation is an
// operational flag, independent of soft deletion.
func (s *WorkspaceService) Deactivate(ctx context.Context, actor models.Actor, id string) (*models.Workspace, error) {
	ws, err := s.EnsureAccess(ctx, actor, id, models.CapabilitySettings)
	if err != nil {
		return nil, err
	}
	if !ws.Active {
		return nil, &domain.ValidationError{Message: "workspace is already deactivated"}
	}

	now := time.Now()
	ws.Active = false
	ws.DeactivatedAt = &now
	ws.DeactivatedBy = &actor.ID
	ws.UpdatedBy = &actor.ID
	ws.UpdatedAt = now

	if err := s.wsRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to deactivate workspace: %w", err)
	}
	return ws, nil
}

// Reactivate clears the deactivation flag.
func (s *WorkspaceService) Reactivate(ctx context.Context, actor models.Actor, id string) (*models.Workspace, error) {
	ws, err := s.EnsureAccess(ctx, actor, id, models.CapabilitySettings)
	if err != nil {
		return nil, err
	}
	if ws.Active {
		return nil, &domain.ValidationError{Message: "workspace is already active"}
	}

	ws.Active = true
	ws.DeactivatedAt = nil
	ws.DeactivatedBy = nil
	ws.UpdatedBy = &actor.ID
	ws.UpdatedAt = time.Now()

	if err := s.wsRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to reactivate workspace: %w", err)
	}
	return ws, nil
}

// Delete soft-deletes the workspace and cascades the marker to every live
// folder and file inside it, all in one transaction with one timestamp.
// This is the only soft-delete in the system that cascades.
func (s *WorkspaceService) Delete(ctx context.Context, actor models.Actor, id string) error {
	ws, err := s.EnsureAccess(ctx, actor, id, "")
	if err != nil {
		return err
	}
	if ws.OwnerID != actor.ID && !actor.Elevated {
		return &domain.ForbiddenError{Message: "only the workspace owner can delete it"}
	}

	now := time.Now()
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.wsRepo.SoftDelete(txCtx, id, actor.ID, now); err != nil {
			return fmt.Errorf("failed to delete workspace: %w", err)
		}
		if err := s.folderRepo.SoftDeleteAllByWorkspace(txCtx, id, actor.ID, now); err != nil {
			return fmt.Errorf("failed to cascade delete to folders: %w", err)
		}
		if err := s.fileRepo.SoftDeleteAllByWorkspace(txCtx, id, actor.ID, now); err != nil {
			return fmt.Errorf("failed to cascade delete to files: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("workspace deleted", "workspace_id", id, "deleted_by", actor.ID)
	return nil
}

// Restore clears the workspace's soft-delete marker. Contents deleted in the
// cascade stay deleted and are restored individually.
func (s *WorkspaceService) Restore(ctx context.Context, actor models.Actor, id string) (*models.Workspace, error) {
	ws, err := s.wsRepo.GetByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != actor.ID && !actor.Elevated {
		return nil, &domain.ForbiddenError{Message: "only the workspace owner can restore it"}
	}
	if ws.DeletedAt == nil {
		return nil, &domain.ValidationError{Message: "workspace is not deleted"}
	}

	return s.wsRepo.Restore(ctx, id)
}

// ForceDelete permanently removes an already-soft-deleted workspace and all
// of its rows. Only the owner may do this; the transport layer is responsible
// for re-authenticating before the call reaches here.
func (s *WorkspaceService) ForceDelete(ctx context.Context, actor models.Actor, id string) error {
	ws, err := s.wsRepo.GetByIDIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	if ws.OwnerID != actor.ID {
		return &domain.ForbiddenError{Message: "only the workspace owner can permanently delete it"}
	}
	if ws.DeletedAt == nil {
		return &domain.ValidationError{Message: "workspace must be deleted before it can be permanently removed"}
	}

	if err := s.wsRepo.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to permanently delete workspace: %w", err)
	}

	s.logger.Info("workspace permanently deleted", "workspace_id", id, "deleted_by", actor.ID)
	return nil
}

// InviteRequest carries an invitation for a user into a workspace.
type InviteRequest struct {
	UserID      string               `json:"user_id"`
	Permissions models.PermissionMap `json:"permissions,omitempty"`
}

func (r InviteRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
	); err != nil {
		return err
	}
	return validatePermissionKeys(r.Permissions)
}

// Invite creates a pending membership for the user. The invitee is a member
// only once they accept.
func (s *WorkspaceService) Invite(ctx context.Context, actor models.Actor, workspaceID string, req InviteRequest) (*models.Membership, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.EnsureAccess(ctx, actor, workspaceID, models.CapabilityUsers)
	if err != nil {
		return nil, err
	}

	existing, err := s.memberRepo.Get(ctx, workspaceID, req.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, &domain.ConflictError{
			Message:      "user already belongs to this workspace",
			ResourceType: "membership",
			ResourceID:   existing.ID,
		}
	}

	now := time.Now()
	m := &models.Membership{
		ID:          newID(),
		WorkspaceID: ws.ID,
		UserID:      req.UserID,
		Role:        models.RoleMember,
		Permissions: req.Permissions,
		InvitedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.logger.Info("user invited", "workspace_id", ws.ID, "user_id", req.UserID, "invited_by", actor.ID)
	return m, nil
}

// Accept turns the actor's pending invitation into full membership.
func (s *WorkspaceService) Accept(ctx context.Context, actor models.Actor, workspaceID string) (*models.Membership, error) {
	m, err := s.memberRepo.Get(ctx, workspaceID, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: "no invitation found"}
		}
		return nil, err
	}
	if m.JoinedAt != nil {
		return nil, &domain.ValidationError{Message: "invitation already accepted"}
	}

	now := time.Now()
	m.JoinedAt = &now
	m.UpdatedAt = now
	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return m, nil
}

// RemoveMember removes a user from the workspace. Members may remove
// themselves (leave or decline); removing others needs the users capability.
// The owner cannot be removed.
func (s *WorkspaceService) RemoveMember(ctx context.Context, actor models.Actor, workspaceID, userID string) error {
	capability := models.CapabilityUsers
	if userID == actor.ID {
		capability = ""
	}
	ws, err := s.EnsureAccess(ctx, actor, workspaceID, capability)
	if err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return &domain.ValidationError{Message: "the workspace owner cannot be removed"}
	}

	if _, err := s.memberRepo.Get(ctx, workspaceID, userID); err != nil {
		return err
	}

	return s.memberRepo.Delete(ctx, workspaceID, userID)
}

// UpdatePermissions replaces a member's permission map.
func (s *WorkspaceService) UpdatePermissions(ctx context.Context, actor models.Actor, workspaceID, userID string, permissions models.PermissionMap) (*models.Membership, error) {
	if err := validatePermissionKeys(permissions); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if _, err := s.EnsureAccess(ctx, actor, workspaceID, models.CapabilityUsers); err != nil {
		return nil, err
	}

	m, err := s.memberRepo.Get(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if m.IsOwner() {
		return nil, &domain.ValidationError{Message: "the owner's permissions cannot be changed"}
	}

	m.Permissions = permissions
	m.UpdatedAt = time.Now()
	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}
	return m, nil
}

// Members lists the memberships of a workspace.
func (s *WorkspaceService) Members(ctx context.Context, actor models.Actor, workspaceID string) ([]models.Membership, error) {
	if _, err := s.EnsureAccess(ctx, actor, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.memberRepo.ListByWorkspace(ctx, workspaceID)
}

// EnsureAccess implements AccessGuard. Owners and elevated actors always
// pass; everyone else needs a joined membership whose permission map allows
// the capability. An owner without a membership row gets one materialized
// lazily, so legacy workspaces behave identically to fresh ones.
func (s *WorkspaceService) EnsureAccess(ctx context.Context, actor models.Actor, workspaceID, capability string) (*models.Workspace, error) {
	ws, err := s.wsRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if actor.Elevated {
		return ws, nil
	}

	if ws.OwnerID == actor.ID {
		if err := s.ensureOwnerMembership(ctx, ws, actor.ID); err != nil {
			return nil, err
		}
		return ws, nil
	}

	m, err := s.memberRepo.Get(ctx, workspaceID, actor.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if m == nil || m.JoinedAt == nil {
		return nil, &domain.ForbiddenError{Message: "you do not have access to this workspace"}
	}

	if capability != "" && !m.IsOwner() && !m.Permissions.Allows(capability) {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("you do not have the '%s' permission in this workspace", capability)}
	}

	return ws, nil
}

// ensureOwnerMembership materializes the owner's membership row if it is
// missing. A concurrent insert losing the unique race is fine.
func (s *WorkspaceService) ensureOwnerMembership(ctx context.Context, ws *models.Workspace, ownerID string) error {
	m, err := s.memberRepo.Get(ctx, ws.ID, ownerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to check owner membership: %w", err)
	}
	if m != nil {
		return nil
	}

	if err := s.memberRepo.Create(ctx, ownerMembership(ws.ID, ownerID, time.Now())); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to materialize owner membership: %w", err)
	}
	s.logger.Debug("owner membership materialized", "workspace_id", ws.ID, "owner_id", ownerID)
	return nil
}

// ownerMembership builds the owner's membership row: joined immediately,
// never merely invited.
func ownerMembership(workspaceID, ownerID string, now time.Time) *models.Membership {
	return &models.Membership{
		ID:          newID(),
		WorkspaceID: workspaceID,
		UserID:      ownerID,
		Role:        models.RoleOwner,
		JoinedAt:    &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// validatePermissionKeys rejects keys outside the closed capability set.
func validatePermissionKeys(permissions models.PermissionMap) error {
	for key := range permissions {
		valid := false
		for _, c := range models.Capabilities {
			if key == c {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("unknown permission key '%s'", key)
		}
	}
	return nil
}
