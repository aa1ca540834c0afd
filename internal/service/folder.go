package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"depot/internal/config"
	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// folderNamePattern rejects "/" anywhere in a folder name. Names become route
// segments, so a slash would corrupt every descendant route.
var folderNamePattern = regexp.MustCompile(`^[^/]+$`)

// FolderService manages the folder tree of a workspace.
type FolderService struct {
	folderRepo repositories.FolderRepository
	guard      AccessGuard
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

func NewFolderService(
	folderRepo repositories.FolderRepository,
	guard AccessGuard,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		guard:      guard,
		txManager:  txManager,
		logger:     logger,
	}
}

// CreateFolderRequest carries the fields for creating a folder.
type CreateFolderRequest struct {
	ParentID    *string `json:"parent_id,omitempty"` // nil = root level
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
}

func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxFolderNameLength),
			validation.Match(folderNamePattern).Error("name cannot contain '/'")),
	)
}

// MoveFolderRequest carries a rename and/or reparent. Name empty means keep
// the current name; NewParentID is applied only when Reparent is set, so
// "move to root" (nil parent) is expressible.
type MoveFolderRequest struct {
	Name        string  `json:"name,omitempty"`
	NewParentID *string `json:"new_parent_id,omitempty"`
	Reparent    bool    `json:"reparent,omitempty"`
}

func (r MoveFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, config.MaxFolderNameLength),
			validation.When(r.Name != "", validation.Match(folderNamePattern).Error("name cannot contain '/'"))),
	)
}

// Create creates a folder under the given parent (or at root level) with the
// next sibling order. Route and level are derived from the live parent; a
// deleted or missing parent rejects the create.
func (s *FolderService) Create(ctx context.Context, actor models.Actor, workspaceID string, req CreateFolderRequest) (*models.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return nil, err
	}

	route := req.Name
	level := 0
	if req.ParentID != nil {
		parent, err := s.folderRepo.GetByID(ctx, *req.ParentID, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
		route = parent.ChildRoute(req.Name)
		level = parent.Level + 1
	}
	if len(route) > config.MaxRouteLength {
		return nil, &domain.ValidationError{Message: "folder route would exceed the maximum depth"}
	}

	if err := s.checkSiblingName(ctx, ws.ID, req.ParentID, req.Name, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	folder := &models.Folder{
		ID:          newID(),
		WorkspaceID: ws.ID,
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		Route:       route,
		Level:       level,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Order assignment and insert share a tx; the unique constraint on
	// (workspace, parent, ord) resolves concurrent races.
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		order, err := s.folderRepo.NextOrder(txCtx, ws.ID, req.ParentID)
		if err != nil {
			return fmt.Errorf("failed to compute sibling order: %w", err)
		}
		folder.Order = order
		return s.folderRepo.Create(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "folder_id", folder.ID, "workspace_id", ws.ID, "route", folder.Route)
	return folder, nil
}

// Get retrieves a live folder.
func (s *FolderService) Get(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.Folder, error) {
	if _, err := s.guard.EnsureAccess(ctx, actor, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.folderRepo.GetByID(ctx, id, workspaceID)
}

// ListChildren lists the live direct children of a parent (nil = root level)
// in sibling order.
func (s *FolderService) ListChildren(ctx context.Context, actor models.Actor, workspaceID string, parentID *string) ([]models.Folder, error) {
	if _, err := s.guard.EnsureAccess(ctx, actor, workspaceID, ""); err != nil {
		return nil, err
	}
	if parentID != nil {
		if _, err := s.folderRepo.GetByID(ctx, *parentID, workspaceID); err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
	}
	return s.folderRepo.ListChildren(ctx, workspaceID, parentID)
}

// UpdateDescription updates the folder's description only. Renames go through
// Move because they cascade.
func (s *FolderService) UpdateDescription(ctx context.Context, actor models.Actor, workspaceID, id, description string) (*models.Folder, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}

	folder.Description = description
	folder.UpdatedBy = &actor.ID
	folder.UpdatedAt = time.Now()
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}
	return folder, nil
}

// Move renames and/or reparents a folder. Route and level are recomputed and
// the change cascades to every descendant in one statement, inside one
// transaction. Moving under a descendant (or under itself) is rejected.
func (s *FolderService) Move(ctx context.Context, actor models.Actor, workspaceID, id string, req MoveFolderRequest) (*models.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}

	newName := folder.Name
	if req.Name != "" {
		newName = req.Name
	}
	newParentID := folder.ParentID
	if req.Reparent {
		newParentID = req.NewParentID
	}

	newRoute := newName
	newLevel := 0
	if newParentID != nil {
		if *newParentID == folder.ID {
			return nil, &domain.ValidationError{Message: "a folder cannot be its own parent"}
		}
		parent, err := s.folderRepo.GetByID(ctx, *newParentID, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("new parent folder: %w", err)
		}
		if err := s.checkNoCycle(ctx, ws.ID, folder.ID, parent); err != nil {
			return nil, err
		}
		newRoute = parent.ChildRoute(newName)
		newLevel = parent.Level + 1
	}
	if len(newRoute) > config.MaxRouteLength {
		return nil, &domain.ValidationError{Message: "folder route would exceed the maximum depth"}
	}

	if newRoute == folder.Route && sameParent(newParentID, folder.ParentID) {
		return folder, nil
	}

	if err := s.checkSiblingName(ctx, ws.ID, newParentID, newName, folder.ID); err != nil {
		return nil, err
	}

	oldRoute := folder.Route
	levelDelta := newLevel - folder.Level
	reparented := !sameParent(newParentID, folder.ParentID)

	folder.Name = newName
	folder.ParentID = newParentID
	folder.Route = newRoute
	folder.Level = newLevel
	folder.UpdatedBy = &actor.ID
	folder.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if reparented {
			order, err := s.folderRepo.NextOrder(txCtx, ws.ID, newParentID)
			if err != nil {
				return fmt.Errorf("failed to compute sibling order: %w", err)
			}
			folder.Order = order
		}
		if err := s.folderRepo.Update(txCtx, folder); err != nil {
			return fmt.Errorf("failed to update folder: %w", err)
		}
		return s.folderRepo.CascadeRoute(txCtx, ws.ID, folder.ID, oldRoute, newRoute, levelDelta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved", "folder_id", folder.ID, "workspace_id", ws.ID,
		"old_route", oldRoute, "new_route", newRoute)
	return folder, nil
}

// Reorder bulk-applies a new sibling order permutation. The deferred unique
// constraint validates it at commit, so swaps need no intermediate values.
func (s *FolderService) Reorder(ctx context.Context, actor models.Actor, workspaceID string, orders []repositories.FolderOrder) error {
	if len(orders) == 0 {
		return &domain.ValidationError{Message: "orders must not be empty"}
	}
	for _, o := range orders {
		if o.Order < 1 {
			return &domain.ValidationError{Message: "order values must be positive"}
		}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return err
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.folderRepo.UpdateOrders(txCtx, ws.ID, orders)
	})
}

// Delete soft-deletes the folder row. Descendants keep their own rows
// untouched; they disappear from listings because their ancestor is deleted,
// and reappear intact when it is restored.
func (s *FolderService) Delete(ctx context.Context, actor models.Actor, workspaceID, id string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return err
	}

	folder, err := s.folderRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return err
	}

	if err := s.folderRepo.SoftDelete(ctx, folder.ID, ws.ID, actor.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	s.logger.Info("folder deleted", "folder_id", folder.ID, "workspace_id", ws.ID, "route", folder.Route)
	return nil
}

// Restore clears the folder's soft-delete marker. If an ancestor is still
// deleted the folder stays hidden until that ancestor is restored too.
func (s *FolderService) Restore(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.Folder, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByIDIncludingDeleted(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if folder.DeletedAt == nil {
		return nil, &domain.ValidationError{Message: "folder is not deleted"}
	}

	return s.folderRepo.Restore(ctx, id, ws.ID)
}

// ForceDelete permanently removes an already-soft-deleted folder and its
// whole subtree. Placements pointing into the subtree go with it; the files
// themselves survive.
func (s *FolderService) ForceDelete(ctx context.Context, actor models.Actor, workspaceID, id string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFolders)
	if err != nil {
		return err
	}

	folder, err := s.folderRepo.GetByIDIncludingDeleted(ctx, id, ws.ID)
	if err != nil {
		return err
	}
	if folder.DeletedAt == nil {
		return &domain.ValidationError{Message: "folder must be deleted before it can be permanently removed"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.folderRepo.HardDeleteSubtree(txCtx, ws.ID, folder.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to permanently delete folder: %w", err)
	}

	s.logger.Info("folder permanently deleted", "folder_id", folder.ID, "workspace_id", ws.ID, "route", folder.Route)
	return nil
}

// checkSiblingName rejects a duplicate live sibling name, excluding selfID.
// The partial unique index is the backstop under concurrency; this pre-check
// exists to return a conflict that names the existing folder.
func (s *FolderService) checkSiblingName(ctx context.Context, workspaceID string, parentID *string, name, selfID string) error {
	existing, err := s.folderRepo.GetChildByName(ctx, workspaceID, parentID, name)
	if err != nil {
		return fmt.Errorf("failed to check sibling names: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named '%s' already exists here", name),
			ResourceType: "folder",
			ResourceID:   existing.ID,
		}
	}
	return nil
}

// checkNoCycle walks from the candidate parent up to the root and fails if it
// passes through the folder being moved.
func (s *FolderService) checkNoCycle(ctx context.Context, workspaceID, folderID string, newParent *models.Folder) error {
	current := newParent
	for {
		if current.ID == folderID {
			return &domain.ValidationError{Message: "a folder cannot be moved under its own descendant"}
		}
		if current.ParentID == nil {
			return nil
		}
		next, err := s.folderRepo.GetByID(ctx, *current.ParentID, workspaceID)
		if err != nil {
			return fmt.Errorf("walk ancestors: %w", err)
		}
		current = next
	}
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
