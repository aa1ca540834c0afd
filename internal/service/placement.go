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

// PlacementService manages where files appear (ordered placements in
// folders) and how they are labeled (unordered tag markings).
type PlacementService struct {
	placementRepo repositories.PlacementRepository
	tagRepo       repositories.TagRepository
	fileRepo      repositories.FileRepository
	folderRepo    repositories.FolderRepository
	guard         AccessGuard
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

func NewPlacementService(
	placementRepo repositories.PlacementRepository,
	tagRepo repositories.TagRepository,
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	guard AccessGuard,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *PlacementService {
	return &PlacementService{
		placementRepo: placementRepo,
		tagRepo:       tagRepo,
		fileRepo:      fileRepo,
		folderRepo:    folderRepo,
		guard:         guard,
		txManager:     txManager,
		logger:        logger,
	}
}

// Place puts a file into a folder at the end of the folder's order. Both
// sides must be live and in the same workspace; a file can appear in a folder
// at most once.
func (s *PlacementService) Place(ctx context.Context, actor models.Actor, workspaceID, fileID, folderID string) (*models.Placement, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	if _, err := s.folderRepo.GetByID(ctx, folderID, ws.ID); err != nil {
		return nil, fmt.Errorf("folder: %w", err)
	}

	placement := &models.Placement{
		FileID:    fileID,
		FolderID:  folderID,
		CreatedAt: time.Now(),
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		order, err := s.placementRepo.NextOrder(txCtx, folderID)
		if err != nil {
			return fmt.Errorf("failed to compute placement order: %w", err)
		}
		placement.Order = order
		return s.placementRepo.Create(txCtx, placement)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.ConflictError{
				Message:      "file is already placed in this folder",
				ResourceType: "placement",
				ResourceID:   fileID,
			}
		}
		return nil, err
	}

	s.logger.Info("file placed", "file_id", fileID, "folder_id", folderID, "workspace_id", ws.ID, "order", placement.Order)
	return placement, nil
}

// Unplace removes a file from a folder. The file itself is untouched; gaps
// left in the folder's order are fine, ordering only needs to be monotonic.
func (s *PlacementService) Unplace(ctx context.Context, actor models.Actor, workspaceID, fileID, folderID string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	if _, err := s.folderRepo.GetByID(ctx, folderID, ws.ID); err != nil {
		return fmt.Errorf("folder: %w", err)
	}

	return s.placementRepo.Delete(ctx, fileID, folderID)
}

// Reorder bulk-applies a new placement order within one folder. The deferred
// unique constraint validates the permutation at commit.
func (s *PlacementService) Reorder(ctx context.Context, actor models.Actor, workspaceID, folderID string, orders []repositories.PlacementOrder) error {
	if len(orders) == 0 {
		return &domain.ValidationError{Message: "orders must not be empty"}
	}
	for _, o := range orders {
		if o.Order < 1 {
			return &domain.ValidationError{Message: "order values must be positive"}
		}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	if _, err := s.folderRepo.GetByID(ctx, folderID, ws.ID); err != nil {
		return fmt.Errorf("folder: %w", err)
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.placementRepo.UpdateOrders(txCtx, folderID, orders)
	})
}

// Placements lists the folders a file is placed in.
func (s *PlacementService) Placements(ctx context.Context, actor models.Actor, workspaceID, fileID string) ([]models.Placement, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}
	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	return s.placementRepo.ListByFile(ctx, fileID)
}

// FolderContents is one folder's listing: its live subfolders in sibling
// order and its live files in placement order.
type FolderContents struct {
	Folder  *models.Folder  `json:"folder"`
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

// Contents lists a folder's subfolders and placed files. Soft-deleted files
// stay placed but are skipped here.
func (s *PlacementService) Contents(ctx context.Context, actor models.Actor, workspaceID, folderID string) (*FolderContents, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID, ws.ID)
	if err != nil {
		return nil, err
	}

	subfolders, err := s.folderRepo.ListChildren(ctx, ws.ID, &folder.ID)
	if err != nil {
		return nil, err
	}

	placements, err := s.placementRepo.ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	files := make([]models.File, 0, len(placements))
	for _, p := range placements {
		file, err := s.fileRepo.GetByID(ctx, p.FileID, ws.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // placed file is soft-deleted
			}
			return nil, err
		}
		files = append(files, *file)
	}

	return &FolderContents{Folder: folder, Folders: subfolders, Files: files}, nil
}

// CreateTagRequest carries the fields for creating a tag.
type CreateTagRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r CreateTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxTagNameLength)),
	)
}

// CreateTag creates a tag. Tags are flat, unordered labels shared across the
// deployment.
func (s *PlacementService) CreateTag(ctx context.Context, actor models.Actor, req CreateTagRequest) (*models.Tag, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	tag := &models.Tag{
		ID:          newID(),
		Name:        req.Name,
		Slug:        slug.Make(req.Name),
		Color:       req.Color,
		Description: req.Description,
		CreatedBy:   actor.ID,
		CreatedAt:   time.Now(),
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a tag named '%s' already exists", req.Name),
				ResourceType: "tag",
			}
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// Tags lists all tags.
func (s *PlacementService) Tags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

// DeleteTag removes a tag; its markings go with it.
func (s *PlacementService) DeleteTag(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.tagRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.tagRepo.Delete(ctx, id)
}

// Mark attaches a tag to a file. Markings are unordered; marking twice is a
// conflict.
func (s *PlacementService) Mark(ctx context.Context, actor models.Actor, workspaceID, fileID, tagID string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		return fmt.Errorf("tag: %w", err)
	}

	m := &models.Marking{FileID: fileID, TagID: tagID, CreatedAt: time.Now()}
	if err := s.tagRepo.Mark(ctx, m); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return &domain.ConflictError{
				Message:      "file is already marked with this tag",
				ResourceType: "marking",
			}
		}
		return fmt.Errorf("failed to mark file: %w", err)
	}
	return nil
}

// Unmark detaches a tag from a file.
func (s *PlacementService) Unmark(ctx context.Context, actor models.Actor, workspaceID, fileID, tagID string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return fmt.Errorf("file: %w", err)
	}

	return s.tagRepo.Unmark(ctx, fileID, tagID)
}

// TagsForFile lists the tags attached to a file.
func (s *PlacementService) TagsForFile(ctx context.Context, actor models.Actor, workspaceID, fileID string) ([]models.Tag, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}
	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	return s.tagRepo.ListTagsForFile(ctx, fileID)
}
