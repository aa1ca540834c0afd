package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"depot/internal/config"
	"depot/internal/content"
	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// FileService manages files and their append-only version chains. Content
// bytes live in the content store under hash-derived keys; the database holds
// only version metadata.
type FileService struct {
	fileRepo    repositories.FileRepository
	versionRepo repositories.VersionRepository
	guard       AccessGuard
	txManager   repositories.TransactionManager
	store       content.Store
	disk        string // disk name recorded on versions written to store
	intake      *Intake
	logger      *slog.Logger
}

func NewFileService(
	fileRepo repositories.FileRepository,
	versionRepo repositories.VersionRepository,
	guard AccessGuard,
	txManager repositories.TransactionManager,
	store content.Store,
	disk string,
	intake *Intake,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		versionRepo: versionRepo,
		guard:       guard,
		txManager:   txManager,
		store:       store,
		disk:        disk,
		intake:      intake,
		logger:      logger,
	}
}

// UploadRequest carries a direct upload: name plus raw content.
type UploadRequest struct {
	Name        string
	Description string
	Metadata    map[string]any
	Filename    string // original filename, extension hint only
	Content     io.Reader
}

func (r UploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxFileNameLength)),
		validation.Field(&r.Content, validation.Required.Error("content is required")),
	)
}

// UploadExternalRequest carries an upload by reference: the content is
// fetched from the URL once, hashed, and recorded as an external version.
type UploadExternalRequest struct {
	Name        string
	Description string
	Metadata    map[string]any
	URL         string
}

func (r UploadExternalRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxFileNameLength)),
		validation.Field(&r.URL, validation.Required),
	)
}

// UpdateFileRequest carries partial metadata updates; nil means unchanged.
type UpdateFileRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (r UpdateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxFileNameLength)),
	)
}

// Upload creates a file and its version 1 atomically. A file never exists
// without at least one version.
func (s *FileService) Upload(ctx context.Context, actor models.Actor, workspaceID string, req UploadRequest) (*models.File, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	dg, data, err := s.intake.DigestReader(req.Content, req.Filename)
	if err != nil {
		return nil, err
	}

	key := content.Key(ws.ID, dg.Hash)
	now := time.Now()
	file := &models.File{
		ID:          newID(),
		WorkspaceID: ws.ID,
		Name:        req.Name,
		Description: req.Description,
		MimeType:    dg.MimeType,
		Extension:   dg.Extension,
		Metadata:    req.Metadata,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	version := &models.Version{
		ID:        newID(),
		FileID:    file.ID,
		Number:    1,
		Hash:      dg.Hash,
		Disk:      s.disk,
		Path:      key,
		Size:      dg.Size,
		CreatedBy: actor.ID,
		CreatedAt: now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Store write first: an orphan object on rollback is harmless because
		// keys are content-addressed and a retry reuses the same key.
		if _, err := s.store.Put(txCtx, key, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to store content: %w", err)
		}
		if err := s.fileRepo.Create(txCtx, file); err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		return s.versionRepo.Create(txCtx, version)
	})
	if err != nil {
		return nil, err
	}

	s.decorateWith(file, version)
	s.logger.Info("file uploaded", "file_id", file.ID, "workspace_id", ws.ID, "hash", dg.Hash, "size", dg.Size)
	return file, nil
}

// UploadExternal creates a file whose version 1 references a remote URL. The
// content is fetched once to measure and hash it, but the bytes are not
// copied into the store; the version's path is the URL itself.
func (s *FileService) UploadExternal(ctx context.Context, actor models.Actor, workspaceID string, req UploadExternalRequest) (*models.File, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	dg, _, err := s.intake.FetchExternal(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	file := &models.File{
		ID:          newID(),
		WorkspaceID: ws.ID,
		Name:        req.Name,
		Description: req.Description,
		MimeType:    dg.MimeType,
		Extension:   dg.Extension,
		Metadata:    req.Metadata,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	version := &models.Version{
		ID:        newID(),
		FileID:    file.ID,
		Number:    1,
		Hash:      dg.Hash,
		Disk:      models.DiskExternal,
		Path:      req.URL,
		Size:      dg.Size,
		CreatedBy: actor.ID,
		CreatedAt: now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.fileRepo.Create(txCtx, file); err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		return s.versionRepo.Create(txCtx, version)
	})
	if err != nil {
		return nil, err
	}

	s.decorateWith(file, version)
	s.logger.Info("external file attached", "file_id", file.ID, "workspace_id", ws.ID, "url", req.URL)
	return file, nil
}

// Replace appends a new version with the uploaded content. Byte-identical
// content is rejected with ErrUnchanged before anything is written; the
// comparison is hash equality against the current version only, so restoring
// older content via re-upload still creates a new version.
func (s *FileService) Replace(ctx context.Context, actor models.Actor, workspaceID, fileID string, r io.Reader, filename string) (*models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, fileID, ws.ID)
	if err != nil {
		return nil, err
	}
	if file.Locked {
		return nil, &domain.LockedError{FileID: file.ID}
	}

	dg, data, err := s.intake.DigestReader(r, filename)
	if err != nil {
		return nil, err
	}

	key := content.Key(ws.ID, dg.Hash)
	var version *models.Version
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.versionRepo.Current(txCtx, file.ID)
		if err != nil {
			return fmt.Errorf("current version: %w", err)
		}
		if current.Hash == dg.Hash {
			return fmt.Errorf("uploaded content is identical to version %d: %w", current.Number, domain.ErrUnchanged)
		}

		if _, err := s.store.Put(txCtx, key, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to store content: %w", err)
		}

		now := time.Now()
		version = &models.Version{
			ID:        newID(),
			FileID:    file.ID,
			Number:    current.Number + 1,
			Hash:      dg.Hash,
			Disk:      s.disk,
			Path:      key,
			Size:      dg.Size,
			CreatedBy: actor.ID,
			CreatedAt: now,
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		// The replacement may change the content type; the file follows its
		// current version.
		file.MimeType = dg.MimeType
		file.Extension = dg.Extension
		file.UpdatedBy = &actor.ID
		file.UpdatedAt = now
		return s.fileRepo.Update(txCtx, file)
	})
	if err != nil {
		return nil, err
	}

	s.decorateWith(file, version)
	s.logger.Info("file replaced", "file_id", file.ID, "workspace_id", ws.ID, "version", version.Number, "hash", dg.Hash)
	return file, nil
}

// ReplaceExternal appends a new external version referencing the URL.
func (s *FileService) ReplaceExternal(ctx context.Context, actor models.Actor, workspaceID, fileID, rawURL string) (*models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, fileID, ws.ID)
	if err != nil {
		return nil, err
	}
	if file.Locked {
		return nil, &domain.LockedError{FileID: file.ID}
	}

	dg, _, err := s.intake.FetchExternal(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var version *models.Version
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.versionRepo.Current(txCtx, file.ID)
		if err != nil {
			return fmt.Errorf("current version: %w", err)
		}
		if current.Hash == dg.Hash {
			return fmt.Errorf("fetched content is identical to version %d: %w", current.Number, domain.ErrUnchanged)
		}

		now := time.Now()
		version = &models.Version{
			ID:        newID(),
			FileID:    file.ID,
			Number:    current.Number + 1,
			Hash:      dg.Hash,
			Disk:      models.DiskExternal,
			Path:      rawURL,
			Size:      dg.Size,
			CreatedBy: actor.ID,
			CreatedAt: now,
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		file.MimeType = dg.MimeType
		file.Extension = dg.Extension
		file.UpdatedBy = &actor.ID
		file.UpdatedAt = now
		return s.fileRepo.Update(txCtx, file)
	})
	if err != nil {
		return nil, err
	}

	s.decorateWith(file, version)
	return file, nil
}

// Get retrieves a live file decorated with its current version.
func (s *FileService) Get(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// List lists the live files of a workspace, each decorated with its current
// version.
func (s *FileService) List(ctx context.Context, actor models.Actor, workspaceID string) ([]models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}

	files, err := s.fileRepo.List(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if err := s.decorate(ctx, &files[i]); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Update applies partial updates to name, description and metadata.
func (s *FileService) Update(ctx context.Context, actor models.Actor, workspaceID, id string, req UpdateFileRequest) (*models.File, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if file.Locked {
		return nil, &domain.LockedError{FileID: file.ID}
	}

	if req.Name != nil {
		file.Name = *req.Name
	}
	if req.Description != nil {
		file.Description = *req.Description
	}
	if req.Metadata != nil {
		file.Metadata = req.Metadata
	}
	file.UpdatedBy = &actor.ID
	file.UpdatedAt = time.Now()

	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	if err := s.decorate(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Lock marks the file read-only. Further content or metadata mutations are
// rejected until Unlock.
func (s *FileService) Lock(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.File, error) {
	return s.setLocked(ctx, actor, workspaceID, id, true)
}

// Unlock clears the read-only mark.
func (s *FileService) Unlock(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.File, error) {
	return s.setLocked(ctx, actor, workspaceID, id, false)
}

func (s *FileService) setLocked(ctx context.Context, actor models.Actor, workspaceID, id string, locked bool) (*models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if file.Locked == locked {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("file is already %s", lockedWord(locked))}
	}

	file.Locked = locked
	file.UpdatedBy = &actor.ID
	file.UpdatedAt = time.Now()
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	if err := s.decorate(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func lockedWord(locked bool) string {
	if locked {
		return "locked"
	}
	return "unlocked"
}

// Delete soft-deletes the file. Placements and markings stay in place so a
// restore brings the file back exactly where it was.
func (s *FileService) Delete(ctx context.Context, actor models.Actor, workspaceID, id string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	file, err := s.fileRepo.GetByID(ctx, id, ws.ID)
	if err != nil {
		return err
	}
	if file.Locked {
		return &domain.LockedError{FileID: file.ID}
	}

	return s.fileRepo.SoftDelete(ctx, file.ID, ws.ID, actor.ID, time.Now())
}

// Restore clears the file's soft-delete marker.
func (s *FileService) Restore(ctx context.Context, actor models.Actor, workspaceID, id string) (*models.File, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByIDIncludingDeleted(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if file.DeletedAt == nil {
		return nil, &domain.ValidationError{Message: "file is not deleted"}
	}

	restored, err := s.fileRepo.Restore(ctx, id, ws.ID)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, restored); err != nil {
		return nil, err
	}
	return restored, nil
}

// ForceDelete permanently removes an already-soft-deleted file and its
// versions. Stored objects are left in place: content keys are shared by
// every version in the workspace with the same bytes, so object removal is a
// garbage-collection concern, not a delete-path one.
func (s *FileService) ForceDelete(ctx context.Context, actor models.Actor, workspaceID, id string) error {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, models.CapabilityFiles)
	if err != nil {
		return err
	}

	file, err := s.fileRepo.GetByIDIncludingDeleted(ctx, id, ws.ID)
	if err != nil {
		return err
	}
	if file.DeletedAt == nil {
		return &domain.ValidationError{Message: "file must be deleted before it can be permanently removed"}
	}

	if err := s.fileRepo.HardDelete(ctx, file.ID, ws.ID); err != nil {
		return fmt.Errorf("failed to permanently delete file: %w", err)
	}

	s.logger.Info("file permanently deleted", "file_id", file.ID, "workspace_id", ws.ID)
	return nil
}

// Versions lists the file's version history, oldest first.
func (s *FileService) Versions(ctx context.Context, actor models.Actor, workspaceID, fileID string) ([]models.Version, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}

	if _, err := s.fileRepo.GetByID(ctx, fileID, ws.ID); err != nil {
		return nil, err
	}
	return s.versionRepo.ListByFile(ctx, fileID)
}

// Download opens the current version's content for streaming. For external
// versions the reader is nil and the caller redirects to the version's Path.
// The download counter bump is best-effort: a failed bump is logged, never
// surfaced, and never blocks the stream.
func (s *FileService) Download(ctx context.Context, actor models.Actor, workspaceID, fileID string) (io.ReadCloser, *models.Version, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, fileID, ws.ID)
	if err != nil {
		return nil, nil, err
	}

	version, err := s.versionRepo.Current(ctx, file.ID)
	if err != nil {
		return nil, nil, err
	}

	var rc io.ReadCloser
	if version.Disk != models.DiskExternal {
		rc, err = s.store.Get(ctx, version.Path)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				return nil, nil, &domain.NotFoundError{Message: "stored content is missing"}
			}
			return nil, nil, err
		}
	}

	if err := s.versionRepo.IncrementDownloads(ctx, version.ID); err != nil {
		s.logger.Warn("failed to record download", "version_id", version.ID, "error", err)
	}

	return rc, version, nil
}

// decorate fills the computed URL/Size/Hash fields from the current version.
func (s *FileService) decorate(ctx context.Context, file *models.File) error {
	version, err := s.versionRepo.Current(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("current version of file %s: %w", file.ID, err)
	}
	s.decorateWith(file, version)
	return nil
}

func (s *FileService) decorateWith(file *models.File, version *models.Version) {
	file.Size = version.Size
	file.Hash = version.Hash
	if version.Disk == models.DiskExternal {
		url := version.Path
		file.URL = &url
		return
	}
	file.URL = s.store.URL(version.Path)
}
