package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"depot/internal/domain/models"
	"depot/internal/httputil"
	"depot/internal/service"
)

// FileHandler handles file and version HTTP requests. Uploads arrive as
// multipart forms; external references as JSON.
type FileHandler struct {
	files  *service.FileService
	logger *slog.Logger
}

func NewFileHandler(files *service.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// maxUploadSize caps multipart uploads at 100MB.
const maxUploadSize = 100 << 20

// UploadFile creates a file from a multipart upload
// POST /api/workspaces/{id}/files
// Form fields: file (content), name, description.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer part.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	file, err := h.files.Upload(r.Context(), actor, workspaceID, service.UploadRequest{
		Name:        name,
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		Content:     part,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// externalFileRequest is the JSON body for attach-by-URL endpoints.
type externalFileRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	URL         string         `json:"url"`
}

// UploadExternalFile creates a file referencing a remote URL
// POST /api/workspaces/{id}/files/external
func (h *FileHandler) UploadExternalFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req externalFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := h.files.UploadExternal(r.Context(), actor, workspaceID, service.UploadExternalRequest{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
		URL:         req.URL,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// GetFile retrieves a file with its current version's url/size/hash
// GET /api/workspaces/{id}/files/{fileId}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.files.Get(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// ListFiles lists the workspace's live files
// GET /api/workspaces/{id}/files
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	files, err := h.files.List(r.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, files)
}

// UpdateFile applies partial metadata updates
// PATCH /api/workspaces/{id}/files/{fileId}
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
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

	var req service.UpdateFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := h.files.Update(r.Context(), actor, workspaceID, fileID, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// ReplaceFile appends a new version from a multipart upload
// POST /api/workspaces/{id}/files/{fileId}/versions
// Returns 409 when the content is identical to the current version.
func (h *FileHandler) ReplaceFile(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer part.Close()

	file, err := h.files.Replace(r.Context(), actor, workspaceID, fileID, part, header.Filename)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// ReplaceFileExternal appends a new external version
// POST /api/workspaces/{id}/files/{fileId}/versions/external
func (h *FileHandler) ReplaceFileExternal(w http.ResponseWriter, r *http.Request) {
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

	var req externalFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := h.files.ReplaceExternal(r.Context(), actor, workspaceID, fileID, req.URL)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// ListVersions lists the file's version history
// GET /api/workspaces/{id}/files/{fileId}/versions
func (h *FileHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
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

	versions, err := h.files.Versions(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// DownloadFile streams the current version's content. External versions
// redirect to their source URL instead of streaming.
// GET /api/workspaces/{id}/files/{fileId}/download
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
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

	rc, version, err := h.files.Download(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	if rc == nil {
		http.Redirect(w, r, version.Path, http.StatusTemporaryRedirect)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", version.Size))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("download stream interrupted", "file_id", fileID, "error", err)
	}
}

// LockFile marks the file read-only
// POST /api/workspaces/{id}/files/{fileId}/lock
func (h *FileHandler) LockFile(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

// UnlockFile clears the read-only mark
// DELETE /api/workspaces/{id}/files/{fileId}/lock
func (h *FileHandler) UnlockFile(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *FileHandler) setLock(w http.ResponseWriter, r *http.Request, lock bool) {
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

	var (
		file *models.File
		err  error
	)
	if lock {
		file, err = h.files.Lock(r.Context(), actor, workspaceID, fileID)
	} else {
		file, err = h.files.Unlock(r.Context(), actor, workspaceID, fileID)
	}
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile soft-deletes a file
// DELETE /api/workspaces/{id}/files/{fileId}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.files.Delete(r.Context(), actor, workspaceID, fileID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreFile clears the file's soft-delete marker
// POST /api/workspaces/{id}/files/{fileId}/restore
func (h *FileHandler) RestoreFile(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.files.Restore(r.Context(), actor, workspaceID, fileID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// ForceDeleteFile permanently removes a soft-deleted file
// DELETE /api/workspaces/{id}/files/{fileId}/force
func (h *FileHandler) ForceDeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.files.ForceDelete(r.Context(), actor, workspaceID, fileID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
