package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"depot/internal/content"
	"depot/internal/domain"
)

// sha256("hello world")
const helloHash = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestUploadCreatesFileAndFirstVersion(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	file := env.mustUpload(t, owner, ws.ID, "notes.txt", []byte("hello world"))

	if file.Hash != helloHash {
		t.Errorf("hash = %q, want %q", file.Hash, helloHash)
	}
	if file.Size != int64(len("hello world")) {
		t.Errorf("size = %d, want %d", file.Size, len("hello world"))
	}
	if file.Extension != "txt" {
		t.Errorf("extension = %q, want txt", file.Extension)
	}
	if !strings.HasPrefix(file.MimeType, "text/plain") {
		t.Errorf("mime = %q, want text/plain", file.MimeType)
	}

	versions, err := env.versionRepo.ListByFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Number != 1 {
		t.Fatalf("versions = %+v, want exactly one with number 1", versions)
	}
	if versions[0].Path != content.Key(ws.ID, helloHash) {
		t.Errorf("path = %q, want content key", versions[0].Path)
	}
	if env.store.Len() != 1 {
		t.Errorf("stored objects = %d, want 1", env.store.Len())
	}
}

func TestReplaceVersionChain(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	file := env.mustUpload(t, owner, ws.ID, "doc.txt", []byte("content X"))

	// Identical content is rejected, no version appended.
	_, err := env.files.Replace(ctx, owner, ws.ID, file.ID, bytes.NewReader([]byte("content X")), "doc.txt")
	if !errors.Is(err, domain.ErrUnchanged) {
		t.Fatalf("identical replace: got %v, want ErrUnchanged", err)
	}
	versions, _ := env.versionRepo.ListByFile(ctx, file.ID)
	if len(versions) != 1 {
		t.Fatalf("versions after rejected replace = %d, want 1", len(versions))
	}

	// Different content becomes version 2; the file follows its type.
	replaced, err := env.files.Replace(ctx, owner, ws.ID, file.ID, bytes.NewReader([]byte("{\"k\":1}")), "doc.json")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.Extension != "json" {
		t.Errorf("extension = %q, want json", replaced.Extension)
	}
	versions, _ = env.versionRepo.ListByFile(ctx, file.ID)
	if len(versions) != 2 || versions[1].Number != 2 {
		t.Fatalf("versions = %+v, want numbers 1,2", versions)
	}

	// Re-uploading the original content is allowed: the check is against the
	// current version only, so "restore by re-upload" yields version 3.
	restored, err := env.files.Replace(ctx, owner, ws.ID, file.ID, bytes.NewReader([]byte("content X")), "doc.txt")
	if err != nil {
		t.Fatalf("re-upload old content: %v", err)
	}
	if restored.Hash == "" {
		t.Error("restored file should be decorated")
	}
	versions, _ = env.versionRepo.ListByFile(ctx, file.ID)
	if len(versions) != 3 || versions[2].Number != 3 {
		t.Fatalf("versions = %d, want 3 with max number 3", len(versions))
	}
}

func TestHashesAreScopedPerFile(t *testing.T) {
	env := newTestEnv()
	ws := env.mustWorkspace(t, owner, "Team")

	// The same bytes in two files dedup storage but not history: each file
	// keeps its own version row.
	a := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("shared"))
	b := env.mustUpload(t, owner, ws.ID, "b.txt", []byte("shared"))

	if a.Hash != b.Hash {
		t.Fatalf("hashes differ for identical content")
	}
	if env.store.Len() != 1 {
		t.Errorf("stored objects = %d, want 1 (content-addressed dedup)", env.store.Len())
	}

	ctx := context.Background()
	va, _ := env.versionRepo.ListByFile(ctx, a.ID)
	vb, _ := env.versionRepo.ListByFile(ctx, b.ID)
	if len(va) != 1 || len(vb) != 1 {
		t.Errorf("each file should own one version, got %d and %d", len(va), len(vb))
	}
}

func TestLockedFileRejectsMutations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	file := env.mustUpload(t, owner, ws.ID, "frozen.txt", []byte("v1"))
	if _, err := env.files.Lock(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := env.files.Replace(ctx, owner, ws.ID, file.ID, bytes.NewReader([]byte("v2")), "frozen.txt"); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("replace while locked: got %v, want ErrLocked", err)
	}
	name := "renamed"
	if _, err := env.files.Update(ctx, owner, ws.ID, file.ID, UpdateFileRequest{Name: &name}); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("update while locked: got %v, want ErrLocked", err)
	}
	if err := env.files.Delete(ctx, owner, ws.ID, file.ID); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("delete while locked: got %v, want ErrLocked", err)
	}

	// Reads still work.
	if _, err := env.files.Get(ctx, owner, ws.ID, file.ID); err != nil {
		t.Errorf("get while locked: %v", err)
	}

	// Unlock is the one allowed mutation; afterwards everything works again.
	if _, err := env.files.Unlock(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := env.files.Replace(ctx, owner, ws.ID, file.ID, bytes.NewReader([]byte("v2")), "frozen.txt"); err != nil {
		t.Errorf("replace after unlock: %v", err)
	}
}

func TestFileDeleteRestoreForce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")
	file := env.mustUpload(t, owner, ws.ID, "doc.txt", []byte("x"))
	if _, err := env.placements.Place(ctx, owner, ws.ID, file.ID, folder.ID); err != nil {
		t.Fatalf("place: %v", err)
	}

	if err := env.files.ForceDelete(ctx, owner, ws.ID, file.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("force delete live file: got %v, want validation error", err)
	}

	if err := env.files.Delete(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Placements survive the soft delete so restore puts the file back.
	placements, _ := env.placementRepo.ListByFile(ctx, file.ID)
	if len(placements) != 1 {
		t.Errorf("placements after soft delete = %d, want 1", len(placements))
	}

	restored, err := env.files.Restore(ctx, owner, ws.ID, file.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Error("restored file should be live")
	}

	if err := env.files.Delete(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if err := env.files.ForceDelete(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("force delete: %v", err)
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	file := env.mustUpload(t, owner, ws.ID, "doc.txt", []byte("payload"))

	rc, version, err := env.files.Download(ctx, owner, ws.ID, file.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want payload", data)
	}
	if version.Number != 1 {
		t.Errorf("version = %d, want 1", version.Number)
	}

	// The counter moved; the value is informational, not part of history.
	got, _ := env.versionRepo.GetByID(ctx, version.ID, file.ID)
	if got.Downloads != 1 {
		t.Errorf("downloads = %d, want 1", got.Downloads)
	}
}
