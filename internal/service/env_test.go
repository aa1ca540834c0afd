package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"depot/internal/content"
	"depot/internal/domain/models"
)

// testEnv wires every service against the in-memory fakes and a memory
// content store.
type testEnv struct {
	wsRepo        *fakeWorkspaceRepo
	memberRepo    *fakeMembershipRepo
	folderRepo    *fakeFolderRepo
	fileRepo      *fakeFileRepo
	versionRepo   *fakeVersionRepo
	placementRepo *fakePlacementRepo
	tagRepo       *fakeTagRepo
	store         *content.MemoryStore

	workspaces *WorkspaceService
	folders    *FolderService
	files      *FileService
	placements *PlacementService
	trees      *TreeService
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := &fakeTxManager{}

	env := &testEnv{
		wsRepo:        newFakeWorkspaceRepo(),
		memberRepo:    newFakeMembershipRepo(),
		folderRepo:    newFakeFolderRepo(),
		fileRepo:      newFakeFileRepo(),
		versionRepo:   newFakeVersionRepo(),
		placementRepo: newFakePlacementRepo(),
		tagRepo:       newFakeTagRepo(),
		store:         content.NewMemoryStore(),
	}

	env.workspaces = NewWorkspaceService(env.wsRepo, env.memberRepo, env.folderRepo, env.fileRepo, tx, logger)
	env.folders = NewFolderService(env.folderRepo, env.workspaces, tx, logger)
	env.files = NewFileService(env.fileRepo, env.versionRepo, env.workspaces, tx, env.store, models.DiskLocal, NewIntake(logger), logger)
	env.placements = NewPlacementService(env.placementRepo, env.tagRepo, env.fileRepo, env.folderRepo, env.workspaces, tx, logger)
	env.trees = NewTreeService(env.folderRepo, env.fileRepo, env.placementRepo, env.workspaces, logger)

	return env
}

// mustWorkspace creates a workspace owned by the actor, failing the test on
// error.
func (env *testEnv) mustWorkspace(t *testing.T, actor models.Actor, name string) *models.Workspace {
	t.Helper()
	ws, err := env.workspaces.Create(context.Background(), actor, CreateWorkspaceRequest{Name: name})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}

// mustFolder creates a folder, failing the test on error.
func (env *testEnv) mustFolder(t *testing.T, actor models.Actor, workspaceID string, parentID *string, name string) *models.Folder {
	t.Helper()
	folder, err := env.folders.Create(context.Background(), actor, workspaceID, CreateFolderRequest{
		ParentID: parentID,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return folder
}

// mustUpload uploads a file from a byte slice, failing the test on error.
func (env *testEnv) mustUpload(t *testing.T, actor models.Actor, workspaceID, name string, data []byte) *models.File {
	t.Helper()
	file, err := env.files.Upload(context.Background(), actor, workspaceID, UploadRequest{
		Name:     name,
		Filename: name,
		Content:  bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("upload %q: %v", name, err)
	}
	return file
}
