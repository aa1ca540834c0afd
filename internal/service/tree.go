package service

import (
	"context"
	"log/slog"
	"sort"

	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// TreeService assembles the full folder/file tree of a workspace.
type TreeService struct {
	folderRepo    repositories.FolderRepository
	fileRepo      repositories.FileRepository
	placementRepo repositories.PlacementRepository
	guard         AccessGuard
	logger        *slog.Logger
}

func NewTreeService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	placementRepo repositories.PlacementRepository,
	guard AccessGuard,
	logger *slog.Logger,
) *TreeService {
	return &TreeService{
		folderRepo:    folderRepo,
		fileRepo:      fileRepo,
		placementRepo: placementRepo,
		guard:         guard,
		logger:        logger,
	}
}

// Build returns the workspace tree: live folders nested by parent, each with
// its live files in placement order. Folders under a deleted ancestor are
// excluded even though their own rows are live.
func (s *TreeService) Build(ctx context.Context, actor models.Actor, workspaceID string) (*models.TreeNode, error) {
	ws, err := s.guard.EnsureAccess(ctx, actor, workspaceID, "")
	if err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListLive(ctx, ws.ID)
	if err != nil {
		return nil, err
	}

	files, err := s.fileRepo.List(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	fileByID := make(map[string]*models.File, len(files))
	for i := range files {
		fileByID[files[i].ID] = &files[i]
	}

	nodes := make(map[string]*models.FolderTreeNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &models.FolderTreeNode{
			ID:        f.ID,
			Name:      f.Name,
			Route:     f.Route,
			Level:     f.Level,
			Order:     f.Order,
			ParentID:  f.ParentID,
			CreatedAt: f.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Files:     []models.FileTreeNode{},
		}
	}

	for _, f := range folders {
		node := nodes[f.ID]
		placements, err := s.placementRepo.ListByFolder(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range placements {
			file, ok := fileByID[p.FileID]
			if !ok {
				continue // placed file is soft-deleted
			}
			node.Files = append(node.Files, models.FileTreeNode{
				ID:        file.ID,
				Name:      file.Name,
				MimeType:  file.MimeType,
				Extension: file.Extension,
				Order:     p.Order,
				UpdatedAt: file.UpdatedAt,
			})
		}
	}

	// Attach children to parents; parents missing from the live set (deleted
	// ancestors) orphan their subtrees out of the result.
	tree := &models.TreeNode{Folders: []*models.FolderTreeNode{}}
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID == nil {
			tree.Folders = append(tree.Folders, node)
			continue
		}
		if parent, ok := nodes[*f.ParentID]; ok {
			parent.Folders = append(parent.Folders, node)
		}
	}

	sortTree(tree.Folders)
	return tree, nil
}

// sortTree orders siblings by their ord sequence, recursively.
func sortTree(nodes []*models.FolderTreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	for _, n := range nodes {
		sortTree(n.Folders)
	}
}
