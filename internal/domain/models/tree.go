package models

import "time"

// TreeNode is the root of a workspace's folder/file tree.
type TreeNode struct {
	Folders []*FolderTreeNode `json:"folders"`
}

// FolderTreeNode is a folder in the tree with nested children and the files
// placed in it, in placement order.
type FolderTreeNode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Route     string            `json:"route"`
	Level     int               `json:"level"`
	Order     int               `json:"order"`
	ParentID  *string           `json:"parent_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Folders   []*FolderTreeNode `json:"folders"` // Pointers for proper nesting
	Files     []FileTreeNode    `json:"files"`
}

// FileTreeNode is a file entry in the tree (metadata only).
type FileTreeNode struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Extension string    `json:"extension"`
	Order     int       `json:"order"`
	UpdatedAt time.Time `json:"updated_at"`
}
