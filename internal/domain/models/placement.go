package models

import (
	"time"
)

// Placement is the ordered many-to-many join of File and Folder. A file may
// appear in many folders but at most once per folder; Order is the 1-based
// sibling sequence scoped to the folder. Join rows are hard-deleted.
type Placement struct {
	FileID    string    `json:"file_id" db:"file_id"`
	FolderID  string    `json:"folder_id" db:"folder_id"`
	Order     int       `json:"order" db:"ord"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Marking is the unordered many-to-many join of File and Tag.
type Marking struct {
	FileID    string    `json:"file_id" db:"file_id"`
	TagID     string    `json:"tag_id" db:"tag_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
