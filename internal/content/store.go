// Package content abstracts raw byte storage for file versions.
//
// The store manages only bytes under opaque keys. It knows nothing about
// folders, versions or tenants beyond the namespace prefix baked into the
// key. Metadata, hierarchy and access control live in the repositories.
package content

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no content exists at the given path.
var ErrNotFound = errors.New("content not found")

// Store is the contract between the version chain and physical storage.
//
// Put stores the bytes under key and returns the path to persist on the
// Version row. Get streams them back. URL returns a directly fetchable
// address when the backend has one (nil otherwise). Delete is idempotent
// for missing paths on backends where that is cheap to guarantee.
//
// Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	URL(path string) *string
	Delete(ctx context.Context, path string) error
}

// Key derives the storage key for a content hash within a workspace
// namespace. The two-level hex fan-out keeps any single directory from
// growing unbounded, and identical bytes share one object per workspace.
func Key(workspaceID, hash string) string {
	return workspaceID + "/" + hash[0:2] + "/" + hash[2:4] + "/" + hash
}
