package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"librasflow/internal/config"
)

// ErrObjectNotFound reports a missing object at the requested path.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the durable binary store for video uploads and export
// artifacts. Put returns a retrievable URL for the stored object; Get and
// Delete address objects by the same path used on Put.
type ObjectStore interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, objectPath string) ([]byte, error)
	Delete(ctx context.Context, objectPath string) error
}

// ObjectPath builds the canonical object path for a project artifact. Paths
// are namespaced by owner and project so deletion cascades stay scoped.
func ObjectPath(ownerID, projectID, name string) string {
	return path.Join(ownerID, projectID, name)
}

// New constructs the object store selected by configuration.
func New(cfg config.Storage) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "supabase":
		return NewSupabaseStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
