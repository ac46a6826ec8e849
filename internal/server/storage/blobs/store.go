// Package blobs stores document ciphertext in object storage.
package blobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the contract for saving and retrieving opaque blobs by key.
// Get returns an error matching common.ErrorNotFound for a missing key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh object key under the owner's namespace.
func NewKey(ownerID string, now time.Time) string {
	return fmt.Sprintf("documents/%s/%d/%02d/%02d/%v", ownerID, now.Year(), now.Month(), now.Day(), uuid.New())
}
