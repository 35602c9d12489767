package storage

import (
	"context"
	"time"
)

// AssetMetadata describes one remotely stored analysis artifact.
type AssetMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RemoteStore is the narrow interface the rest of the system sees for
// off-box artifact storage. The core pipeline never depends on any
// implementation of it.
type RemoteStore interface {
	// Upload stores the local file remotely and returns its asset ID.
	Upload(ctx context.Context, localPath string) (string, error)

	// Download fetches the asset into localPath.
	Download(ctx context.Context, assetID, localPath string) error

	// List enumerates stored assets.
	List(ctx context.Context) ([]AssetMetadata, error)

	// Delete removes the asset.
	Delete(ctx context.Context, assetID string) error
}
