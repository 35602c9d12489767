package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/uuid"
)

type azureRemoteStore struct {
	client    *azblob.Client
	container string
}

// NewAzureRemoteStore creates a RemoteStore backed by an Azure blob
// container using shared-key credentials.
func NewAzureRemoteStore(accountName, accountKey, container string) (RemoteStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureRemoteStore{
		client:    client,
		container: container,
	}, nil
}

// Upload stores the local file under a collision-free blob name and returns
// that name as the asset ID.
func (s *azureRemoteStore) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	assetID := uuid.NewString() + "-" + filepath.Base(localPath)
	if _, err := s.client.UploadFile(ctx, s.container, assetID, file, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return assetID, nil
}

func (s *azureRemoteStore) Download(ctx context.Context, assetID, localPath string) error {
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer file.Close()

	if _, err := s.client.DownloadFile(ctx, s.container, assetID, file, nil); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

func (s *azureRemoteStore) List(ctx context.Context) ([]AssetMetadata, error) {
	var assets []AssetMetadata

	pager := s.client.NewListBlobsFlatPager(s.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing failed: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			asset := AssetMetadata{}
			if item.Name != nil {
				asset.ID = *item.Name
				asset.Name = *item.Name
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					asset.SizeBytes = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					asset.ModifiedAt = *item.Properties.LastModified
				}
			}
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

func (s *azureRemoteStore) Delete(ctx context.Context, assetID string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, assetID, nil); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}
