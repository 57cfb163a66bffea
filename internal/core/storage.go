package core

import (
	"context"
	"fmt"

	"venueadmin/internal/blob"
	"venueadmin/internal/config"
	blobfs "venueadmin/internal/infra/blob/fs"
	blobmemory "venueadmin/internal/infra/blob/memory"
	blobs3 "venueadmin/internal/infra/blob/s3"
	"venueadmin/internal/infra/persistence/memory"
	"venueadmin/internal/infra/persistence/postgres"
	"venueadmin/internal/infra/persistence/remote"
	"venueadmin/internal/infra/persistence/sqlite"
	"venueadmin/pkg/domain"
)

// StorageDriver identifies a concrete record store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRemote   StorageDriver = "remote"   // venueadmin-api over HTTP
)

// BlobNone disables the baseline archive.
const BlobNone blob.Driver = "none"

// OpenRecordStore selects a backend from the configuration. Stores holding
// connections implement io.Closer.
func OpenRecordStore(ctx context.Context, cfg config.Config) (domain.RecordStore, error) {
	switch StorageDriver(cfg.StorageDriver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite, "":
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageRemote:
		client, err := remote.New(cfg.RemoteURL, remote.WithToken(cfg.RemoteToken))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}

// OpenBlobStore selects the archive backend; it returns nil when archiving is
// disabled.
func OpenBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch blob.Driver(cfg.BlobDriver) {
	case BlobNone, "":
		return nil, nil
	case blob.DriverMemory:
		return blobmemory.New(), nil
	case blob.DriverFilesystem:
		store, err := blobfs.New(cfg.BlobFSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case blob.DriverS3:
		store, err := blobs3.New(ctx, blobs3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.BlobDriver)
	}
}
