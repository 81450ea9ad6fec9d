package providers

import (
	"context"
	"time"
)

// BackupProvider stores and retrieves dump archives
type BackupProvider interface {
	EnsureBackupBucket(ctx context.Context) error
	ListBackups(ctx context.Context) (BackupVersions, error)
	CleanupBackups(ctx context.Context) error
	GetNextBackupName(ctx context.Context) string
	DownloadBackup(ctx context.Context, version *BackupVersion, outDir string) (string, error)
	UploadBackup(ctx context.Context, sourcePath string) error
}

type BackupVersions interface {
	// Latest returns the most recent dump archive
	Latest() *BackupVersion
	// List returns all dump archives sorted by date descending, e.g. the newest archive comes first
	List() []*BackupVersion
	// Get a dump archive at the specified version
	Get(version string) (*BackupVersion, error)
}

type BackupVersion struct {
	Name    string
	Version string
	Date    time.Time
}
