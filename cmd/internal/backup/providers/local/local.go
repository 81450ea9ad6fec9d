package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	defaultLocalBackupPath = "/var/opt/google/pgsql/dumps"
)

// BackupProviderLocal stores dump archives in a local directory
type BackupProviderLocal struct {
	fs     afero.Fs
	log    *zap.SugaredLogger
	config *BackupProviderConfigLocal
}

// BackupProviderConfigLocal provides configuration for the BackupProviderLocal
type BackupProviderConfigLocal struct {
	LocalBackupPath string
	ObjectsToKeep   int64
	FS              afero.Fs
}

// New returns a local backup provider
func New(log *zap.SugaredLogger, config *BackupProviderConfigLocal) (*BackupProviderLocal, error) {
	if config == nil {
		return nil, errors.New("local backup provider requires a provider config")
	}

	if config.ObjectsToKeep == 0 {
		config.ObjectsToKeep = constants.DefaultObjectsToKeep
	}
	if config.LocalBackupPath == "" {
		config.LocalBackupPath = defaultLocalBackupPath
	}
	if config.FS == nil {
		config.FS = afero.NewOsFs()
	}

	return &BackupProviderLocal{
		config: config,
		log:    log,
		fs:     config.FS,
	}, nil
}

// EnsureBackupBucket ensures the dump archive directory exists
func (b *BackupProviderLocal) EnsureBackupBucket(_ context.Context) error {
	b.log.Infow("ensuring dump archive directory", "path", b.config.LocalBackupPath)

	if err := b.fs.MkdirAll(b.config.LocalBackupPath, 0777); err != nil {
		return fmt.Errorf("could not create local dump archive directory: %w", err)
	}

	return nil
}

// CleanupBackups cleans up dump archives, nothing to do here because the archive names cycle
func (b *BackupProviderLocal) CleanupBackups(_ context.Context) error {
	return nil
}

// DownloadBackup downloads the given dump archive version to the specified folder
func (b *BackupProviderLocal) DownloadBackup(_ context.Context, version *providers.BackupVersion, outDir string) (string, error) {
	source := filepath.Join(b.config.LocalBackupPath, version.Name)

	backupFilePath := filepath.Join(outDir, version.Name)

	err := utils.Copy(b.fs, source, backupFilePath)
	if err != nil {
		return "", err
	}

	return backupFilePath, nil
}

// UploadBackup copies a dump archive to the archive directory
func (b *BackupProviderLocal) UploadBackup(_ context.Context, sourcePath string) error {
	destination := filepath.Join(b.config.LocalBackupPath, filepath.Base(sourcePath))

	b.log.Debugw("storing dump archive", "src", sourcePath, "dest", destination)

	err := utils.Copy(b.fs, sourcePath, destination)
	if err != nil {
		return err
	}

	return nil
}

// GetNextBackupName returns a name for the next dump archive that is going to
// be stored. Names cycle from 0 to ObjectsToKeep-1 so the oldest archive gets
// overwritten once the retention count is reached. The cycle position is
// derived from the newest archive in the directory because every invocation
// of the tool starts a fresh process.
func (b *BackupProviderLocal) GetNextBackupName(ctx context.Context) string {
	versions, err := b.ListBackups(ctx)
	if err != nil {
		return "0"
	}

	latest := versions.Latest()
	if latest == nil {
		return "0"
	}

	name := latest.Name
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}

	n, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return "0"
	}

	return strconv.FormatInt((n+1)%b.config.ObjectsToKeep, 10)
}

// ListBackups lists the available dump archives
func (b *BackupProviderLocal) ListBackups(_ context.Context) (providers.BackupVersions, error) {
	d, err := b.fs.Open(b.config.LocalBackupPath)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	var files []os.FileInfo
	for _, name := range names {
		info, err := b.fs.Stat(filepath.Join(b.config.LocalBackupPath, name))
		if err != nil {
			return nil, err
		}
		files = append(files, info)
	}

	return backupVersionsLocal{
		files: files,
	}, nil
}
