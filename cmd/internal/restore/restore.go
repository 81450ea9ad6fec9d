package restore

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	backuperrors "github.com/opengee/gepgdb/cmd/internal/backup/errors"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/compress"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/encryption"
	"github.com/opengee/gepgdb/cmd/internal/postgres"
)

// Restorer loads a dump archive from the backup provider back into the application databases
type Restorer struct {
	log     *zap.SugaredLogger
	cluster *postgres.Cluster
	bp      providers.BackupProvider
	comp    *compress.BackupCompressor
	enc     *encryption.Encrypter
}

type RestorerConfig struct {
	Log     *zap.SugaredLogger
	Cluster *postgres.Cluster
	BP      providers.BackupProvider
	Comp    *compress.BackupCompressor
	// Enc is optional, required only for encrypted archives
	Enc *encryption.Encrypter
}

func New(config *RestorerConfig) *Restorer {
	return &Restorer{
		log:     config.Log,
		cluster: config.Cluster,
		bp:      config.BP,
		comp:    config.Comp,
		enc:     config.Enc,
	}
}

// Resolve returns the dump archive for the given version, the latest archive when version is empty.
func (r *Restorer) Resolve(ctx context.Context, version string) (*providers.BackupVersion, error) {
	versions, err := r.bp.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve dump archive versions: %w", err)
	}

	if version == "" {
		latest := versions.Latest()
		if latest == nil {
			return nil, backuperrors.NoBackupsAvailableError{}
		}
		return latest, nil
	}

	return versions.Get(version)
}

// Restore restores the application databases from the given dump archive version
func (r *Restorer) Restore(ctx context.Context, version *providers.BackupVersion) error {
	r.log.Infow("restoring dump archive", "version", version.Version, "date", version.Date.String())

	if err := os.RemoveAll(constants.RestoreDir); err != nil {
		return fmt.Errorf("could not clean restore directory: %w", err)
	}

	if err := os.MkdirAll(constants.RestoreDir, 0777); err != nil {
		return fmt.Errorf("could not create restore directory: %w", err)
	}

	backupFilePath, err := r.bp.DownloadBackup(ctx, version, constants.DownloadDir)
	if err != nil {
		return fmt.Errorf("unable to download dump archive: %w", err)
	}

	if encryption.IsEncrypted(backupFilePath) {
		if r.enc == nil {
			return fmt.Errorf("dump archive is encrypted but no encryption key was given: %s", backupFilePath)
		}

		backupFilePath, err = r.enc.Decrypt(backupFilePath)
		if err != nil {
			return fmt.Errorf("unable to decrypt dump archive: %w", err)
		}
	}

	if err := r.comp.Decompress(backupFilePath, constants.RestoreDir); err != nil {
		return fmt.Errorf("unable to decompress dump archive: %w", err)
	}

	if err := r.cluster.EnsureRunning(ctx); err != nil {
		return fmt.Errorf("database server must be running for a restore: %w", err)
	}

	for _, database := range constants.Databases {
		if err := r.cluster.DropDatabase(ctx, database); err != nil {
			return err
		}

		if err := r.cluster.CreateDatabase(ctx, database); err != nil {
			return err
		}

		if err := r.cluster.LoadDump(ctx, database, constants.RestoreDir); err != nil {
			return err
		}
	}

	r.log.Info("successfully restored application databases")

	return nil
}
