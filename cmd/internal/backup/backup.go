package backup

import (
	"context"
	"fmt"
	"os"
	"path"

	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/compress"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/encryption"
	"github.com/opengee/gepgdb/cmd/internal/metrics"
	"github.com/opengee/gepgdb/cmd/internal/postgres"
)

// Backuper dumps the application databases and ships the archived dumps to a backup provider
type Backuper struct {
	log     *zap.SugaredLogger
	cluster *postgres.Cluster
	bp      providers.BackupProvider
	comp    *compress.BackupCompressor
	enc     *encryption.Encrypter
	metrics *metrics.Metrics
}

type BackuperConfig struct {
	Log     *zap.SugaredLogger
	Cluster *postgres.Cluster
	BP      providers.BackupProvider
	Comp    *compress.BackupCompressor
	// Enc is optional, when set the archive is encrypted before the upload
	Enc *encryption.Encrypter
	// Metrics is optional, only used in scheduled mode
	Metrics *metrics.Metrics
}

func New(config *BackuperConfig) *Backuper {
	return &Backuper{
		log:     config.Log,
		cluster: config.Cluster,
		bp:      config.BP,
		comp:    config.Comp,
		enc:     config.Enc,
		metrics: config.Metrics,
	}
}

// Run takes a single backup of all application databases
func (b *Backuper) Run(ctx context.Context) error {
	if err := b.cluster.EnsureRunning(ctx); err != nil {
		return fmt.Errorf("database server must be running for taking a backup: %w", err)
	}

	if err := b.bp.EnsureBackupBucket(ctx); err != nil {
		return fmt.Errorf("unable to ensure backup bucket: %w", err)
	}

	if err := os.RemoveAll(constants.DumpDir); err != nil {
		return fmt.Errorf("could not clean dump directory: %w", err)
	}

	if err := os.MkdirAll(constants.DumpDir, 0777); err != nil {
		return fmt.Errorf("could not create dump directory: %w", err)
	}

	for _, database := range constants.Databases {
		if err := b.cluster.DumpDatabase(ctx, database, constants.DumpDir); err != nil {
			return err
		}
	}

	archiveBase := path.Join(constants.UploadDir, b.bp.GetNextBackupName(ctx))
	if err := os.RemoveAll(archiveBase + b.comp.Extension()); err != nil {
		return fmt.Errorf("could not delete priorly created archive: %w", err)
	}

	archive, err := b.comp.Compress(constants.DumpDir, archiveBase)
	if err != nil {
		return fmt.Errorf("unable to compress dumps: %w", err)
	}
	b.log.Infow("compressed dumps", "archive", archive)

	if b.enc != nil {
		archive, err = b.enc.Encrypt(archive)
		if err != nil {
			return fmt.Errorf("unable to encrypt archive: %w", err)
		}
		b.log.Infow("encrypted archive", "archive", archive)
	}

	if err := b.bp.UploadBackup(ctx, archive); err != nil {
		return fmt.Errorf("unable to upload dump archive: %w", err)
	}
	b.log.Info("uploaded dump archive to backup provider")

	if b.metrics != nil {
		b.metrics.CountBackup(archive)
	}

	if err := b.bp.CleanupBackups(ctx); err != nil {
		return fmt.Errorf("cleaning up dump archives failed: %w", err)
	}

	return nil
}

// Start runs backups periodically until the context is done
func (b *Backuper) Start(ctx context.Context, schedule string) error {
	b.log.Infow("starting periodic backups", "schedule", schedule)

	c := cron.New()

	id, err := c.AddFunc(schedule, func() {
		err := b.Run(ctx)
		if err != nil {
			if b.metrics != nil {
				b.metrics.CountError("backup")
			}
			b.log.Errorw("database backup failed", "error", err)
			return
		}
		b.log.Infow("successfully backed up databases")

		for _, e := range c.Entries() {
			b.log.Infow("scheduling next backup", "at", e.Next.String())
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	b.log.Infow("scheduling next backup", "at", c.Entry(id).Next.String())
	<-ctx.Done()
	c.Stop()
	return nil
}
