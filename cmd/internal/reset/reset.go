package reset

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/postgres"
	"github.com/opengee/gepgdb/cmd/internal/restore"
)

// Resetter recreates the application databases of the server
type Resetter struct {
	log      *zap.SugaredLogger
	cluster  *postgres.Cluster
	restorer *restore.Restorer
}

type ResetterConfig struct {
	Log     *zap.SugaredLogger
	Cluster *postgres.Cluster
	// Restorer is required for the upgrade mode only
	Restorer *restore.Restorer
}

func New(config *ResetterConfig) *Resetter {
	return &Resetter{
		log:      config.Log,
		cluster:  config.Cluster,
		restorer: config.Restorer,
	}
}

// Soft drops and recreates every application database and reapplies its
// schema. The cluster itself, its roles and configuration stay untouched.
func (r *Resetter) Soft(ctx context.Context) error {
	if err := r.cluster.EnsureRunning(ctx); err != nil {
		return fmt.Errorf("database server must be running for a soft reset: %w", err)
	}

	for _, database := range constants.Databases {
		r.log.Infow("recreating database", "database", database)

		if err := r.cluster.Recreate(ctx, database); err != nil {
			return err
		}
	}

	r.log.Info("soft reset done")

	return nil
}

// Hard wipes the whole cluster data directory, initializes a fresh cluster
// and recreates the role and all application databases with their schemas.
func (r *Resetter) Hard(ctx context.Context) error {
	if err := r.cluster.Stop(ctx); err != nil {
		return fmt.Errorf("unable to stop database server: %w", err)
	}

	r.log.Info("wiping data directory")

	if err := r.cluster.WipeDataDir(); err != nil {
		return fmt.Errorf("unable to wipe data directory: %w", err)
	}

	if err := r.cluster.InitDB(ctx); err != nil {
		return err
	}

	if err := r.cluster.Start(ctx); err != nil {
		return err
	}

	if err := r.cluster.EnsureRole(ctx); err != nil {
		return err
	}

	for _, database := range constants.Databases {
		r.log.Infow("creating database", "database", database)

		if err := r.cluster.CreateDatabase(ctx, database); err != nil {
			return err
		}

		if err := r.cluster.ApplySchema(ctx, database); err != nil {
			return err
		}
	}

	r.log.Info("hard reset done")

	return nil
}

// Upgrade performs a dump-and-reload major version upgrade: the data
// directory is re-initialized with the installed binaries and the databases
// are reloaded from the given dump archive version.
//
// The caller has to take a backup with the previous binaries before the new
// binaries are installed, upgrading without a dump archive is impossible.
func (r *Resetter) Upgrade(ctx context.Context, version string) error {
	if r.restorer == nil {
		return fmt.Errorf("upgrade requires a configured backup provider")
	}

	empty, err := r.cluster.DataDirIsEmpty()
	if err != nil {
		return err
	}
	if empty {
		return fmt.Errorf("data directory contains no cluster, nothing to upgrade")
	}

	dataVersion, err := r.cluster.DataVersion()
	if err != nil {
		return err
	}

	binaryVersion, err := r.cluster.BinaryVersion(ctx)
	if err != nil {
		return err
	}

	if dataVersion == binaryVersion {
		r.log.Infow("no version difference, no upgrade required", "database-version", dataVersion, "binary-version", binaryVersion)
		return nil
	}
	if dataVersion > binaryVersion {
		return fmt.Errorf("database is newer than the installed postgres binaries, aborting (database-version: %d, binary-version: %d)", dataVersion, binaryVersion)
	}

	// resolve the archive before wiping anything
	backup, err := r.restorer.Resolve(ctx, version)
	if err != nil {
		return fmt.Errorf("unable to resolve dump archive for upgrade: %w", err)
	}

	r.log.Infow("upgrading cluster by dump and reload", "database-version", dataVersion, "binary-version", binaryVersion, "archive", backup.Name)

	if err := r.Hard(ctx); err != nil {
		return err
	}

	if err := r.restorer.Restore(ctx, backup); err != nil {
		return err
	}

	r.log.Info("upgrade done")

	return nil
}
