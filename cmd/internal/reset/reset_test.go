package reset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	backuperrors "github.com/opengee/gepgdb/cmd/internal/backup/errors"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/local"
	"github.com/opengee/gepgdb/cmd/internal/compress"
	"github.com/opengee/gepgdb/cmd/internal/postgres"
	"github.com/opengee/gepgdb/cmd/internal/restore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestResetter_UpgradeGates(t *testing.T) {
	var (
		ctx = context.Background()
		log = zaptest.NewLogger(t).Sugar()
	)

	// stub of the installed postgres binaries at major version 12
	bin := t.TempDir()
	err := os.WriteFile(filepath.Join(bin, "pg_config"), []byte("#!/bin/sh\necho PostgreSQL 12.16\n"), 0755)
	require.NoError(t, err)
	t.Setenv("PATH", bin)

	newCluster := func(t *testing.T, dataVersion string) (*postgres.Cluster, string) {
		datadir := t.TempDir()
		if dataVersion != "" {
			require.NoError(t, os.WriteFile(filepath.Join(datadir, "PG_VERSION"), []byte(dataVersion+"\n"), 0600))
		}

		return postgres.New(log, datadir, t.TempDir(), "localhost", 5432, "geuser", ""), datadir
	}

	newRestorer := func(t *testing.T, cluster *postgres.Cluster) *restore.Restorer {
		bp, err := local.New(log, &local.BackupProviderConfigLocal{
			LocalBackupPath: "/dumps",
			FS:              afero.NewMemMapFs(),
		})
		require.NoError(t, err)
		require.NoError(t, bp.EnsureBackupBucket(ctx))

		comp, err := compress.New("targz")
		require.NoError(t, err)

		return restore.New(&restore.RestorerConfig{
			Log:     log,
			Cluster: cluster,
			BP:      bp,
			Comp:    comp,
		})
	}

	t.Run("missing backup provider", func(t *testing.T) {
		cluster, _ := newCluster(t, "12")
		r := New(&ResetterConfig{Log: log, Cluster: cluster})

		require.ErrorContains(t, r.Upgrade(ctx, ""), "backup provider")
	})

	t.Run("no cluster in the data directory", func(t *testing.T) {
		cluster, _ := newCluster(t, "")
		r := New(&ResetterConfig{Log: log, Cluster: cluster, Restorer: newRestorer(t, cluster)})

		require.ErrorContains(t, r.Upgrade(ctx, ""), "nothing to upgrade")
	})

	t.Run("equal majors are a no-op", func(t *testing.T) {
		cluster, _ := newCluster(t, "12")
		r := New(&ResetterConfig{Log: log, Cluster: cluster, Restorer: newRestorer(t, cluster)})

		require.NoError(t, r.Upgrade(ctx, ""))
	})

	t.Run("database newer than the binaries", func(t *testing.T) {
		cluster, _ := newCluster(t, "13")
		r := New(&ResetterConfig{Log: log, Cluster: cluster, Restorer: newRestorer(t, cluster)})

		require.ErrorContains(t, r.Upgrade(ctx, ""), "newer than the installed postgres binaries")
	})

	t.Run("without a dump archive the data directory survives", func(t *testing.T) {
		cluster, datadir := newCluster(t, "11")
		r := New(&ResetterConfig{Log: log, Cluster: cluster, Restorer: newRestorer(t, cluster)})

		err := r.Upgrade(ctx, "")
		require.ErrorIs(t, err, backuperrors.NoBackupsAvailableError{})

		// the archive has to be resolved before anything gets wiped
		_, err = os.Stat(filepath.Join(datadir, "PG_VERSION"))
		require.NoError(t, err)
	})
}
