package local

import (
	"context"
	"fmt"
	iofs "io/fs"
	"path"
	"strings"
	"testing"

	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Test_BackupProviderLocal(t *testing.T) {
	var (
		ctx = context.Background()
		log = zaptest.NewLogger(t).Sugar()
	)

	dumpSet := func(i int) string {
		return fmt.Sprintf("-- dump set %d: %s\n", i, strings.Join(constants.Databases, ", "))
	}

	for _, archives := range []int{0, 1, 5, constants.DefaultObjectsToKeep + 5} {
		t.Run(fmt.Sprintf("%d archives", archives), func(t *testing.T) {
			fs := afero.NewMemMapFs()

			p, err := New(log, &BackupProviderConfigLocal{
				FS: fs,
			})
			require.NoError(t, err)
			require.NoError(t, p.EnsureBackupBucket(ctx))

			info, err := fs.Stat(defaultLocalBackupPath)
			require.NoError(t, err)
			require.True(t, info.IsDir())

			for i := 0; i < archives; i++ {
				name := p.GetNextBackupName(ctx) + ".tar.gz"
				require.Equal(t, fmt.Sprintf("%d.tar.gz", i%constants.DefaultObjectsToKeep), name)

				staging := path.Join(constants.UploadDir, name)
				require.NoError(t, afero.WriteFile(fs, staging, []byte(dumpSet(i)), 0600))
				require.NoError(t, p.UploadBackup(ctx, staging))
				require.NoError(t, fs.Remove(staging))
			}

			kept := archives
			if kept > constants.DefaultObjectsToKeep {
				kept = constants.DefaultObjectsToKeep
			}

			stored, err := afero.ReadDir(fs, defaultLocalBackupPath)
			require.NoError(t, err)
			require.Len(t, stored, kept)

			versions, err := p.ListBackups(ctx)
			require.NoError(t, err)

			_, err = versions.Get("no-such-version")
			require.Error(t, err)

			if archives == 0 {
				require.Nil(t, versions.Latest())
				return
			}

			all := versions.List()
			require.Len(t, all, kept)

			for i, v := range all {
				assert.True(t, strings.HasSuffix(v.Name, ".tar.gz"))
				assert.NotZero(t, v.Date)

				got, err := versions.Get(v.Version)
				require.NoError(t, err)
				assert.Equal(t, v, got)

				if i > 0 {
					assert.False(t, v.Date.After(all[i-1].Date))
				}
			}

			latest := versions.Latest()
			require.NotNil(t, latest)
			require.Equal(t, all[0], latest)
			require.Equal(t, fmt.Sprintf("%d.tar.gz", (archives-1)%constants.DefaultObjectsToKeep), latest.Name)

			downloaded, err := p.DownloadBackup(ctx, latest, constants.DownloadDir)
			require.NoError(t, err)
			require.Equal(t, path.Join(constants.DownloadDir, latest.Name), downloaded)

			content, err := afero.ReadFile(fs, downloaded)
			require.NoError(t, err)
			require.Equal(t, dumpSet(archives-1), string(content))
			require.NoError(t, fs.Remove(downloaded))

			require.NoError(t, p.CleanupBackups(ctx))

			// the provider must not touch anything outside the archive directory
			err = afero.Walk(fs, "/", func(walkPath string, info iofs.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					return nil
				}
				if strings.HasPrefix(walkPath, defaultLocalBackupPath) {
					return nil
				}

				return fmt.Errorf("unexpected file outside the archive directory: %s", walkPath)
			})
			require.NoError(t, err)
		})
	}
}

func Test_BackupProviderLocal_NamesCycleAcrossInvocations(t *testing.T) {
	var (
		ctx = context.Background()
		log = zaptest.NewLogger(t).Sugar()
		fs  = afero.NewMemMapFs()
	)

	// every backup run starts a fresh process with a fresh provider over the
	// same archive directory, the name cycle has to continue where the
	// previous run left off instead of overwriting archive 0
	for i := 0; i < 3; i++ {
		p, err := New(log, &BackupProviderConfigLocal{
			FS: fs,
		})
		require.NoError(t, err)
		require.NoError(t, p.EnsureBackupBucket(ctx))

		name := p.GetNextBackupName(ctx) + ".tar.gz"
		require.Equal(t, fmt.Sprintf("%d.tar.gz", i), name)

		staging := path.Join(constants.UploadDir, name)
		require.NoError(t, afero.WriteFile(fs, staging, []byte("dump data"), 0600))
		require.NoError(t, p.UploadBackup(ctx, staging))
	}
}

func Test_BackupProviderLocal_NamesCycleWithEncryptedArchives(t *testing.T) {
	var (
		ctx = context.Background()
		log = zaptest.NewLogger(t).Sugar()
		fs  = afero.NewMemMapFs()
	)

	p, err := New(log, &BackupProviderConfigLocal{
		FS: fs,
	})
	require.NoError(t, err)
	require.NoError(t, p.EnsureBackupBucket(ctx))

	err = afero.WriteFile(fs, path.Join(defaultLocalBackupPath, "4.tar.gz.aes"), []byte("encrypted dump data"), 0600)
	require.NoError(t, err)

	require.Equal(t, "5", p.GetNextBackupName(ctx))
}
