package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/stretchr/testify/require"
)

func TestRestoreVersionFlagsAreIndependent(t *testing.T) {
	require.NoError(t, restoreCmd.Flags().Set(restoreVersionFlg, "3"))
	t.Cleanup(func() { _ = restoreCmd.Flags().Set(restoreVersionFlg, "") })

	// the upgrade command carries a flag of the same name, it must not
	// shadow the value given to the restore command
	require.Equal(t, "3", restoreVersionArg(restoreCmd))
	require.Empty(t, restoreVersionArg(upgradeCmd))

	require.NoError(t, upgradeCmd.Flags().Set(restoreVersionFlg, "7"))
	t.Cleanup(func() { _ = upgradeCmd.Flags().Set(restoreVersionFlg, "") })

	require.Equal(t, "3", restoreVersionArg(restoreCmd))
	require.Equal(t, "7", restoreVersionArg(upgradeCmd))
}

func TestPrintVersionsTable(t *testing.T) {
	var out bytes.Buffer

	printVersionsTable(&out, []*providers.BackupVersion{
		{Name: "3.tar.gz", Version: "0", Date: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Name: "2.tar.gz", Version: "1", Date: time.Date(2026, 1, 1, 3, 4, 5, 0, time.UTC)},
	})

	require.Contains(t, out.String(), "NAME")
	require.Contains(t, out.String(), "3.tar.gz")
	require.Contains(t, out.String(), "2026-01-02T03:04:05Z")
}
