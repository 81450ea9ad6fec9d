package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCluster_connectionArgs(t *testing.T) {
	c := &Cluster{
		host: "127.0.0.1",
		port: 5432,
		user: "geuser",
	}

	require.Equal(t, []string{"--host=127.0.0.1", "--port=5432", "--username=geuser", "--dbname=gestream"}, c.connectionArgs("gestream"))
	require.Equal(t, []string{"--host=127.0.0.1", "--port=5432", "--username=geuser"}, c.connectionArgs(""))

	c = &Cluster{user: "geuser"}
	require.Equal(t, []string{"--username=geuser", "--dbname=gepoi"}, c.connectionArgs("gepoi"))
}

func TestCluster_env(t *testing.T) {
	c := &Cluster{}
	require.Nil(t, c.env())

	c = &Cluster{password: "secret"}
	require.Equal(t, []string{"PGPASSWORD=secret"}, c.env())
}

func TestCluster_DataVersion(t *testing.T) {
	dir := t.TempDir()
	c := &Cluster{datadir: dir}

	_, err := c.DataVersion()
	require.Error(t, err)

	err = os.WriteFile(filepath.Join(dir, postgresVersionFile), []byte("12\n"), 0600)
	require.NoError(t, err)

	v, err := c.DataVersion()
	require.NoError(t, err)
	require.Equal(t, uint64(12), v)
}

func TestCluster_DataDirIsEmpty(t *testing.T) {
	dir := t.TempDir()
	c := &Cluster{datadir: filepath.Join(dir, "does-not-exist")}

	empty, err := c.DataDirIsEmpty()
	require.NoError(t, err)
	require.True(t, empty)

	c = &Cluster{datadir: dir}
	empty, err = c.DataDirIsEmpty()
	require.NoError(t, err)
	require.True(t, empty)

	err = os.WriteFile(filepath.Join(dir, postgresVersionFile), []byte("12\n"), 0600)
	require.NoError(t, err)

	empty, err = c.DataDirIsEmpty()
	require.NoError(t, err)
	require.False(t, empty)
}

func TestDumpFile(t *testing.T) {
	require.Equal(t, "/tmp/dumps/gesearch.sql", DumpFile("/tmp/dumps", "gesearch"))
}

func TestCluster_EnsureRole(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t).Sugar()

	// replaces the postgres client binaries with stubs
	newCluster := func(t *testing.T, psql, createuser string) *Cluster {
		bin := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(bin, "psql"), []byte(psql), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(bin, "createuser"), []byte(createuser), 0755))
		t.Setenv("PATH", bin)

		return New(log, t.TempDir(), t.TempDir(), "", 0, "geuser", "")
	}

	t.Run("role can already connect", func(t *testing.T) {
		c := newCluster(t,
			"#!/bin/sh\necho 1\n",
			"#!/bin/sh\nexit 1\n",
		)
		require.NoError(t, c.EnsureRole(ctx))
	})

	t.Run("role cannot connect yet and gets created", func(t *testing.T) {
		c := newCluster(t,
			"#!/bin/sh\necho psql: error: role geuser does not exist\nexit 2\n",
			"#!/bin/sh\nexit 0\n",
		)
		require.NoError(t, c.EnsureRole(ctx))
	})

	t.Run("role exists but cannot connect", func(t *testing.T) {
		c := newCluster(t,
			"#!/bin/sh\nexit 2\n",
			"#!/bin/sh\necho createuser: error: role geuser already exists\nexit 1\n",
		)
		require.NoError(t, c.EnsureRole(ctx))
	})

	t.Run("creating the role fails", func(t *testing.T) {
		c := newCluster(t,
			"#!/bin/sh\nexit 2\n",
			"#!/bin/sh\necho createuser: error: permission denied\nexit 1\n",
		)
		require.ErrorContains(t, c.EnsureRole(ctx), "error creating database role")
	})
}
