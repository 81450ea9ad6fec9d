package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

const dumpExtension = ".sql"

// DumpFile returns the path of the dump of the given database below dir.
func DumpFile(dir, database string) string {
	return path.Join(dir, database+dumpExtension)
}

// DumpDatabase dumps the given database as plain sql into dir.
func (c *Cluster) DumpDatabase(ctx context.Context, database string, dir string) error {
	dumpFile := DumpFile(dir, database)

	args := append(c.connectionArgs(database), "--format=plain", "--no-owner", "--file="+dumpFile)

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresDumpCmd, c.env(), args...)
	if err != nil {
		return fmt.Errorf("error dumping database %s: %s %w", database, out, err)
	}

	if _, err := os.Stat(dumpFile); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("dump file was not created: %s", dumpFile)
	}

	c.log.Infow("dumped database", "database", database, "file", dumpFile)

	return nil
}

// LoadDump loads a plain sql dump from dir into the given database.
func (c *Cluster) LoadDump(ctx context.Context, database string, dir string) error {
	dumpFile := DumpFile(dir, database)
	if _, err := os.Stat(dumpFile); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("dump file not present: %s", dumpFile)
	}

	args := append(c.connectionArgs(database), "-q", "-v", "ON_ERROR_STOP=1", "-f", dumpFile)

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresPsqlCmd, c.env(), args...)
	if err != nil {
		return fmt.Errorf("error loading dump into database %s: %s %w", database, out, err)
	}

	c.log.Infow("loaded dump", "database", database, "file", dumpFile)

	return nil
}
