package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// CreateDatabase creates the given application database owned by the cluster role.
func (c *Cluster) CreateDatabase(ctx context.Context, database string) error {
	args := []string{"--owner=" + c.user, "--encoding=UTF8"}
	if c.host != "" {
		args = append(args, "--host="+c.host)
	}
	if c.port != 0 {
		args = append(args, "--port="+strconv.Itoa(c.port))
	}
	if c.user != "" {
		args = append(args, "--username="+c.user)
	}
	args = append(args, database)

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresCreateDBCmd, c.env(), args...)
	if err != nil {
		return fmt.Errorf("error creating database %s: %s %w", database, out, err)
	}

	return nil
}

// DropDatabase drops the given application database, missing databases are tolerated.
func (c *Cluster) DropDatabase(ctx context.Context, database string) error {
	args := []string{"--if-exists"}
	if c.host != "" {
		args = append(args, "--host="+c.host)
	}
	if c.port != 0 {
		args = append(args, "--port="+strconv.Itoa(c.port))
	}
	if c.user != "" {
		args = append(args, "--username="+c.user)
	}
	args = append(args, database)

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresDropDBCmd, c.env(), args...)
	if err != nil {
		return fmt.Errorf("error dropping database %s: %s %w", database, out, err)
	}

	return nil
}

// ApplySchema loads the schema sql file of the given database with psql.
// A missing schema file aborts, an empty database without its schema is of no use to the server.
func (c *Cluster) ApplySchema(ctx context.Context, database string) error {
	schema := c.schemaFile(database)
	if _, err := os.Stat(schema); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("schema file not present: %s", schema)
	}

	args := append(c.connectionArgs(database), "-q", "-v", "ON_ERROR_STOP=1", "-f", schema)

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresPsqlCmd, c.env(), args...)
	if err != nil {
		return fmt.Errorf("error applying schema to database %s: %s %w", database, out, err)
	}

	c.log.Infow("applied schema", "database", database, "schema", schema)

	return nil
}

// Recreate drops and recreates the given database and loads its schema.
func (c *Cluster) Recreate(ctx context.Context, database string) error {
	if err := c.DropDatabase(ctx, database); err != nil {
		return err
	}

	if err := c.CreateDatabase(ctx, database); err != nil {
		return err
	}

	return c.ApplySchema(ctx, database)
}
