package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/utils"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

const (
	postgresCtlCmd        = "pg_ctl"
	postgresInitDBCmd     = "initdb"
	postgresCreateDBCmd   = "createdb"
	postgresDropDBCmd     = "dropdb"
	postgresCreateUserCmd = "createuser"
	postgresPsqlCmd       = "psql"
	postgresDumpCmd       = "pg_dump"

	startupLog = constants.StagingBaseDir + "/pgstartup.log"
)

// Cluster wraps the external postgres toolchain for a single server cluster.
type Cluster struct {
	datadir   string
	schemadir string
	host      string
	port      int
	user      string
	password  string
	log       *zap.SugaredLogger
	executor  *utils.CmdExecutor
}

// New instantiates a new postgres cluster handle
func New(log *zap.SugaredLogger, datadir string, schemadir string, host string, port int, user string, password string) *Cluster {
	return &Cluster{
		log:       log,
		datadir:   datadir,
		schemadir: schemadir,
		host:      host,
		port:      port,
		user:      user,
		password:  password,
		executor:  utils.NewExecutor(log),
	}
}

// IsRunning reports whether the postgres server of this cluster is up.
func (c *Cluster) IsRunning(ctx context.Context) bool {
	_, err := c.executor.ExecuteCommandWithOutput(ctx, postgresCtlCmd, nil, "status", "-D", c.datadir)
	return err == nil
}

// Start starts the postgres server and waits until it accepts connections.
func (c *Cluster) Start(ctx context.Context) error {
	if err := os.MkdirAll(constants.StagingBaseDir, 0777); err != nil {
		return fmt.Errorf("could not create staging directory: %w", err)
	}

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresCtlCmd, nil, "start", "-w", "-D", c.datadir, "-l", startupLog, "-o", fmt.Sprintf("-p %d", c.port))
	if err != nil {
		return fmt.Errorf("error starting database server: %s %w", out, err)
	}

	return c.WaitForReady(ctx)
}

// Stop stops the postgres server with a fast shutdown.
func (c *Cluster) Stop(ctx context.Context) error {
	if !c.IsRunning(ctx) {
		c.log.Info("database server is already stopped")
		return nil
	}

	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresCtlCmd, nil, "stop", "-w", "-m", "fast", "-D", c.datadir)
	if err != nil {
		return fmt.Errorf("error stopping database server: %s %w", out, err)
	}

	return nil
}

// EnsureRunning starts the server in case it is not already up.
func (c *Cluster) EnsureRunning(ctx context.Context) error {
	if c.IsRunning(ctx) {
		return c.WaitForReady(ctx)
	}

	c.log.Info("database server is not running, starting it")

	return c.Start(ctx)
}

// InitDB initializes a fresh cluster in the data directory.
func (c *Cluster) InitDB(ctx context.Context) error {
	if err := os.MkdirAll(c.datadir, 0700); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}

	// the application role becomes the cluster superuser so that all
	// following commands can connect with it right away
	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresInitDBCmd, nil, "-D", c.datadir, "--username="+c.user, "--auth=trust", "--encoding=UTF8")
	if err != nil {
		return fmt.Errorf("error initializing database cluster: %s %w", out, err)
	}

	c.log.Debugw("initialized new database cluster", "output", out)

	return nil
}

// Probe figures out if the database server is running and accepts connections.
func (c *Cluster) Probe(ctx context.Context) error {
	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable", c.host, c.port, c.user, c.password)

	dbc, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("unable to open postgres connection %w", err)
	}
	defer dbc.Close()

	err = dbc.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("unable to ping postgres connection %w", err)
	}

	return nil
}

// WaitForReady probes the server until it accepts connections.
func (c *Cluster) WaitForReady(ctx context.Context) error {
	return retry.Do(func() error {
		err := c.Probe(ctx)
		if err != nil {
			c.log.Infow("database server is still starting, continue probing for readiness...", "error", err)
			return err
		}
		return nil
	}, retry.Attempts(20), retry.Context(ctx))
}

// EnsureRole makes sure the application database role exists. The lookup
// connects as the role itself, when that fails the role cannot connect yet
// and gets created through createuser, which connects as the operating
// system user owning the cluster.
func (c *Cluster) EnsureRole(ctx context.Context) error {
	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresPsqlCmd, c.env(), append(c.connectionArgs("postgres"),
		"-tA", "-c", fmt.Sprintf("SELECT 1 FROM pg_roles WHERE rolname = '%s'", c.user))...)
	if err == nil && out == "1" {
		c.log.Infow("database role already exists", "role", c.user)
		return nil
	}
	if err != nil {
		c.log.Infow("role lookup failed, creating the role", "role", c.user, "output", out)
	}

	args := []string{"--superuser", "--login"}
	if c.host != "" {
		args = append(args, "--host="+c.host)
	}
	if c.port != 0 {
		args = append(args, "--port="+strconv.Itoa(c.port))
	}
	args = append(args, c.user)

	out, err = c.executor.ExecuteCommandWithOutput(ctx, postgresCreateUserCmd, nil, args...)
	if err != nil {
		if strings.Contains(out, "already exists") {
			c.log.Infow("database role already exists", "role", c.user)
			return nil
		}

		return fmt.Errorf("error creating database role: %s %w", out, err)
	}

	c.log.Infow("created database role", "role", c.user)

	return nil
}

// DataDirIsEmpty returns whether the data directory does not contain a cluster yet.
func (c *Cluster) DataDirIsEmpty() (bool, error) {
	if _, err := os.Stat(c.datadir); os.IsNotExist(err) {
		return true, nil
	}

	return utils.IsEmpty(c.datadir)
}

// WipeDataDir removes all contents from the data directory.
func (c *Cluster) WipeDataDir() error {
	if _, err := os.Stat(c.datadir); os.IsNotExist(err) {
		return nil
	}

	return utils.RemoveContents(c.datadir)
}

func (c *Cluster) connectionArgs(dbname string) []string {
	var args []string
	if c.host != "" {
		args = append(args, "--host="+c.host)
	}
	if c.port != 0 {
		args = append(args, "--port="+strconv.Itoa(c.port))
	}
	if c.user != "" {
		args = append(args, "--username="+c.user)
	}
	if dbname != "" {
		args = append(args, "--dbname="+dbname)
	}
	return args
}

func (c *Cluster) env() []string {
	var env []string
	if c.password != "" {
		env = append(env, "PGPASSWORD="+c.password)
	}
	return env
}

func (c *Cluster) schemaFile(database string) string {
	return path.Join(c.schemadir, database+".sql")
}
