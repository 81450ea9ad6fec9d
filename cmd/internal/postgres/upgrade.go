package postgres

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	postgresConfigCmd   = "pg_config"
	postgresVersionFile = "PG_VERSION"
)

// DataVersion returns the major version of the cluster in the data directory.
func (c *Cluster) DataVersion() (uint64, error) {
	// cat PG_VERSION
	// 12
	pgVersionFile := path.Join(c.datadir, postgresVersionFile)

	pgVersionBytes, err := os.ReadFile(pgVersionFile)
	if err != nil {
		return 0, fmt.Errorf("unable to read %q: %w", pgVersionFile, err)
	}

	pgVersion, err := strconv.ParseUint(strings.TrimSpace(string(pgVersionBytes)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to convert content of %q (content: %q) to integer: %w", pgVersionFile, string(pgVersionBytes), err)
	}

	return pgVersion, nil
}

// BinaryVersion returns the major version of the installed postgres binaries.
func (c *Cluster) BinaryVersion(ctx context.Context) (uint64, error) {
	// pg_config --version
	// PostgreSQL 12.16
	out, err := c.executor.ExecuteCommandWithOutput(ctx, postgresConfigCmd, nil, "--version")
	if err != nil {
		return 0, fmt.Errorf("unable to detect postgres binary version: %s %w", out, err)
	}

	return c.extractVersion(out)
}

func (c *Cluster) extractVersion(commandOutput string) (uint64, error) {
	_, binaryVersionString, found := strings.Cut(commandOutput, "PostgreSQL ")
	if !found {
		return 0, fmt.Errorf("unable to detect postgres binary version in pg_config output %q", commandOutput)
	}

	binaryVersionString, _, _ = strings.Cut(binaryVersionString, " ")

	v, err := semver.NewVersion(strings.TrimSpace(binaryVersionString))
	if err != nil {
		return 0, fmt.Errorf("unable to parse postgres binary version in %q: %w", binaryVersionString, err)
	}

	return v.Major(), nil
}
