// Package snapshot runs an external snapshot tool (kopia by default) on a
// source directory and returns its report.
package snapshot

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
)

// Config selects the snapshot program.
type Config struct {
	// Program is looked up in $PATH unless it contains a path separator.
	Program string
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{
		Program: "kopia",
	}
}

// Create runs "<program> snapshot create <source> --json" and returns its
// standard output. Invalid UTF-8 in the output is replaced. A non-zero exit
// status is returned as an error that includes the captured stderr.
func Create(ctx context.Context, cfg Config, source string) (string, error) {
	if cfg.Program == "" {
		return "", errors.E(errors.KindConfig, "snapshot", "", errors.New("no snapshot program configured"))
	}

	args := []string{"snapshot", "create", source, "--json"}
	debug.Log("running %v %v", cfg.Program, args)

	cmd := exec.CommandContext(ctx, cfg.Program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		msg := strings.TrimSpace(stderr.String())
		debug.Log("%v failed: %v, stderr: %q", cfg.Program, err, msg)
		if msg != "" {
			return "", errors.Errorf("%v failed with %v: %v", cfg.Program, exitErr.ProcessState, msg)
		}
		return "", errors.Errorf("%v failed with %v", cfg.Program, exitErr.ProcessState)
	case err != nil:
		return "", errors.E(errors.KindIO, "run snapshot program", cfg.Program, err)
	}

	return strings.ToValidUTF8(stdout.String(), "�"), nil
}
