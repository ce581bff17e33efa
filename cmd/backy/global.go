package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/password"
	"github.com/backy/backy/internal/repository"

	"github.com/spf13/pflag"
)

var version = "0.1.0-dev (compiled manually)"

// GlobalOptions hold all global options for backy.
type GlobalOptions struct {
	DataDir      string
	PasswordFile string
	Quiet        bool
	Verbose      int

	password string
	stdin    *os.File
	stdout   io.Writer
	stderr   io.Writer

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report minor things, this is used when --verbose is specified
	verbosity uint
}

var globalOptions = GlobalOptions{
	stdin:  os.Stdin,
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.DataDir, "data-dir", "d", "", "base `directory` of the repository (default: $BACKY_DATA_DIR or the per-user data directory)")
	f.StringVarP(&opts.PasswordFile, "password-file", "p", "", "`file` to read the encryption password from (default: $BACKY_PASSWORD_FILE)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "only print errors and requested data")
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``)")

	opts.DataDir = os.Getenv("BACKY_DATA_DIR")
	opts.PasswordFile = os.Getenv("BACKY_PASSWORD_FILE")
}

func (opts *GlobalOptions) PreRun() error {
	// set verbosity, default is one
	opts.verbosity = 1
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified at the same time")
	}

	switch {
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}

	return nil
}

// repository returns the repository selected by the global options.
func (opts GlobalOptions) repository() *repository.Repository {
	cfg := repository.NewConfig()
	cfg.DataDir = opts.DataDir
	return repository.New(cfg)
}

// Printf writes the message to the configured stdout stream.
func Printf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stdout, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stdout: %v\n", err)
	}
}

// Verbosef calls Printf to write the message unless --quiet is set.
func Verbosef(format string, args ...interface{}) {
	if globalOptions.verbosity >= 1 {
		Printf(format, args...)
	}
}

// Verboseff calls Printf to write the message when the verbose flag is set.
func Verboseff(format string, args ...interface{}) {
	if globalOptions.verbosity >= 2 {
		Printf(format, args...)
	}
}

// Warnf writes the message to the configured stderr stream.
func Warnf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stderr, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stderr: %v\n", err)
	}
	debug.Log(format, args...)
}

// resolvePassword returns the password from the password file or the
// environment variable envStr. It returns an empty string if neither is set.
func resolvePassword(opts GlobalOptions, envStr string) (string, error) {
	if opts.PasswordFile != "" {
		return password.FromFile(opts.PasswordFile)
	}

	if pwd := os.Getenv(envStr); pwd != "" {
		return pwd, nil
	}

	return "", nil
}

// ReadPassword reads the password from a password file, the environment
// variable envStr or prompts the user. If the context is canceled, the
// function leaks the password reading goroutine.
func ReadPassword(ctx context.Context, opts GlobalOptions, envStr, prompt string) (string, error) {
	if opts.password != "" {
		return opts.password, nil
	}

	pwd, err := resolvePassword(opts, envStr)
	if err != nil {
		return "", err
	}

	if pwd == "" {
		stdin := opts.stdin
		if stdin == nil {
			stdin = os.Stdin
		}

		if password.IsTerminal(stdin) {
			pwd, err = password.Prompt(ctx, stdin, os.Stderr, prompt)
		} else {
			Verboseff("reading password from stdin\n")
			pwd, err = password.ReadLine(stdin)
		}
		if err != nil {
			return "", errors.E(errors.KindConfig, "read password", "", err)
		}
	}

	if pwd == "" {
		return "", errors.E(errors.KindConfig, "read password", "", errors.Fatal("an empty password is not allowed"))
	}

	return pwd, nil
}
