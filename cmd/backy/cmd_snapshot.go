package main

import (
	"context"
	"os"

	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/snapshot"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newSnapshotCommand() *cobra.Command {
	var opts SnapshotOptions

	cmd := &cobra.Command{
		Use:   "snapshot [flags] SOURCE",
		Short: "Create a kopia snapshot of a directory",
		Long: `
The "snapshot" command runs "kopia snapshot create SOURCE --json" and prints
the report of kopia. kopia must be installed and connected to a repository.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if kopia failed.
Exit status is 3 if kopia could not be started.
`,
		GroupID:           cmdGroupTransfer,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// SnapshotOptions bundles all options for the snapshot command.
type SnapshotOptions struct {
	Program string
}

func (opts *SnapshotOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.Program, "program", snapshot.NewConfig().Program, "snapshot `program` to run (default: $BACKY_SNAPSHOT_PROGRAM or kopia)")
	if p := os.Getenv("BACKY_SNAPSHOT_PROGRAM"); p != "" {
		opts.Program = p
	}
}

func runSnapshot(ctx context.Context, opts SnapshotOptions, _ GlobalOptions, args []string) error {
	if len(args) != 1 {
		return errors.Fatal("the snapshot command expects exactly one source")
	}

	cfg := snapshot.NewConfig()
	cfg.Program = opts.Program

	out, err := snapshot.Create(ctx, cfg, args[0])
	if err != nil {
		return err
	}

	Printf("%s", out)
	return nil
}
