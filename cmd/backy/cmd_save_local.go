package main

import (
	"context"
	"io"

	"github.com/backy/backy/internal/backend/local"
	"github.com/backy/backy/internal/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newSaveLocalCommand() *cobra.Command {
	var opts SaveLocalOptions

	cmd := &cobra.Command{
		Use:   "save-local [flags] PATH",
		Short: "Copy a file or directory into a plain directory",
		Long: `
The "save-local" command copies PATH into the destination directory without
indexing or encryption. Directories are copied recursively. Files without an
extension get the extension ".blob". Existing files are replaced.

With PATH "-", data is read from stdin and stored under --stdin-filename.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 3 if reading or writing failed.
`,
		GroupID:           cmdGroupTransfer,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveLocal(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// SaveLocalOptions bundles all options for the save-local command.
type SaveLocalOptions struct {
	Dest          string
	StdinFilename string
	Connections   uint
}

func (opts *SaveLocalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.Dest, "dest", "", "destination `directory`")
	f.StringVar(&opts.StdinFilename, "stdin-filename", "stdin", "`filename` to use when reading from stdin")
	f.UintVar(&opts.Connections, "connections", local.NewConfig().Connections, "number of files to copy concurrently")
}

func runSaveLocal(ctx context.Context, opts SaveLocalOptions, gopts GlobalOptions, args []string) error {
	if len(args) != 1 {
		return errors.Fatal("the save-local command expects exactly one path")
	}
	if opts.Dest == "" {
		return errors.E(errors.KindConfig, "save-local", "", errors.Fatal("no destination directory given, use --dest"))
	}

	var (
		path string
		err  error
	)

	if args[0] == "-" {
		if gopts.stdin == nil {
			return errors.Fatal("no stdin available")
		}

		var buf []byte
		buf, err = io.ReadAll(gopts.stdin)
		if err != nil {
			return errors.E(errors.KindIO, "read", "stdin", err)
		}
		path, err = local.Save(buf, opts.Dest, opts.StdinFilename)
	} else {
		cfg := local.NewConfig()
		cfg.Connections = opts.Connections
		path, err = local.Mirror(ctx, cfg, args[0], opts.Dest)
	}
	if err != nil {
		return err
	}

	Verbosef("saved to %s\n", path)
	return nil
}
