package main

import (
	"context"

	"github.com/backy/backy/internal/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newListCommand() *cobra.Command {
	var opts ListOptions

	cmd := &cobra.Command{
		Use:   "list [flags]",
		Short: "List the blobs in the repository",
		Long: `
The "list" command prints the IDs of all blobs in the repository, in the order
they were saved.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 4 if the index of the repository is corrupt.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// ListOptions bundles all options for the list command.
type ListOptions struct {
	Long bool
}

func (opts *ListOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVarP(&opts.Long, "long", "l", false, "also print length and file name of each blob")
}

func runList(_ context.Context, opts ListOptions, gopts GlobalOptions, args []string) error {
	if len(args) > 0 {
		return errors.Fatal("the list command expects no arguments")
	}

	repo := gopts.repository()

	if !opts.Long {
		ids, err := repo.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			Printf("%s\n", id)
		}
		return nil
	}

	entries, err := repo.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		Printf("%s %10d %s\n", e.ID, e.Length, e.Filename)
	}
	return nil
}
