package main

import (
	"context"

	"github.com/backy/backy/internal/errors"

	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the repository",
		Long: `
The "init" command creates the repository directory and an empty index. Running
it on an existing repository leaves the repository unchanged.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 2 if the data directory cannot be determined.
Exit status is 3 if the repository cannot be created.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), globalOptions, args)
		},
	}
	return cmd
}

func runInit(_ context.Context, gopts GlobalOptions, args []string) error {
	if len(args) > 0 {
		return errors.Fatal("the init command expects no arguments, only options - please see `backy help init` for usage and flags")
	}

	repoDir, indexPath, err := gopts.repository().Init()
	if err != nil {
		return err
	}

	Verbosef("repository at %s\n", repoDir)
	Verboseff("index at %s\n", indexPath)
	return nil
}
