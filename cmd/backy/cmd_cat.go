package main

import (
	"context"

	"github.com/backy/backy/internal/crypto"
	"github.com/backy/backy/internal/errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCatCommand() *cobra.Command {
	var opts CatOptions

	cmd := &cobra.Command{
		Use:   "cat [flags] ID",
		Short: "Print the content of a blob",
		Long: `
The "cat" command writes the raw content of a blob to stdout. Encrypted blobs
are decrypted with --decrypt.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 3 if the blob does not exist.
Exit status is 5 if the blob cannot be decrypted (wrong password or corrupted data).
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// CatOptions bundles all options for the cat command.
type CatOptions struct {
	Decrypt bool
}

func (opts *CatOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVar(&opts.Decrypt, "decrypt", false, "decrypt the blob with a password")
}

func runCat(ctx context.Context, opts CatOptions, gopts GlobalOptions, args []string) error {
	if len(args) != 1 {
		return errors.Fatal("the cat command expects exactly one blob ID")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return errors.E(errors.KindConfig, "parse blob id", "", errors.Fatalf("invalid blob ID %q: %v", args[0], err))
	}

	buf, err := gopts.repository().Load(id)
	if err != nil {
		return err
	}

	if opts.Decrypt {
		pwd, err := ReadPassword(ctx, gopts, "BACKY_PASSWORD", "enter password: ")
		if err != nil {
			return err
		}

		buf, err = crypto.Open(buf, pwd)
		if err != nil {
			return err
		}
	}

	_, err = globalOptions.stdout.Write(buf)
	return errors.E(errors.KindIO, "write", "stdout", err)
}
