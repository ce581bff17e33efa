package main

import (
	"context"
	"os"

	"github.com/backy/backy/internal/crypto"
	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/filechunker"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func newSaveCommand() *cobra.Command {
	var opts SaveOptions

	cmd := &cobra.Command{
		Use:   "save [flags] FILE...",
		Short: "Store files in the repository",
		Long: `
The "save" command stores each file as a blob in the repository and prints
the ID of every saved blob. With --chunk, files are split into content-defined
chunks and every chunk becomes a blob of its own, in file order. With
--encrypt, every blob is encrypted with a key derived from the password.

Saving the same content twice creates two blobs.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 2 if the password or the data directory cannot be determined.
Exit status is 3 if a file could not be read or the repository not written.
Exit status is 4 if the index of the repository is corrupt.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// SaveOptions bundles all options for the save command.
type SaveOptions struct {
	ChunkerOptions
	Chunk   bool
	Encrypt bool
}

func (opts *SaveOptions) AddFlags(f *pflag.FlagSet) {
	opts.ChunkerOptions.AddFlags(f)
	f.BoolVar(&opts.Chunk, "chunk", false, "split files into content-defined chunks")
	f.BoolVarP(&opts.Encrypt, "encrypt", "e", false, "encrypt blobs with a password")
}

type savedFile struct {
	name string
	ids  []uuid.UUID
	size int
}

func runSave(ctx context.Context, opts SaveOptions, gopts GlobalOptions, args []string) error {
	if len(args) == 0 {
		return errors.Fatal("no files given")
	}

	var p filechunker.Params
	if opts.Chunk {
		var err error
		p, err = opts.Params()
		if err != nil {
			return err
		}
	}

	var pwd string
	if opts.Encrypt {
		var err error
		pwd, err = ReadPassword(ctx, gopts, "BACKY_PASSWORD", "enter password: ")
		if err != nil {
			return err
		}
	}

	repo := gopts.repository()
	results := make([]savedFile, len(args))

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(2)

	for i, name := range args {
		wg.Go(func() error {
			data, err := os.ReadFile(name)
			if err != nil {
				return errors.E(errors.KindIO, "read file", name, err)
			}

			pieces := [][]byte{data}
			if opts.Chunk {
				chunks, err := filechunker.Split(data, p)
				if err != nil {
					return err
				}
				pieces = pieces[:0]
				for _, c := range chunks {
					pieces = append(pieces, c.Data)
				}
			}

			res := savedFile{name: name, size: len(data)}
			for _, piece := range pieces {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				blob := piece
				if opts.Encrypt {
					blob, err = crypto.Seal(piece, pwd)
					if err != nil {
						return err
					}
				}

				id, err := repo.Save(blob)
				if err != nil {
					return err
				}
				res.ids = append(res.ids, id)
			}

			results[i] = res
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		Verbosef("saved %s (%d bytes) as %d blob(s)\n", res.name, res.size, len(res.ids))
		for _, id := range res.ids {
			Printf("%s %s\n", id, res.name)
		}
	}

	return nil
}
