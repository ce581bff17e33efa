package main

import (
	"context"

	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/filechunker"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func newChunkCommand() *cobra.Command {
	var opts ChunkOptions

	cmd := &cobra.Command{
		Use:   "chunk [flags] FILE...",
		Short: "Show the content-defined chunks of files",
		Long: `
The "chunk" command splits files into content-defined chunks and prints offset,
length and an xxhash fingerprint of every chunk. Nothing is stored. The file
name "-" reads from stdin.

Files are read into memory completely.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 3 if a file could not be read.
`,
		GroupID:           cmdGroupDefault,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// ChunkerOptions selects the chunk sizes, in KiB.
type ChunkerOptions struct {
	MinSize, AvgSize, MaxSize uint
}

func (opts *ChunkerOptions) AddFlags(f *pflag.FlagSet) {
	def := filechunker.DefaultParams()
	f.UintVar(&opts.MinSize, "min-size", def.MinSize/filechunker.KiB, "minimum chunk `size` in KiB")
	f.UintVar(&opts.AvgSize, "avg-size", def.AvgSize/filechunker.KiB, "average chunk `size` in KiB")
	f.UintVar(&opts.MaxSize, "max-size", def.MaxSize/filechunker.KiB, "maximum chunk `size` in KiB")
}

// Params returns the chunker parameters for the options.
func (opts ChunkerOptions) Params() (filechunker.Params, error) {
	p := filechunker.DefaultParams()
	if opts.MinSize == 0 || opts.MaxSize == 0 {
		return p, errors.E(errors.KindConfig, "chunker parameters", "", errors.Fatal("chunk sizes must be positive"))
	}
	if opts.MinSize > opts.MaxSize {
		return p, errors.E(errors.KindConfig, "chunker parameters", "", errors.Fatal("minimum chunk size is larger than the maximum"))
	}

	p.MinSize = opts.MinSize * filechunker.KiB
	p.AvgSize = opts.AvgSize * filechunker.KiB
	p.MaxSize = opts.MaxSize * filechunker.KiB
	return p, nil
}

// ChunkOptions bundles all options for the chunk command.
type ChunkOptions struct {
	ChunkerOptions
}

func (opts *ChunkOptions) AddFlags(f *pflag.FlagSet) {
	opts.ChunkerOptions.AddFlags(f)
}

func runChunk(ctx context.Context, opts ChunkOptions, gopts GlobalOptions, args []string) error {
	if len(args) == 0 {
		return errors.Fatal("no files given")
	}

	stdinCount := 0
	for _, name := range args {
		if name == "-" {
			stdinCount++
		}
	}
	if stdinCount > 1 || (stdinCount == 1 && gopts.stdin == nil) {
		return errors.Fatal("stdin (\"-\") can be given only once")
	}

	p, err := opts.Params()
	if err != nil {
		return err
	}

	results := make([][]filechunker.Chunk, len(args))
	wg, ctx := errgroup.WithContext(ctx)
	// whole files are kept in memory, don't read too many at once
	wg.SetLimit(2)

	for i, name := range args {
		wg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var chunks []filechunker.Chunk
			var err error
			if name == "-" {
				chunks, err = filechunker.SplitReader(gopts.stdin, p)
			} else {
				chunks, err = filechunker.SplitFile(name, p)
			}
			results[i] = chunks
			return err
		})
	}

	if err := wg.Wait(); err != nil {
		return err
	}

	for i, name := range args {
		Verbosef("%s: %d chunks\n", name, len(results[i]))
		for _, c := range results[i] {
			Printf("%s %12d %10d %016x\n", name, c.Offset, c.Length, xxhash.Sum64(c.Data))
		}
	}

	return nil
}
