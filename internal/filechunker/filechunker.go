package filechunker

import (
	"bytes"
	"io"
	"math/bits"
	"os"

	"github.com/restic/chunker"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
)

const (
	KiB = 1024
	MiB = 1024 * KiB
)

// DefaultPol is the irreducible polynomial used when Params.Pol is not set.
// It must never change, otherwise existing data would be split differently.
const DefaultPol = chunker.Pol(0x3DA3358B4DC173)

// WindowSize is the size of the rolling hash window. No cut is made before
// this many bytes of a chunk have been read, so MinSize is raised to
// WindowSize and MaxSize must be at least WindowSize.
const WindowSize = 64

// Params controls the chunk sizes. Callers must supply
// MinSize <= AvgSize <= MaxSize.
type Params struct {
	MinSize uint
	AvgSize uint
	MaxSize uint

	// Pol is the polynomial for the rolling hash, DefaultPol if zero.
	Pol chunker.Pol
}

// DefaultParams returns 2 MiB minimum, 4 MiB average and 8 MiB maximum
// chunk sizes.
func DefaultParams() Params {
	return Params{
		MinSize: 2 * MiB,
		AvgSize: 4 * MiB,
		MaxSize: 8 * MiB,
		Pol:     DefaultPol,
	}
}

// averageBits returns the number of bits of the fingerprint that must be
// zero for a cut. Past MinSize a cut happens with probability 2^-bits per
// byte, so the expected chunk size is MinSize + 2^bits.
func (p Params) averageBits() int {
	if p.AvgSize <= p.MinSize {
		return 0
	}
	return bits.Len(p.AvgSize-p.MinSize) - 1
}

// boundaries returns the minimum and maximum chunk size passed to the
// chunker.
func (p Params) boundaries() (minSize, maxSize uint, err error) {
	if p.MaxSize < WindowSize {
		return 0, 0, errors.E(errors.KindConfig, "chunk", "",
			errors.Errorf("maximum chunk size %d is below %d bytes", p.MaxSize, WindowSize))
	}
	if p.MinSize > p.MaxSize {
		return 0, 0, errors.E(errors.KindConfig, "chunk", "",
			errors.Errorf("minimum chunk size %d exceeds maximum %d", p.MinSize, p.MaxSize))
	}

	minSize = p.MinSize
	if minSize < WindowSize {
		minSize = WindowSize
	}
	return minSize, p.MaxSize, nil
}

func (p Params) pol() chunker.Pol {
	if p.Pol == 0 {
		return DefaultPol
	}
	return p.Pol
}

// Chunk is a contiguous range of the source buffer. Data aliases the
// buffer passed to Split.
type Chunk struct {
	Offset uint
	Length uint
	Data   []byte
}

// Split cuts data into chunks. The chunks are returned in order, their
// concatenation is data. Empty input yields no chunks, input shorter than
// MinSize yields a single chunk. A MinSize below WindowSize is raised to
// WindowSize, a MaxSize below WindowSize is rejected.
func Split(data []byte, p Params) ([]Chunk, error) {
	minSize, maxSize, err := p.boundaries()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	p.MinSize = minSize
	chnker := chunker.NewWithBoundaries(bytes.NewReader(data), p.pol(), minSize, maxSize)
	chnker.SetAverageBits(p.averageBits())

	bufsize := p.MaxSize
	if uint(len(data)) < bufsize {
		bufsize = uint(len(data))
	}
	buf := make([]byte, 0, bufsize)

	var chunks []Chunk
	for {
		c, err := chnker.Next(buf[:0])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "chunker.Next")
		}

		chunks = append(chunks, Chunk{
			Offset: c.Start,
			Length: c.Length,
			Data:   data[c.Start : c.Start+c.Length],
		})
	}

	debug.Log("split %d bytes into %d chunks", len(data), len(chunks))
	return chunks, nil
}

// SplitReader reads rd in full and splits the content.
func SplitReader(rd io.Reader, p Params) ([]Chunk, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.E(errors.KindIO, "read", "", err)
	}

	return Split(data, p)
}

// SplitFile reads the file filename in full and splits the content.
func SplitFile(filename string, p Params) ([]Chunk, error) {
	debug.Log("split file %v", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.E(errors.KindIO, "read", filename, err)
	}

	return Split(data, p)
}
