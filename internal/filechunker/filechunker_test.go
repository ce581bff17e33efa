package filechunker_test

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/filechunker"
	rtest "github.com/backy/backy/internal/test"
)

var testParams = filechunker.Params{
	MinSize: 4 * filechunker.KiB,
	AvgSize: 8 * filechunker.KiB,
	MaxSize: 16 * filechunker.KiB,
}

func checkChunks(t testing.TB, data []byte, chunks []filechunker.Chunk, p filechunker.Params) {
	t.Helper()

	var (
		buf    []byte
		offset uint
	)
	for i, c := range chunks {
		rtest.Assert(t, c.Offset == offset, "chunk %d: wrong offset, want %d, got %d", i, offset, c.Offset)
		rtest.Assert(t, uint(len(c.Data)) == c.Length, "chunk %d: length %d does not match data length %d", i, c.Length, len(c.Data))
		rtest.Assert(t, c.Length <= p.MaxSize, "chunk %d: length %d exceeds maximum %d", i, c.Length, p.MaxSize)
		if i != len(chunks)-1 {
			rtest.Assert(t, c.Length >= p.MinSize, "chunk %d: length %d below minimum %d", i, c.Length, p.MinSize)
		}

		buf = append(buf, c.Data...)
		offset += c.Length
	}

	rtest.Assert(t, bytes.Equal(buf, data), "concatenated chunks do not match the input")
}

func TestSplit(t *testing.T) {
	for _, size := range []int{1, 100, 4*filechunker.KiB - 1, 4 * filechunker.KiB, 64*filechunker.KiB + 17, 2 * filechunker.MiB} {
		data := rtest.Random(23, size)

		chunks, err := filechunker.Split(data, testParams)
		rtest.OK(t, err)
		rtest.Assert(t, len(chunks) > 0, "no chunks returned for %d bytes", size)
		checkChunks(t, data, chunks, testParams)
	}
}

func TestSplitSmallParams(t *testing.T) {
	var tests = []filechunker.Params{
		{MinSize: 16, AvgSize: 32, MaxSize: 64},
		{MinSize: 0, AvgSize: 0, MaxSize: 100},
		{MinSize: 64, AvgSize: 64, MaxSize: 64},
		{MinSize: 1, AvgSize: 128, MaxSize: 512},
	}

	for _, p := range tests {
		for _, size := range []int{1, 63, 64, 1000, 200000} {
			data := rtest.Random(size, size)

			chunks, err := filechunker.Split(data, p)
			rtest.OK(t, err)
			checkChunks(t, data, chunks, p)
		}
	}
}

func TestSplitInvalidParams(t *testing.T) {
	var tests = []filechunker.Params{
		{MinSize: 16, AvgSize: 16, MaxSize: 32},
		{MinSize: 0, AvgSize: 0, MaxSize: 0},
		{MinSize: 8 * filechunker.KiB, AvgSize: 8 * filechunker.KiB, MaxSize: 4 * filechunker.KiB},
	}

	for _, p := range tests {
		_, err := filechunker.Split([]byte("data"), p)
		rtest.Assert(t, errors.IsKind(err, errors.KindConfig), "expected config error for %+v, got %v", p, err)
	}
}

func TestSplitEmpty(t *testing.T) {
	chunks, err := filechunker.Split(nil, testParams)
	rtest.OK(t, err)
	rtest.Equals(t, 0, len(chunks))

	chunks, err = filechunker.Split([]byte{}, filechunker.DefaultParams())
	rtest.OK(t, err)
	rtest.Equals(t, 0, len(chunks))
}

func TestSplitSmallerThanMin(t *testing.T) {
	data := rtest.Random(5, 1000)

	chunks, err := filechunker.Split(data, filechunker.DefaultParams())
	rtest.OK(t, err)
	rtest.Equals(t, 1, len(chunks))
	rtest.Assert(t, bytes.Equal(chunks[0].Data, data), "chunk does not match input")
	rtest.Equals(t, uint(0), chunks[0].Offset)
	rtest.Equals(t, uint(len(data)), chunks[0].Length)
}

func boundaries(chunks []filechunker.Chunk) [][2]uint {
	var res [][2]uint
	for _, c := range chunks {
		res = append(res, [2]uint{c.Offset, c.Length})
	}
	return res
}

func TestSplitDeterministic(t *testing.T) {
	data := rtest.Random(42, 3*filechunker.MiB)

	first, err := filechunker.Split(data, testParams)
	rtest.OK(t, err)

	// use a copy so that aliasing cannot hide differences
	second, err := filechunker.Split(append([]byte(nil), data...), testParams)
	rtest.OK(t, err)

	rtest.Equals(t, boundaries(first), boundaries(second))
}

func TestSplitLocalEdit(t *testing.T) {
	data := rtest.Random(7, 2*filechunker.MiB)

	edited := make([]byte, 0, len(data)+1)
	edited = append(edited, data[:100]...)
	edited = append(edited, 0x42)
	edited = append(edited, data[100:]...)

	before, err := filechunker.Split(data, testParams)
	rtest.OK(t, err)
	after, err := filechunker.Split(edited, testParams)
	rtest.OK(t, err)

	known := make(map[[32]byte]struct{})
	for _, c := range before {
		known[sha256.Sum256(c.Data)] = struct{}{}
	}

	shared := 0
	for _, c := range after {
		if _, ok := known[sha256.Sum256(c.Data)]; ok {
			shared++
		}
	}

	// only the chunks around the edit may change
	rtest.Assert(t, shared >= len(before)-3,
		"too many chunks changed by a one byte insertion: %d of %d shared", shared, len(before))
}

func TestSplitDefaultParams(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large chunker test in short mode")
	}

	p := filechunker.DefaultParams()
	data := rtest.Random(99, 20*filechunker.MiB)

	chunks, err := filechunker.Split(data, p)
	rtest.OK(t, err)
	rtest.Assert(t, len(chunks) > 1, "expected multiple chunks, got %d", len(chunks))
	checkChunks(t, data, chunks, p)
}

func TestSplitFile(t *testing.T) {
	data := rtest.Random(13, 100*filechunker.KiB)
	filename := rtest.WriteFile(t, rtest.TempDir(t), "source", data)

	chunks, err := filechunker.SplitFile(filename, testParams)
	rtest.OK(t, err)
	checkChunks(t, data, chunks, testParams)

	fromReader, err := filechunker.SplitReader(bytes.NewReader(data), testParams)
	rtest.OK(t, err)
	rtest.Equals(t, boundaries(chunks), boundaries(fromReader))
}

func TestSplitFileMissing(t *testing.T) {
	_, err := filechunker.SplitFile(filepath.Join(rtest.TempDir(t), "missing"), testParams)
	rtest.Assert(t, err != nil, "expected error for missing file")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "wrong error %v", err)
	rtest.Assert(t, errors.KindOf(err) == errors.KindIO, "wrong kind %v", errors.KindOf(err))
}
