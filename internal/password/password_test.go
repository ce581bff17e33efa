package password_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/password"
	rtest "github.com/backy/backy/internal/test"
)

func TestDecode(t *testing.T) {
	for _, test := range []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte("geheim"), "geheim"},
		{"utf8-bom", []byte("\xef\xbb\xbfgeheim"), "geheim"},
		{"utf16-le", []byte{0xff, 0xfe, 'p', 0, 'w', 0}, "pw"},
		{"utf16-be", []byte{0xfe, 0xff, 0, 'p', 0, 'w'}, "pw"},
		{"umlaut", []byte("pässwört"), "pässwört"},
	} {
		t.Run(test.name, func(t *testing.T) {
			out, err := password.Decode(test.in)
			rtest.OK(t, err)
			rtest.Equals(t, test.want, string(out))
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := rtest.TempDir(t)
	filename := rtest.WriteFile(t, dir, "pw", []byte("\xef\xbb\xbf  secret \n"))

	pw, err := password.FromFile(filename)
	rtest.OK(t, err)
	rtest.Equals(t, "secret", pw)
}

func TestFromFileMissing(t *testing.T) {
	_, err := password.FromFile(filepath.Join(rtest.TempDir(t), "missing"))
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
	rtest.Equals(t, errors.KindConfig, errors.KindOf(err))
}

func TestReadLine(t *testing.T) {
	pw, err := password.ReadLine(strings.NewReader("first line\nsecond line\n"))
	rtest.OK(t, err)
	rtest.Equals(t, "first line", pw)

	pw, err = password.ReadLine(strings.NewReader(""))
	rtest.OK(t, err)
	rtest.Equals(t, "", pw)
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Open(rtest.WriteFile(t, rtest.TempDir(t), "f", nil))
	rtest.OK(t, err)
	defer func() {
		rtest.OK(t, f.Close())
	}()

	rtest.Assert(t, !password.IsTerminal(f), "regular file reported as terminal")
}
