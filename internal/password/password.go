// Package password reads passwords from files, terminals and pipes.
package password

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/backy/backy/internal/errors"

	"golang.org/x/term"
	"golang.org/x/text/encoding/unicode"
)

// All supported BOMs (Byte Order Marks)
var (
	bomUTF8              = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BigEndian    = []byte{0xfe, 0xff}
	bomUTF16LittleEndian = []byte{0xff, 0xfe}
)

// Decode removes a byte order mark and converts the bytes to UTF-8.
func Decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}

	if !bytes.HasPrefix(data, bomUTF16BigEndian) && !bytes.HasPrefix(data, bomUTF16LittleEndian) {
		// no encoding specified, let's assume UTF-8
		return data, nil
	}

	// UseBom means automatic endianness selection
	e := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	return e.NewDecoder().Bytes(data)
}

// FromFile loads a password from a file while stripping a BOM, converting
// the password to UTF-8 and removing surrounding whitespace.
func FromFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.E(errors.KindConfig, "read password file", filename, errors.Fatalf("%s does not exist", filename))
	}
	if err != nil {
		return "", errors.E(errors.KindIO, "read password file", filename, err)
	}

	s, err := Decode(data)
	if err != nil {
		return "", errors.E(errors.KindSerialization, "decode password file", filename, err)
	}

	return strings.TrimSpace(string(s)), nil
}

// IsTerminal returns true if f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ReadLine reads the password from the first line of rd.
func ReadLine(rd io.Reader) (string, error) {
	sc := bufio.NewScanner(rd)
	sc.Scan()

	return sc.Text(), errors.WithStack(sc.Err())
}

// Prompt reads the password from in, which must be a tty. The prompt is
// printed on out before attempting to read the password. If the context is
// canceled, the function leaks the password reading goroutine.
func Prompt(ctx context.Context, in *os.File, out *os.File, prompt string) (password string, err error) {
	fd := int(in.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return "", errors.Wrap(err, "unable to get terminal state")
	}

	done := make(chan struct{})
	var buf []byte

	go func() {
		defer close(done)
		_, err = fmt.Fprint(out, prompt)
		if err != nil {
			return
		}
		buf, err = term.ReadPassword(fd)
		if err != nil {
			return
		}
		_, err = fmt.Fprintln(out)
	}()

	select {
	case <-ctx.Done():
		if rerr := term.Restore(fd, state); rerr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "unable to restore terminal state: %v\n", rerr)
		}
		return "", ctx.Err()
	case <-done:
	}

	if err != nil {
		return "", errors.Wrap(err, "ReadPassword")
	}

	return string(buf), nil
}
