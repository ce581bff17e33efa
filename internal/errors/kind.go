package errors

import (
	"fmt"
	"strings"
)

// Kind classifies an error so that callers can react to the class of a
// failure (e.g. prompt for a password again) instead of parsing messages.
type Kind int

const (
	// KindOther is used for errors that carry no classification.
	KindOther Kind = iota
	// KindIO marks failures reading or writing files and directories.
	KindIO
	// KindSerialization marks malformed or truncated persisted data.
	KindSerialization
	// KindCrypto marks key derivation, RNG and authentication failures.
	KindCrypto
	// KindConfig marks settings that cannot be resolved.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindSerialization:
		return "serialization error"
	case KindCrypto:
		return "crypto error"
	case KindConfig:
		return "configuration error"
	default:
		return "error"
	}
}

// Error is an error tagged with a Kind, the operation that failed and the
// path it failed on (if any).
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return e.Kind.String()
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format prints the stack trace of the wrapped error for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Err != nil {
		if e.Op != "" || e.Path != "" {
			_, _ = fmt.Fprintf(s, "%s %s: ", e.Op, e.Path)
		}
		_, _ = fmt.Fprintf(s, "%+v", e.Err)
		return
	}
	_, _ = fmt.Fprint(s, e.Error())
}

// E returns err tagged with kind, the failed operation and the path it
// operated on. If err is nil, E returns nil.
func E(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Op: op, Path: path, Err: WithStack(err)}
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// KindOther if there is none.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !As(err, &e) {
			return KindOther
		}
		if e.Kind != KindOther {
			return e.Kind
		}
		err = e.Err
	}
	return KindOther
}

// IsKind reports whether err is tagged with kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
