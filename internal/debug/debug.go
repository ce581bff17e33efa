// Package debug writes diagnostic messages to a log file and/or stderr.
//
// Logging is disabled unless one of the following environment variables is
// set:
//
//	DEBUG_LOG    file to append all messages to
//	DEBUG_FUNCS  comma-separated function patterns printed to stderr
//	DEBUG_FILES  comma-separated file patterns (dir/file.go:line) printed to stderr
//
// A pattern prefixed with "-" disables matching messages, "all" enables
// everything.
package debug

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

var opts struct {
	isEnabled bool
	logger    *log.Logger
	funcs     map[string]bool
	files     map[string]bool
}

// make sure that all the initialization happens before the init() functions
// are called, cf https://golang.org/ref/spec#Package_initialization
var _ = initDebug()

func initDebug() bool {
	initDebugLogger()
	opts.funcs = parseFilter("DEBUG_FUNCS", func(s string) string { return s })
	opts.files = parseFilter("DEBUG_FILES", padFile)

	if opts.logger == nil && len(opts.funcs) == 0 && len(opts.files) == 0 {
		opts.isEnabled = false
		return false
	}

	opts.isEnabled = true
	fmt.Fprintf(os.Stderr, "debug enabled\n")

	return true
}

func initDebugLogger() {
	debugfile := os.Getenv("DEBUG_LOG")
	if debugfile == "" {
		return
	}

	fmt.Fprintf(os.Stderr, "debug log file %v\n", debugfile)

	f, err := os.OpenFile(debugfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
		os.Exit(2)
	}

	opts.logger = log.New(f, "", log.LstdFlags)
}

func parseFilter(envname string, pad func(string) string) map[string]bool {
	filter := make(map[string]bool)

	env := os.Getenv(envname)
	if env == "" {
		return filter
	}

	for _, fn := range strings.Split(env, ",") {
		t := pad(strings.TrimSpace(fn))
		if t == "" {
			continue
		}

		val := true
		switch t[0] {
		case '-':
			val = false
			t = t[1:]
		case '+':
			t = t[1:]
		}

		if _, err := path.Match(t, ""); err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid pattern %q: %v\n", t, err)
			os.Exit(5)
		}

		filter[t] = val
	}

	return filter
}

func padFile(s string) string {
	if s == "all" || s == "" {
		return s
	}

	if !strings.Contains(s, "/") {
		s = "*/" + s
	}

	if !strings.Contains(s, ":") {
		s = s + ":*"
	}

	return s
}

func getPosition() (fn, dir, file string, line int) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", "", "", 0
	}

	dirname, filename := filepath.Base(filepath.Dir(file)), filepath.Base(file)

	return path.Base(runtime.FuncForPC(pc).Name()), dirname, filename, line
}

func checkFilter(filter map[string]bool, key string) bool {
	if v, ok := filter[key]; ok {
		return v
	}

	for k, v := range filter {
		if m, _ := path.Match(k, key); m {
			return v
		}
	}

	return filter["all"]
}

// Log prints a message to the debug log (if debug is enabled).
func Log(f string, args ...interface{}) {
	if !opts.isEnabled {
		return
	}

	fn, dir, file, line := getPosition()

	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}

	pos := fmt.Sprintf("%s/%s:%d", dir, file, line)
	formatString := fmt.Sprintf("%s\t%s\t%s", pos, fn, f)

	if opts.logger != nil {
		opts.logger.Printf(formatString, args...)
	}

	if checkFilter(opts.files, pos) || checkFilter(opts.funcs, fn) {
		fmt.Fprintf(os.Stderr, formatString, args...)
	}
}
