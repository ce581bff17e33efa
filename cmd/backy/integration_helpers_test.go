package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/backy/backy/internal/crypto"
	rtest "github.com/backy/backy/internal/test"
)

type testEnvironment struct {
	base   string
	gopts  GlobalOptions
	stdout *bytes.Buffer
}

// setupTest creates a data directory below a fresh temporary directory and
// redirects the output of Printf and friends to a buffer.
func setupTest(t testing.TB) *testEnvironment {
	crypto.TestUseLowSecurityKDFParameters(t)

	base := rtest.TempDir(t)
	env := &testEnvironment{
		base:   base,
		stdout: bytes.NewBuffer(nil),
	}

	env.gopts = GlobalOptions{
		DataDir:   filepath.Join(base, "data"),
		password:  rtest.TestPassword,
		stdout:    env.stdout,
		stderr:    os.Stderr,
		verbosity: 1,
	}

	old := globalOptions
	globalOptions.stdout = env.stdout
	globalOptions.stderr = os.Stderr
	globalOptions.verbosity = 1
	t.Cleanup(func() {
		globalOptions = old
	})

	return env
}

// output returns what was printed so far and resets the buffer.
func (env *testEnvironment) output() string {
	s := env.stdout.String()
	env.stdout.Reset()
	return s
}

func testRunInit(t testing.TB, gopts GlobalOptions) {
	rtest.OK(t, runInit(context.TODO(), gopts, nil))
}

func testRunSave(t testing.TB, opts SaveOptions, gopts GlobalOptions, files ...string) {
	rtest.OK(t, runSave(context.TODO(), opts, gopts, files))
}

func testRunList(t testing.TB, env *testEnvironment, long bool) string {
	env.output()
	rtest.OK(t, runList(context.TODO(), ListOptions{Long: long}, env.gopts, nil))
	return env.output()
}
