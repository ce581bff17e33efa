package debug_test

import (
	"testing"

	"github.com/backy/backy/internal/debug"
)

func TestLogToStderr(t *testing.T) {
	if !debug.TestLogToStderr(t) {
		t.Skip("debug log already configured")
	}
	defer debug.TestDisableLog(t)

	debug.Log("logging from %v", t.Name())
}
