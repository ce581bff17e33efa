package test

import (
	"fmt"
	"os"
)

var (
	TestPassword        = getStringVar("BACKY_TEST_PASSWORD", "geheim")
	TestCleanupTempDirs = getBoolVar("BACKY_TEST_CLEANUP", true)
	TestTempDir         = getStringVar("BACKY_TEST_TMPDIR", "")
	TestSFTPServer      = getStringVar("BACKY_TEST_SFTP", "")
)

func getStringVar(name, defaultValue string) string {
	if e := os.Getenv(name); e != "" {
		return e
	}

	return defaultValue
}

func getBoolVar(name string, defaultValue bool) bool {
	if e := os.Getenv(name); e != "" {
		switch e {
		case "1", "true":
			return true
		case "0", "false":
			return false
		default:
			fmt.Fprintf(os.Stderr, "invalid value for variable %q, using default\n", name)
		}
	}

	return defaultValue
}
