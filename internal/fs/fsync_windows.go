package fs

// Can't explicitly flush directory changes on Windows.
func fsyncDir(_ string) error { return nil }

// Windows is not macOS.
func isMacENOTTY(_ error) bool { return false }
