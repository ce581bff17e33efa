package local

// Config holds the settings for copying files into a local directory.
type Config struct {
	// Connections limits the number of files copied concurrently by Mirror.
	Connections uint
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{
		Connections: 2,
	}
}
