package sftp

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/backy/backy/internal/errors"
)

// Config collects all information required to connect to an sftp server.
type Config struct {
	User, Host, Port, Path string

	// Password is used for password authentication. It is never part of
	// the parsed location string.
	Password string

	// KnownHosts is an OpenSSH known_hosts file used to verify the server.
	// If empty, the host key is not checked.
	KnownHosts string

	Connections uint          // number of concurrent uploads
	Limit       int           // upload limit in KiB/s, 0 means unlimited
	Timeout     time.Duration // for establishing the connection
	Retries     uint64        // additional dial attempts
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{
		Port:        "22",
		Connections: 5,
		Timeout:     10 * time.Second,
		Retries:     3,
	}
}

// ParseConfig parses the string s and extracts the sftp config. The
// supported configuration formats are sftp://user@host[:port]/directory
// and sftp:user@host:directory. The directory is path cleaned and can be
// absolute if it starts with a '/' (e.g. sftp://user@host//absolute and
// sftp:user@host:/absolute).
func ParseConfig(s string) (*Config, error) {
	var user, host, port, dir string
	switch {
	case strings.HasPrefix(s, "sftp://"):
		// parse the "sftp://user@host/path" url format
		u, err := url.Parse(s)
		if err != nil {
			return nil, errors.E(errors.KindConfig, "parse sftp location", "", err)
		}
		if u.User != nil {
			user = u.User.Username()
		}
		host = u.Hostname()
		port = u.Port()
		dir = u.Path
		if dir == "" {
			return nil, errors.E(errors.KindConfig, "parse sftp location", "",
				errors.Errorf("invalid location %q, no directory specified", s))
		}

		dir = dir[1:]
	case strings.HasPrefix(s, "sftp:"):
		// parse the sftp:user@host:path format, which means we'll get
		// "user@host:path" in s
		s = s[5:]
		// split user@host and path at the colon
		var colon bool
		host, dir, colon = strings.Cut(s, ":")
		if !colon {
			return nil, errors.E(errors.KindConfig, "parse sftp location", "",
				errors.New("invalid format, hostname or path not found"))
		}
		// split user and host at the last "@"
		if i := strings.LastIndex(host, "@"); i >= 0 {
			user = host[:i]
			host = host[i+1:]
		}
	default:
		return nil, errors.E(errors.KindConfig, "parse sftp location", "",
			errors.New(`invalid format, does not start with "sftp:"`))
	}

	if host == "" {
		return nil, errors.E(errors.KindConfig, "parse sftp location", "", errors.New("no host specified"))
	}

	p := path.Clean(dir)
	if strings.HasPrefix(p, "~") {
		return nil, errors.Fatal("sftp path starts with the tilde (~) character, that fails for most sftp servers.\nUse a relative directory, most servers interpret this as relative to the user's home directory.")
	}

	cfg := NewConfig()
	cfg.User = user
	cfg.Host = host
	if port != "" {
		cfg.Port = port
	}
	cfg.Path = p

	return &cfg, nil
}
