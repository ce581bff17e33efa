// Package sftp uploads already produced files (blobs, archives, snapshots)
// to a remote directory over SFTP.
package sftp

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	dirMode = 0755
)

// SFTP is a connection to an sftp server.
type SFTP struct {
	c    *sftp.Client
	conn *ssh.Client // nil if the client was created from a pipe

	cfg     Config
	limiter *rate.Limiter
}

// Open connects to the server described by cfg using password
// authentication. Failed dial attempts are retried with exponential
// backoff, failed authentication is not.
func Open(ctx context.Context, cfg Config) (*SFTP, error) {
	debug.Log("open sftp connection to %v@%v:%v", cfg.User, cfg.Host, cfg.Port)

	if cfg.Connections == 0 {
		return nil, errors.E(errors.KindConfig, "open sftp", "", errors.New("connections must be a positive number"))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() // nolint:gosec
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, errors.E(errors.KindConfig, "load known hosts", cfg.KnownHosts, err)
		}
		hostKeyCallback = cb
	} else {
		debug.Log("no known_hosts file configured, not verifying host key of %v", cfg.Host)
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}

	port := cfg.Port
	if port == "" {
		port = "22"
	}
	addr := net.JoinHostPort(cfg.Host, port)

	var conn *ssh.Client
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Retries), ctx)
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = dial(ctx, addr, sshCfg)
		return err
	}, bo, func(err error, d time.Duration) {
		debug.Log("dial %v failed: %v, retrying in %v", addr, err, d)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, errors.E(errors.KindIO, "start sftp session", addr, err)
	}

	r := newSFTP(client, cfg)
	r.conn = conn
	return r, nil
}

func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	tcp, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.E(errors.KindIO, "dial", addr, err)
	}

	// the handshake must not hang forever on an unresponsive server
	if cfg.Timeout > 0 {
		_ = tcp.SetDeadline(time.Now().Add(cfg.Timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(tcp, addr, cfg)
	if err != nil {
		_ = tcp.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, backoff.Permanent(errors.E(errors.KindConfig, "authenticate", addr, err))
		}
		return nil, errors.E(errors.KindIO, "ssh handshake", addr, err)
	}

	_ = tcp.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// newClientPipe starts an sftp session on an existing stream, e.g. the
// stdin and stdout of an "ssh -s sftp" process.
func newClientPipe(rd io.Reader, wr io.WriteCloser, cfg Config) (*SFTP, error) {
	client, err := sftp.NewClientPipe(rd, wr)
	if err != nil {
		return nil, errors.E(errors.KindIO, "start sftp session", "", err)
	}

	return newSFTP(client, cfg), nil
}

func newSFTP(c *sftp.Client, cfg Config) *SFTP {
	if cfg.Connections == 0 {
		cfg.Connections = 1
	}
	return &SFTP{
		c:       c,
		cfg:     cfg,
		limiter: newLimiter(cfg.Limit),
	}
}

// Location returns the remote base directory.
func (r *SFTP) Location() string {
	return r.cfg.Path
}

// Join joins the given paths and cleans them afterwards. This always uses
// forward slashes, which is required by sftp.
func Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

// MkdirAll creates dir and all missing parents with mode 0755.
func (r *SFTP) MkdirAll(dir string) error {
	if err := r.mkdirAll(dir, dirMode); err != nil {
		return errors.E(errors.KindIO, "create remote directory", dir, err)
	}
	return nil
}

func (r *SFTP) mkdirAll(dir string, mode os.FileMode) error {
	// check if directory already exists
	fi, err := r.c.Lstat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}

		return errors.Errorf("mkdirAll(%s): entry exists but is not a directory", dir)
	}

	// create parent directories
	var errMkdirAll error
	if parent := path.Dir(dir); parent != dir {
		errMkdirAll = r.mkdirAll(parent, mode)
	}

	// create directory
	errMkdir := r.c.Mkdir(dir)

	// test if directory was created successfully
	fi, err = r.c.Lstat(dir)
	if err != nil {
		// return previous errors
		return errors.Errorf("mkdirAll(%s): unable to create directories: %v, %v", dir, errMkdirAll, errMkdir)
	}

	if !fi.IsDir() {
		return errors.Errorf("mkdirAll(%s): entry exists but is not a directory", dir)
	}

	// set mode, some servers refuse SETSTAT on directories
	if err := r.c.Chmod(dir, mode); err != nil {
		debug.Log("chmod %v failed, ignoring: %v", dir, err)
	}
	return nil
}

// Upload copies the local file to remotePath, replacing an existing file.
// Parent directories of remotePath must exist.
func (r *SFTP) Upload(ctx context.Context, localPath, remotePath string) (err error) {
	debug.Log("Upload %v to %v", localPath, remotePath)

	src, err := os.Open(localPath)
	if err != nil {
		return errors.E(errors.KindIO, "open", localPath, err)
	}
	defer func() {
		_ = src.Close()
	}()

	f, err := r.c.Create(remotePath)
	if err != nil {
		return errors.E(errors.KindIO, "create remote file", remotePath, err)
	}

	rd := limitReader(ctx, ctxReader{ctx: ctx, Reader: src}, r.limiter)
	n, err := io.Copy(f, rd)
	if err != nil {
		_ = f.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.E(errors.KindIO, "write remote file", remotePath, err)
	}

	if err := f.Close(); err != nil {
		return errors.E(errors.KindIO, "close remote file", remotePath, err)
	}

	debug.Log("uploaded %d bytes to %v", n, remotePath)
	return nil
}

// UploadFiles uploads the local files into remoteDir (created if missing),
// keeping their base names. Up to Config.Connections files are transferred
// concurrently. The remote paths are returned in the order of localPaths.
// Two local files with the same base name are rejected.
func (r *SFTP) UploadFiles(ctx context.Context, localPaths []string, remoteDir string) ([]string, error) {
	remote := make([]string, len(localPaths))
	seen := make(map[string]string, len(localPaths))
	for i, p := range localPaths {
		name := filepath.Base(p)
		if prev, ok := seen[name]; ok {
			return nil, errors.E(errors.KindConfig, "upload", p,
				errors.Errorf("same remote name %q as %v", name, prev))
		}
		seen[name] = p
		remote[i] = Join(remoteDir, name)
	}

	if err := r.MkdirAll(remoteDir); err != nil {
		return nil, err
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(int(r.cfg.Connections))

	for i, p := range localPaths {
		wg.Go(func() error {
			return r.Upload(ctx, p, remote[i])
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, err
	}
	return remote, nil
}

// Close closes the sftp session and the ssh connection.
func (r *SFTP) Close() error {
	debug.Log("Close")
	if r == nil {
		return nil
	}

	err := r.c.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	debug.Log("Close returned error %v", err)
	return err
}

// ctxReader stops reading once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.Reader.Read(p)
}
