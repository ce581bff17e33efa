package repository

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/fs"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrBlobNotFound is returned by Load for an ID without a blob file.
var ErrBlobNotFound = errors.New("blob not found")

// indexLocks serializes index updates within the process, keyed by
// repository directory. The file lock only covers other processes.
var indexLocks = xsync.NewMapOf[string, *sync.Mutex]()

func indexMutex(dir string) *sync.Mutex {
	m, _ := indexLocks.LoadOrCompute(dir, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return m
}

// Repository stores blobs in a directory and records them in index.json.
type Repository struct {
	cfg Config
}

// New returns a repository for cfg. Nothing is touched on disk until the
// first operation.
func New(cfg Config) *Repository {
	return &Repository{cfg: cfg}
}

// Location returns the repository directory, or an empty string if it
// cannot be resolved.
func (r *Repository) Location() string {
	dir, err := r.cfg.root()
	if err != nil {
		return ""
	}
	return dir
}

// Init makes sure the repository directory and the index exist and returns
// their paths. An existing index is never modified, so calling Init any
// number of times is safe.
func (r *Repository) Init() (repoDir, indexPath string, err error) {
	repoDir, err = r.cfg.root()
	if err != nil {
		return "", "", err
	}
	indexPath = filepath.Join(repoDir, indexFileName)

	if err := os.MkdirAll(repoDir, dirMode); err != nil {
		return "", "", errors.E(errors.KindIO, "create repository", repoDir, err)
	}

	created, err := fs.CreateFileExclusive(indexPath, []byte("[]"), fileMode)
	if err != nil {
		return "", "", errors.E(errors.KindIO, "create index", indexPath, err)
	}
	if created {
		debug.Log("created empty index %v", indexPath)
	}

	return repoDir, indexPath, nil
}

func (r *Repository) blobPath(repoDir string, id uuid.UUID) string {
	return filepath.Join(repoDir, id.String()+blobExtension)
}

// Save stores blob under a new random ID and appends it to the index. The
// blob file is complete before the index references it. Identical content
// saved twice yields two entries.
func (r *Repository) Save(blob []byte) (uuid.UUID, error) {
	repoDir, indexPath, err := r.Init()
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, errors.E(errors.KindCrypto, "generate blob id", "", err)
	}

	filename := r.blobPath(repoDir, id)
	debug.Log("Save %v, %d bytes", filename, len(blob))

	if err := fs.WriteFileAtomic(filename, blob, fileMode); err != nil {
		return uuid.Nil, errors.E(errors.KindIO, "write blob", filename, err)
	}

	entry := IndexEntry{
		ID:       id,
		Filename: filepath.Base(filename),
		Length:   int64(len(blob)),
	}

	if err := r.appendIndex(repoDir, indexPath, entry); err != nil {
		// the blob is unreachable without its index entry
		if rerr := os.Remove(filename); rerr != nil {
			debug.Log("unable to remove orphaned blob %v: %v", filename, rerr)
		}
		return uuid.Nil, err
	}

	return id, nil
}

// appendIndex adds entry to the index while holding both the in-process
// and the on-disk lock for repoDir.
func (r *Repository) appendIndex(repoDir, indexPath string, entry IndexEntry) (err error) {
	m := indexMutex(repoDir)
	m.Lock()
	defer m.Unlock()

	lockPath := filepath.Join(repoDir, lockFileName)
	lock, err := fs.Lock(lockPath)
	if err != nil {
		return errors.E(errors.KindIO, "lock index", lockPath, err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = errors.E(errors.KindIO, "unlock index", lockPath, uerr)
		}
	}()

	entries, err := loadIndex(indexPath)
	if err != nil {
		return err
	}

	return writeIndex(indexPath, append(entries, entry))
}

// Entries returns all index entries in insertion order.
func (r *Repository) Entries() ([]IndexEntry, error) {
	_, indexPath, err := r.Init()
	if err != nil {
		return nil, err
	}

	return loadIndex(indexPath)
}

// List returns the IDs of all saved blobs in insertion order.
func (r *Repository) List() ([]uuid.UUID, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	return ids, nil
}

// Load returns the content of the blob with the given ID.
func (r *Repository) Load(id uuid.UUID) ([]byte, error) {
	repoDir, _, err := r.Init()
	if err != nil {
		return nil, err
	}

	filename := r.blobPath(repoDir, id)
	debug.Log("Load %v", filename)

	buf, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.E(errors.KindIO, "load blob", filename, ErrBlobNotFound)
	}
	if err != nil {
		return nil, errors.E(errors.KindIO, "load blob", filename, err)
	}

	return buf, nil
}
