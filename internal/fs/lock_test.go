package fs

import (
	"path/filepath"
	"sync"
	"testing"

	rtest "github.com/backy/backy/internal/test"
)

func TestLockSerializes(t *testing.T) {
	filename := filepath.Join(rtest.TempDir(t), "test.lock")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			lock, err := Lock(filename)
			if err != nil {
				t.Error(err)
				return
			}

			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			mu.Lock()
			holders--
			mu.Unlock()

			if err := lock.Unlock(); err != nil {
				t.Error(err)
			}
		}()
	}

	wg.Wait()
	rtest.Equals(t, 1, maxSeen)
}

func TestUnlockTwice(t *testing.T) {
	lock, err := Lock(filepath.Join(rtest.TempDir(t), "test.lock"))
	rtest.OK(t, err)
	rtest.OK(t, lock.Unlock())
	rtest.OK(t, lock.Unlock())
}
