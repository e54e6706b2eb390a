// Package lock guards a workflow's working directory against two
// concurrent execute() runs racing over the same files.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nightlyone/lockfile"
)

const (
	// fileName is the lockfile's name within the guarded directory. The
	// lockfile library writes the owning process's PID into it.
	fileName = ".rxclips-workflow.lock"

	retryAttempts = 3
	retryDelay    = 100 * time.Millisecond
)

// Lock is a held advisory lock on a working directory. Release it exactly
// once the guarded execute() run has terminated, in any outcome.
type Lock struct {
	inner lockfile.Lockfile
}

// Acquire takes the lock for workingDir, retrying transient acquisition
// errors a few times before giving up. It returns lockfile.ErrBusy
// unchanged when the lock is already held, whether by another process or
// by an earlier Acquire in this one that has not been released.
func Acquire(workingDir string) (*Lock, error) {
	lf, err := lockfile.New(filepath.Join(workingDir, fileName))
	if err != nil {
		return nil, fmt.Errorf("lock: constructing lockfile: %w", err)
	}

	// TryLock treats a lockfile carrying this process's own PID as
	// reclaimable, so a hold from within this process is checked here.
	if owner, err := lf.GetOwner(); err == nil && owner.Pid == os.Getpid() {
		return nil, lockfile.ErrBusy
	}

	var lastErr error
	for range retryAttempts {
		lastErr = lf.TryLock()
		if lastErr == nil {
			return &Lock{inner: lf}, nil
		}

		if errors.Is(lastErr, lockfile.ErrBusy) {
			return nil, lastErr
		}
		if te, ok := lastErr.(interface{ Temporary() bool }); ok && te.Temporary() {
			time.Sleep(retryDelay)
			continue
		}
		break
	}
	return nil, fmt.Errorf("lock: acquiring %s: %w", workingDir, lastErr)
}

// Release gives up the lock.
func (l *Lock) Release() error {
	return l.inner.Unlock()
}
