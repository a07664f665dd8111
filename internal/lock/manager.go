package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrLockTimeout is returned when acquiring a lock times out.
	ErrLockTimeout = fmt.Errorf("timeout acquiring lock")
	// ErrFilenameRequired is returned when a filename is empty.
	ErrFilenameRequired = fmt.Errorf("filename is required")
	// ErrNilLock is returned when a nil lock handle is provided to ReleaseLock.
	ErrNilLock = fmt.Errorf("nil lock handle")
)

const (
	// shortPollInterval is the interval to sleep when polling for a lock.
	shortPollInterval = 10 * time.Millisecond
)

// LockManager hands out OS-level locks on workspace paths. Lock files live in
// lockDir so that none ever show up in the navigated tree.
type LockManager struct {
	lockDir string
}

// NewLockManager creates lockDir if needed and returns a LockManager using it.
// An empty lockDir selects a directory under os.TempDir.
func NewLockManager(lockDir string) (*LockManager, error) {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "next-nav-locks")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory %s: %w", lockDir, err)
	}
	return &LockManager{lockDir: lockDir}, nil
}

// LockFilePath returns the lock file guarding path.
func (lm *LockManager) LockFilePath(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return filepath.Join(lm.lockDir, hex.EncodeToString(sum[:16])+".lock")
}

// AcquireLock attempts to acquire an exclusive OS-level lock for the given path.
func (lm *LockManager) AcquireLock(path string, timeout time.Duration) (*FileLock, error) {
	if path == "" {
		return nil, ErrFilenameRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fileLock := flock.New(lm.LockFilePath(path))
	locked, err := fileLock.TryLockContext(ctx, shortPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("error acquiring file lock for %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}

	return &FileLock{FilePath: path, flock: fileLock}, nil
}

// ReleaseLock releases the given OS-level lock.
func (lm *LockManager) ReleaseLock(lock *FileLock) error {
	if lock == nil {
		return ErrNilLock
	}
	if lock.flock == nil {
		return nil
	}
	if err := lock.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock for %s: %w", lock.FilePath, err)
	}
	return nil
}

var _ LockManagerInterface = (*LockManager)(nil)
