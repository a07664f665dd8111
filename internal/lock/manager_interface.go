package lock

import (
	"time"

	"github.com/gofrs/flock"
)

// FileLock represents a handle to an OS-level lock on a workspace path.
type FileLock struct {
	FilePath string
	flock    *flock.Flock
}

// LockManagerInterface defines the methods a lock manager should implement.
// AcquireLock obtains an exclusive lock and returns a handle which must be
// provided back to ReleaseLock.
type LockManagerInterface interface {
	AcquireLock(path string, timeout time.Duration) (*FileLock, error)
	ReleaseLock(lock *FileLock) error
}
