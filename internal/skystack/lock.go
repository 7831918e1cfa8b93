package skystack

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// acquireRunLock takes a non-blocking exclusive flock so two skystack runs
// cannot interleave fetch/build/install against the same prefix. The caller
// must hand the file to releaseRunLock when the pipeline ends.
func acquireRunLock() (*os.File, error) {
	if err := os.MkdirAll(LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", LogDir, err)
	}
	lockPath := filepath.Join(LogDir, "run.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another skystack run is already in progress (lock held on %s)", lockPath)
	}
	return f, nil
}

func releaseRunLock(f *os.File) {
	if f == nil {
		return
	}
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	name := f.Name()
	f.Close()
	_ = os.Remove(name)
}
