package skystack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunLockExcludesSecondAcquire(t *testing.T) {
	LogDir = t.TempDir()

	first, err := acquireRunLock()
	if err != nil {
		t.Fatalf("acquireRunLock() error = %v", err)
	}

	if _, err := acquireRunLock(); err == nil {
		t.Errorf("second acquireRunLock() succeeded while the lock is held")
	}

	releaseRunLock(first)

	third, err := acquireRunLock()
	if err != nil {
		t.Fatalf("acquireRunLock() after release error = %v", err)
	}
	releaseRunLock(third)

	if _, err := os.Stat(filepath.Join(LogDir, "run.lock")); !os.IsNotExist(err) {
		t.Errorf("lock file left behind after release")
	}
}
