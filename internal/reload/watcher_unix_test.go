//go:build unix

package reload

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestWatcher_SIGHUP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codeshift.yaml")
	writeFile(t, path, "data")
	w := startWatcher(t, path)

	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case evt := <-w.Events():
		if evt.Source != SourceSignal {
			t.Errorf("source = %q, want %q", evt.Source, SourceSignal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the signal event")
	}
}
