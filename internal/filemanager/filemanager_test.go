package filemanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

type testDoc struct {
	Name  string   `yaml:"name"`
	Count int      `yaml:"count"`
	Lines []string `yaml:"lines,omitempty"`
}

func TestManager_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.yaml")
	mgr := NewManager[testDoc]()

	doc := &testDoc{Name: "first", Count: 42}
	if err := mgr.Write(context.Background(), path, doc); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := mgr.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != doc.Name || got.Count != doc.Count {
		t.Errorf("Read mismatch: got %+v, want %+v", got, doc)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestManager_ReadMissing(t *testing.T) {
	mgr := NewManager[testDoc]()

	_, err := mgr.Read(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got: %v", err)
	}
}

func TestManager_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	mgr := NewManager[testDoc]()

	err := mgr.Update(context.Background(), path, func(doc *testDoc) error {
		doc.Name = "created"
		doc.Lines = append(doc.Lines, "one")
		return nil
	})
	if err != nil {
		t.Fatalf("Update on new file failed: %v", err)
	}

	err = mgr.Update(context.Background(), path, func(doc *testDoc) error {
		doc.Lines = append(doc.Lines, "two")
		return nil
	})
	if err != nil {
		t.Fatalf("Update on existing file failed: %v", err)
	}

	got, err := mgr.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read after update failed: %v", err)
	}
	if got.Name != "created" || len(got.Lines) != 2 || got.Lines[1] != "two" {
		t.Errorf("Updated data mismatch: got %+v", got)
	}
}

func TestManager_ConcurrentUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	mgr := NewManager[testDoc]()

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				err := mgr.Update(context.Background(), path, func(doc *testDoc) error {
					doc.Count++
					return nil
				})
				if err != nil {
					t.Errorf("Update failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := mgr.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Final read failed: %v", err)
	}
	if got.Count != workers*perWorker {
		t.Errorf("Final count mismatch: got %d, want %d", got.Count, workers*perWorker)
	}
}

func TestManager_UpdateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	mgr := NewManager[testDoc]()

	if err := mgr.Write(context.Background(), path, &testDoc{Name: "keep"}); err != nil {
		t.Fatalf("Initial write failed: %v", err)
	}

	boom := errors.New("update error")
	err := mgr.Update(context.Background(), path, func(doc *testDoc) error {
		doc.Name = "discarded"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped update error, got: %v", err)
	}

	got, err := mgr.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "keep" {
		t.Errorf("failed update was written: %+v", got)
	}
}

func TestManager_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	mgr := NewManager[testDoc]()

	if err := mgr.Write(context.Background(), path, &testDoc{Name: "gone"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := mgr.Delete(context.Background(), path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("document still present: %v", err)
	}
	if _, err := os.Stat(LockPath(path)); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	if err := mgr.Delete(context.Background(), path); err != nil {
		t.Errorf("Delete of missing file failed: %v", err)
	}
}

func TestManager_LockTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timeout test in short mode")
	}

	path := filepath.Join(t.TempDir(), "doc.yaml")
	mgr := NewManagerWithTimeout[testDoc](100 * time.Millisecond)

	if err := mgr.Write(context.Background(), path, &testDoc{}); err != nil {
		t.Fatalf("Initial write failed: %v", err)
	}

	holder := flock.New(LockPath(path))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	err = mgr.Write(context.Background(), path, &testDoc{Name: "blocked"})
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got: %v", err)
	}
}
