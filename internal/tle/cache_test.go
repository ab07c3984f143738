package tle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestCacheWriteLoad verifies round-trip through the newest file.
func TestCacheWriteLoad(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 3)

	t1 := time.Unix(1700000000, 0).UTC()
	t2 := time.Unix(1700000100, 0).UTC()
	if err := c.Write([]byte("old catalog"), t1); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := c.Write([]byte("new catalog"), t2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if string(data) != "new catalog" {
		t.Errorf("LoadLatest data = %q, want newest file", data)
	}
	if !ts.Equal(t2) {
		t.Errorf("LoadLatest ts = %v, want %v", ts, t2)
	}
}

// TestCacheEmpty verifies the no-files error path.
func TestCacheEmpty(t *testing.T) {
	c := NewCache(t.TempDir(), 3)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Error("expected error from empty cache")
	}
}

// TestCacheMissingDir verifies a never-written cache dir behaves as empty.
func TestCacheMissingDir(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "nonexistent"), 3)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Error("expected error from missing cache dir")
	}
}

// TestCachePrune verifies old files are removed past maxFiles.
func TestCachePrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := c.Write([]byte("catalog"), ts); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 cache files after prune, got %d", len(entries))
	}

	// The survivors must be the newest two.
	_, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if want := base.Add(4 * time.Minute); !ts.Equal(want) {
		t.Errorf("newest survivor ts = %v, want %v", ts, want)
	}
}

// TestCacheIgnoresForeignFiles verifies unrelated files in the cache dir
// are neither loaded nor pruned.
func TestCacheIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep me"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := NewCache(dir, 1)
	if err := c.Write([]byte("catalog"), time.Unix(1700000000, 0).UTC()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := c.Write([]byte("catalog"), time.Unix(1700000100, 0).UTC()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file was touched by prune: %v", err)
	}
}
