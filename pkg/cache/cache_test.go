package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachePutGet(t *testing.T) {
	c := openTestCache(t)

	key := Key("return 1;")
	data := []byte("serialized bytecode")
	if err := c.Put(key, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %q, got %q", data, got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := openTestCache(t)

	_, err := c.Get(Key("never stored"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCacheReplace(t *testing.T) {
	c := openTestCache(t)

	key := Key("return 2;")
	if err := c.Put(key, []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put(key, []byte("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Expected replacement, got %q", got)
	}
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	key := Key("return 3;")
	if err := c.Put(key, []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Close()

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer c2.Close()

	got, err := c2.Get(key)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Expected %q, got %q", "payload", got)
	}
}

func TestKeyIsContentSensitive(t *testing.T) {
	if Key("return 1;") == Key("return 2;") {
		t.Error("Different sources must produce different keys")
	}
	if Key("return 1;") != Key("return 1;") {
		t.Error("Equal sources must produce equal keys")
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	c.Close()
}
