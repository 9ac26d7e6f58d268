package api

import (
	"encoding/json"
	"testing"
)

func TestCacheLookupMissesOnDifferentURL(t *testing.T) {
	c := NewCache()
	c.Store("X", "http://a/missions", json.RawMessage(`1`))
	if _, ok := c.Lookup("X", "http://a/other"); ok {
		t.Fatalf("expected miss for different URL")
	}
	if v, ok := c.Lookup("X", "http://a/missions"); !ok || string(v) != "1" {
		t.Fatalf("expected hit for same URL, got %q ok=%v", v, ok)
	}
}

func TestCacheLastWriterWins(t *testing.T) {
	c := NewCache()
	c.Store("X", "http://a/1", json.RawMessage(`"first"`))
	c.Store("X", "http://a/2", json.RawMessage(`"second"`))
	if _, ok := c.Lookup("X", "http://a/1"); ok {
		t.Fatalf("first writer should have been overwritten")
	}
	v, ok := c.Lookup("X", "http://a/2")
	if !ok || string(v) != `"second"` {
		t.Fatalf("expected second value, got %q ok=%v", v, ok)
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := NewCache()
	c.Store("a", "u", json.RawMessage(`1`))
	c.Store("b", "u", json.RawMessage(`2`))
	c.Invalidate("a", "missing-tag")
	if _, ok := c.Lookup("a", "u"); ok {
		t.Fatalf("expected a invalidated")
	}
	if _, ok := c.Lookup("b", "u"); !ok {
		t.Fatalf("expected b retained")
	}
	c.Clear()
	if _, ok := c.Lookup("b", "u"); ok {
		t.Fatalf("expected cleared")
	}
}
