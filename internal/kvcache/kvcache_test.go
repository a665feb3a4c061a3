package kvcache

import (
	"errors"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{"memory": NewMemory(), "badger": b}
}

func TestKeys(t *testing.T) {
	if got := LessonKey("42", 1, 3); got != "lesson:42-1-3" {
		t.Errorf("LessonKey = %q", got)
	}
	if got := XPKey("ana"); got != "xp:ana" {
		t.Errorf("XPKey = %q", got)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
			}

			key := LessonKey("7", 0, 2)
			if done, err := GetBool(s, key); err != nil || done {
				t.Fatalf("GetBool before set = %v, %v", done, err)
			}
			if err := SetBool(s, key, true); err != nil {
				t.Fatalf("SetBool: %v", err)
			}
			if done, err := GetBool(s, key); err != nil || !done {
				t.Errorf("GetBool = %v, %v; want true", done, err)
			}

			if err := SetInt(s, XPKey("ana"), 250); err != nil {
				t.Fatalf("SetInt: %v", err)
			}
			if n, ok, err := GetInt(s, XPKey("ana")); err != nil || !ok || n != 250 {
				t.Errorf("GetInt = %d, %v, %v", n, ok, err)
			}

			if err := s.Delete(key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
				t.Errorf("after Delete: err = %v", err)
			}

			if err := s.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if n, ok, _ := GetInt(s, XPKey("ana")); !ok || n != 250 {
				t.Errorf("Flush must keep keys, got %d, %v", n, ok)
			}
		})
	}
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerConfig{}); err == nil {
		t.Fatal("expected error without path")
	}
}

func TestOpenBadger_Persists(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := SetInt(b, XPKey("ana"), 90); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err = OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if n, ok, err := GetInt(b, XPKey("ana")); err != nil || !ok || n != 90 {
		t.Errorf("after reopen GetInt = %d, %v, %v", n, ok, err)
	}
}
