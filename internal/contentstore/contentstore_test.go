package contentstore

import (
	"bytes"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := []byte("<html><body>hello</body></html>")
	ref, err := store.Put(body)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref == "" {
		t.Fatal("Put() returned empty reference")
	}

	got, err := store.Get(ref)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Get() = %q, want %q", got, body)
	}
}

func TestPutIsContentAddressed(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := []byte("same content twice")
	ref1, err := store.Put(body)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	ref2, err := store.Put(body)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("Put() of identical content produced different refs: %q vs %q", ref1, ref2)
	}
}

func TestGetMissingReference(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Get("ab/cd/nonexistent"); err == nil {
		t.Error("Get() on missing reference: expected error, got nil")
	}
}
