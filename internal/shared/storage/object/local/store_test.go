package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"resume-tailor/internal/shared/storage/object"
)

func TestPutOverwritesAndOpenReads(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "http://localhost:8080/files")

	if _, err := store.Put(ctx, "avatars/u1/avatar.png", "image/png", strings.NewReader("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	n, err := store.Put(ctx, "avatars/u1/avatar.png", "image/png", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if n != int64(len("second")) {
		t.Fatalf("expected size %d, got %d", len("second"), n)
	}

	rc, err := store.Open(ctx, "avatars/u1/avatar.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}

	if got := store.PublicURL("avatars/u1/avatar.png"); got != "http://localhost:8080/files/avatars/u1/avatar.png" {
		t.Fatalf("unexpected public url %s", got)
	}
}

func TestDeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "")

	if _, err := store.Put(ctx, "a/b.txt", "text/plain", strings.NewReader("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("delete missing should be nil, got %v", err)
	}
	if _, err := store.Open(ctx, "a/b.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir(), "")
	if _, err := store.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
