package storage

import (
	"context"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore(" Memory ", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestOpenInitializesStore(t *testing.T) {
	store, err := Open(context.Background(), "memory", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = CloseIfSupported(store) }()

	if _, err := store.ListFavorites(context.Background(), ""); err != nil {
		t.Fatalf("list on opened store: %v", err)
	}
}
