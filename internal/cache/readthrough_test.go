package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sipas/persuratan/internal/testutil"
)

type record struct {
	ID   string `json:"id"`
	Nama string `json:"nama"`
}

func TestGetAs(t *testing.T) {
	store := newTestMemory(t)
	store.Set("typed", []record{{ID: "1", Nama: "Umum"}}, 60)
	store.Set("raw", json.RawMessage(`[{"id":"2","nama":"Keuangan"}]`), 60)
	store.Set("int", 42, 60)

	tests := []struct {
		name     string
		key      string
		wantOK   bool
		wantNama string
	}{
		{"typed value", "typed", true, "Umum"},
		{"json payload", "raw", true, "Keuangan"},
		{"wrong type is a miss", "int", false, ""},
		{"absent", "missing", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetAs[[]record](store, tt.key)
			if ok != tt.wantOK {
				t.Fatalf("GetAs(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if ok && got[0].Nama != tt.wantNama {
				t.Errorf("nama = %q, want %q", got[0].Nama, tt.wantNama)
			}
		})
	}
}

func TestReadThrough_LoadsOnceThenHits(t *testing.T) {
	loader := NewLoader(newTestMemory(t))
	var calls int32

	load := func(ctx context.Context) ([]record, error) {
		atomic.AddInt32(&calls, 1)
		return []record{{ID: "1"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := ReadThrough(context.Background(), loader, KeySurat, 60, load)
		if err != nil {
			t.Fatalf("ReadThrough() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
}

func TestReadThrough_ErrorsAreNotCached(t *testing.T) {
	loader := NewLoader(newTestMemory(t))
	boom := errors.New("db down")

	_, err := ReadThrough(context.Background(), loader, KeyUsers, 300, func(ctx context.Context) ([]record, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if loader.Store().Has(KeyUsers) {
		t.Error("a failed load must not be cached")
	}

	got, err := ReadThrough(context.Background(), loader, KeyUsers, 300, func(ctx context.Context) ([]record, error) {
		return []record{{ID: "u1"}}, nil
	})
	if err != nil {
		t.Fatalf("ReadThrough() error = %v", err)
	}
	if got[0].ID != "u1" {
		t.Errorf("id = %s, want u1", got[0].ID)
	}
}

func TestReadThrough_CollapsesConcurrentMisses(t *testing.T) {
	loader := NewLoader(newTestMemory(t))
	var calls int32
	release := make(chan struct{})

	load := func(ctx context.Context) ([]record, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []record{{ID: "1"}}, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ReadThrough(context.Background(), loader, KeyKategori, 300, load); err != nil {
				errs <- err
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("ReadThrough() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
}

func TestReadThrough_InvalidationDuringLoadIsNotCached(t *testing.T) {
	store := newTestMemory(t)
	loader := NewLoader(store)
	inv := NewInvalidator(store, testutil.NullLogger()).WithLoader(loader)

	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = ReadThrough(context.Background(), loader, KeySurat, 60, func(ctx context.Context) ([]record, error) {
			close(started)
			<-release
			return []record{{ID: "stale"}}, nil
		})
	}()

	<-started
	inv.InvalidateByType(TypeSurat)
	close(release)
	<-done

	if store.Has(KeySurat) {
		t.Error("a load that raced a write must not be cached")
	}
}

func TestReadThrough_ContextCancelled(t *testing.T) {
	loader := NewLoader(newTestMemory(t))
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	cancel()
	_, err := ReadThrough(ctx, loader, KeySuratMasuk, 60, func(ctx context.Context) ([]record, error) {
		<-release
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
