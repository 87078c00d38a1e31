package cache

import (
	"testing"
	"time"

	"github.com/sipas/persuratan/internal/testutil"
)

func seedAllKeys(s Store) {
	for _, key := range []string{KeyKategori, KeySurat, KeySuratMasuk, KeyUsers, KeyCategories} {
		s.Set(key, []string{key}, 300)
	}
}

func TestKeyForType(t *testing.T) {
	tests := []struct {
		dataType string
		wantKey  string
		wantOK   bool
	}{
		{TypeKategori, "kategoriData", true},
		{TypeSurat, "suratData", true},
		{TypeSuratMasuk, "suratMasukData", true},
		{TypeUsers, "usersData", true},
		{TypeCategories, "categoriesData", true},
		{"letters", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			got, ok := KeyForType(tt.dataType)
			if ok != tt.wantOK || got != tt.wantKey {
				t.Errorf("KeyForType(%q) = %q, %v; want %q, %v", tt.dataType, got, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestInvalidator_InvalidateByType_EvictsOnlyItsKey(t *testing.T) {
	store := newTestMemory(t)
	inv := NewInvalidator(store, testutil.NullLogger())
	seedAllKeys(store)

	inv.InvalidateByType(TypeSurat)

	if store.Has(KeySurat) {
		t.Error("suratData should be evicted")
	}
	for _, key := range []string{KeyUsers, KeyKategori, KeySuratMasuk, KeyCategories} {
		if !store.Has(key) {
			t.Errorf("%s should be untouched", key)
		}
	}
}

func TestInvalidator_UsersScenario(t *testing.T) {
	store := newTestMemory(t)
	inv := NewInvalidator(store, testutil.NullLogger())

	store.Set(KeyUsers, []string{"199001012020011001"}, 300)
	inv.InvalidateByType(TypeUsers)

	if _, ok := store.Get(KeyUsers); ok {
		t.Error("usersData should be absent after InvalidateByType(users)")
	}
}

func TestInvalidator_UnknownType(t *testing.T) {
	store := newTestMemory(t)
	inv := NewInvalidator(store, testutil.NullLogger())
	seedAllKeys(store)
	store.Set("unknown-type", "v", 300)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("InvalidateByType panicked: %v", r)
		}
	}()
	inv.InvalidateByType("unknown-type")

	if size := store.Stats().Size; size != 6 {
		t.Errorf("size = %d, want 6 (nothing evicted)", size)
	}
}

func TestInvalidator_InvalidateAll(t *testing.T) {
	store := newTestMemory(t)
	inv := NewInvalidator(store, testutil.NullLogger())
	seedAllKeys(store)
	store.Set("session:abc", "keep", 300)

	inv.InvalidateAll()

	stats := inv.Stats()
	if stats.Size != 1 {
		t.Fatalf("size = %d, want 1", stats.Size)
	}
	if stats.Entries[0].Key != "session:abc" {
		t.Errorf("remaining key = %s, want session:abc", stats.Entries[0].Key)
	}
}

func TestInvalidator_CleanPassthrough(t *testing.T) {
	clock := newFakeClock()
	store := newTestMemory(t, WithClock(clock.Now))
	inv := NewInvalidator(store, testutil.NullLogger())

	store.Set(KeySurat, 1, 60)
	store.Set(KeyUsers, 1, 300)
	clock.Advance(61 * time.Second)

	if n := inv.Clean(); n != 1 {
		t.Errorf("Clean() = %d, want 1", n)
	}
	if !store.Has(KeyUsers) {
		t.Error("usersData should survive Clean")
	}
}
