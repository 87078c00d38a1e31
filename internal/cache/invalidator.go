package cache

import (
	"github.com/sipas/persuratan/internal/logging"
)

// Data types accepted by InvalidateByType
const (
	TypeKategori   = "kategori"
	TypeSurat      = "surat"
	TypeSuratMasuk = "suratMasuk"
	TypeUsers      = "users"
	TypeCategories = "categories"
)

// Cache keys for the datasets held in the store
const (
	KeyKategori   = "kategoriData"
	KeySurat      = "suratData"
	KeySuratMasuk = "suratMasukData"
	KeyUsers      = "usersData"
	KeyCategories = "categoriesData"
)

var keysByType = map[string]string{
	TypeKategori:   KeyKategori,
	TypeSurat:      KeySurat,
	TypeSuratMasuk: KeySuratMasuk,
	TypeUsers:      KeyUsers,
	TypeCategories: KeyCategories,
}

// KeyForType returns the cache key of a data type
func KeyForType(dataType string) (string, bool) {
	key, ok := keysByType[dataType]
	return key, ok
}

// Invalidator evicts dataset keys after writes. It is the only component
// allowed to remove dataset entries; services call it instead of the store.
type Invalidator struct {
	store  Store
	loader *Loader
	logger *logging.Logger
}

// NewInvalidator creates an invalidator over the given store
func NewInvalidator(store Store, logger *logging.Logger) *Invalidator {
	return &Invalidator{store: store, logger: logger}
}

// WithLoader makes invalidations also discard in-flight loads of the evicted
// keys, so a load that started before a write cannot repopulate stale data.
func (inv *Invalidator) WithLoader(l *Loader) *Invalidator {
	inv.loader = l
	return inv
}

func (inv *Invalidator) evict(key string) bool {
	if inv.loader != nil {
		inv.loader.forget(key)
	}
	return inv.store.Delete(key)
}

// InvalidateByType evicts the key mapped to dataType. Unknown types are
// logged and ignored.
func (inv *Invalidator) InvalidateByType(dataType string) {
	key, ok := keysByType[dataType]
	if !ok {
		inv.logger.Warn("Unknown cache data type, nothing invalidated", logging.WithField("type", dataType))
		return
	}

	existed := inv.evict(key)
	cacheInvalidations.WithLabelValues(dataType).Inc()
	inv.logger.Debug("Cache invalidated", logging.WithFields(map[string]interface{}{
		"type":    dataType,
		"key":     key,
		"existed": existed,
	}))
}

// InvalidateAll evicts every known dataset key
func (inv *Invalidator) InvalidateAll() {
	for _, dataType := range []string{TypeKategori, TypeSurat, TypeSuratMasuk, TypeUsers, TypeCategories} {
		inv.evict(keysByType[dataType])
		cacheInvalidations.WithLabelValues(dataType).Inc()
	}
	inv.logger.Info("All dataset caches invalidated")
}

// Stats passes through to the store
func (inv *Invalidator) Stats() Stats {
	return inv.store.Stats()
}

// Clean passes through to the store
func (inv *Invalidator) Clean() int {
	return inv.store.Clean()
}
