package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/models"
)

func TestAdminCacheRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, 10)

	tests := []struct {
		name       string
		role       models.Role
		wantStatus int
	}{
		{"admin", models.RoleAdmin, http.StatusOK},
		{"operator", models.RoleOperator, http.StatusForbidden},
		{"pimpinan", models.RolePimpinan, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/cache", nil)
			req.Header.Set("Authorization", "Bearer "+env.token(t, tt.role))
			w := env.do(req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAdminCacheStats(t *testing.T) {
	env := newTestEnv(t, 10)
	env.cache.Set(cache.KeySurat, []models.Surat{}, 60)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/cache", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, models.RoleAdmin))
	w := env.do(req)

	var stats cache.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Size != 1 {
		t.Errorf("size = %d, want 1", stats.Size)
	}
}

func TestAdminCacheInvalidate(t *testing.T) {
	env := newTestEnv(t, 10)
	token := env.token(t, models.RoleAdmin)

	invalidate := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return env.do(req)
	}

	env.cache.Set(cache.KeySurat, []models.Surat{}, 60)
	env.cache.Set(cache.KeyKategori, []models.Kategori{}, 60)

	if w := invalidate(`{"type":"surat"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.cache.Has(cache.KeySurat) {
		t.Error("suratData should be evicted")
	}
	if !env.cache.Has(cache.KeyKategori) {
		t.Error("kategoriData should be untouched")
	}

	if w := invalidate(`{"type":"letters"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", w.Code)
	}
	if w := invalidate(`{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", w.Code)
	}

	if w := invalidate(`{"all":true}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.cache.Has(cache.KeyKategori) {
		t.Error("kategoriData should be evicted by all")
	}
}

func TestAdminCacheClean(t *testing.T) {
	env := newTestEnv(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/clean", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, models.RoleAdmin))
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["evicted"] != 0 {
		t.Errorf("evicted = %d, want 0", body["evicted"])
	}
}
