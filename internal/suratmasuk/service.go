// Package suratmasuk registers incoming letters.
package suratmasuk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// Error codes carried by ServiceError
const (
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
)

// ServiceError represents a service-level error
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ErrorCode exposes the code to the HTTP layer
func (e *ServiceError) ErrorCode() string {
	return e.Code
}

// Store is the incoming letter persistence used by the service
type Store interface {
	ListAll(ctx context.Context) ([]models.SuratMasuk, error)
	GetByID(ctx context.Context, id string) (*models.SuratMasuk, error)
	Create(ctx context.Context, params models.CreateSuratMasukParams) (*models.SuratMasuk, error)
	CreateBatch(ctx context.Context, batch []models.CreateSuratMasukParams) (int, error)
	Update(ctx context.Context, id string, params models.UpdateSuratMasukParams) (*models.SuratMasuk, error)
	Delete(ctx context.Context, id string) error
}

// Service handles incoming letter operations
type Service struct {
	store       Store
	loader      *cache.Loader
	invalidator *cache.Invalidator
	ttl         int
	logger      *logging.Logger
}

// NewService creates a new surat masuk service
func NewService(store Store, loader *cache.Loader, invalidator *cache.Invalidator, ttlSeconds int, logger *logging.Logger) *Service {
	return &Service{
		store:       store,
		loader:      loader,
		invalidator: invalidator,
		ttl:         ttlSeconds,
		logger:      logger.Component("suratmasuk"),
	}
}

// All returns the full cached dataset. Callers must not modify it.
func (s *Service) All(ctx context.Context) ([]models.SuratMasuk, error) {
	return cache.ReadThrough(ctx, s.loader, cache.KeySuratMasuk, s.ttl, s.store.ListAll)
}

// List filters and paginates the cached dataset, most recently received first
func (s *Service) List(ctx context.Context, filter models.SuratMasukFilterParams) (*models.SuratMasukListResponse, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	matched := Filter(all, filter)
	return &models.SuratMasukListResponse{
		Items:      models.Page(matched, filter.Limit, filter.Offset),
		TotalCount: len(matched),
	}, nil
}

// Filter selects incoming letters by year and range of tanggal terima, sifat
// and free text over nomor, asal and perihal
func Filter(all []models.SuratMasuk, filter models.SuratMasukFilterParams) []models.SuratMasuk {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	sifat := models.Sifat(strings.ToLower(string(filter.Sifat)))

	matched := make([]models.SuratMasuk, 0, len(all))
	for _, item := range all {
		if filter.Tahun != 0 && item.TanggalTerima.Year() != filter.Tahun {
			continue
		}
		if sifat != "" && item.Sifat != sifat {
			continue
		}
		if !models.InDateRange(item.TanggalTerima, filter.From, filter.To) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(item.NomorSurat), q) &&
			!strings.Contains(strings.ToLower(item.AsalSurat), q) &&
			!strings.Contains(strings.ToLower(item.Perihal), q) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.TanggalTerima.Equal(b.TanggalTerima.Time) {
			return b.TanggalTerima.Before(a.TanggalTerima)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return matched
}

// Get retrieves an incoming letter by ID
func (s *Service) Get(ctx context.Context, id string) (*models.SuratMasuk, error) {
	item, err := s.store.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "surat masuk not found"}
	}
	return item, err
}

// Create registers an incoming letter
func (s *Service) Create(ctx context.Context, userID string, params models.CreateSuratMasukParams) (*models.SuratMasuk, error) {
	if err := params.Validate(); err != nil {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}
	params.CreatedBy = userID

	item, err := s.store.Create(ctx, params)
	if err != nil {
		s.logger.Error("Failed to create surat masuk", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeSuratMasuk)
	s.logger.Info("Created surat masuk", logging.WithFields(map[string]interface{}{
		"id":    item.ID,
		"nomor": item.NomorSurat,
		"asal":  item.AsalSurat,
	}))
	return item, nil
}

// Update changes an incoming letter, keeping tanggal terima on or after tanggal surat
func (s *Service) Update(ctx context.Context, id string, params models.UpdateSuratMasukParams) (*models.SuratMasuk, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for field, v := range map[string]*string{"nomorSurat": params.NomorSurat, "asalSurat": params.AsalSurat, "perihal": params.Perihal} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return nil, &ServiceError{Code: CodeInvalidInput, Message: field + " cannot be empty"}
		}
	}
	if params.Sifat != nil {
		sifat := models.NormalizeSifat(*params.Sifat)
		if !models.IsValidSifat(sifat) {
			return nil, &ServiceError{Code: CodeInvalidInput, Message: "sifat must be biasa, penting, segera or rahasia"}
		}
		params.Sifat = &sifat
	}

	tanggalSurat, tanggalTerima := current.TanggalSurat, current.TanggalTerima
	if params.TanggalSurat != nil {
		tanggalSurat = *params.TanggalSurat
	}
	if params.TanggalTerima != nil {
		tanggalTerima = *params.TanggalTerima
	}
	if tanggalSurat.IsZero() || tanggalTerima.IsZero() {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "dates cannot be empty"}
	}
	if err := models.ValidateTanggalTerima(tanggalSurat, tanggalTerima); err != nil {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}

	item, err := s.store.Update(ctx, id, params)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "surat masuk not found"}
	}
	if err != nil {
		s.logger.Error("Failed to update surat masuk", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeSuratMasuk)
	s.logger.Info("Updated surat masuk", logging.WithField("id", id))
	return item, nil
}

// Delete removes an incoming letter
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &ServiceError{Code: CodeNotFound, Message: "surat masuk not found"}
		}
		s.logger.Error("Failed to delete surat masuk", logging.WithField("error", err.Error()))
		return err
	}

	s.invalidator.InvalidateByType(cache.TypeSuratMasuk)
	s.logger.Info("Deleted surat masuk", logging.WithField("id", id))
	return nil
}

// Import validates every row and stores the valid ones in one batch.
// Invalid rows are reported back; the dataset is invalidated once.
func (s *Service) Import(ctx context.Context, userID string, rows []models.CreateSuratMasukParams) (*models.ImportResult, error) {
	numbered := make([]Row, len(rows))
	for i, row := range rows {
		numbered[i] = Row{Number: i + 1, Params: row}
	}
	return s.importRows(ctx, userID, numbered, nil)
}

// ImportCSV parses an import sheet and imports its rows
func (s *Service) ImportCSV(ctx context.Context, userID string, r io.Reader) (*models.ImportResult, error) {
	rows, failed, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, userID, rows, failed)
}

func (s *Service) importRows(ctx context.Context, userID string, rows []Row, failed []models.ImportError) (*models.ImportResult, error) {
	result := &models.ImportResult{Failed: append([]models.ImportError{}, failed...)}

	valid := make([]models.CreateSuratMasukParams, 0, len(rows))
	for _, row := range rows {
		params := row.Params
		if err := params.Validate(); err != nil {
			result.Failed = append(result.Failed, models.ImportError{Row: row.Number, Message: err.Error()})
			continue
		}
		params.CreatedBy = userID
		valid = append(valid, params)
	}
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].Row < result.Failed[j].Row })

	if len(valid) == 0 {
		return result, nil
	}

	n, err := s.store.CreateBatch(ctx, valid)
	if err != nil {
		s.logger.Error("Failed to import surat masuk", logging.WithFields(map[string]interface{}{
			"rows":  len(valid),
			"error": err.Error(),
		}))
		return nil, fmt.Errorf("import failed: %w", err)
	}
	result.Imported = n

	s.invalidator.InvalidateByType(cache.TypeSuratMasuk)
	s.logger.Info("Imported surat masuk", logging.WithFields(map[string]interface{}{
		"imported": n,
		"failed":   len(result.Failed),
	}))
	return result, nil
}
