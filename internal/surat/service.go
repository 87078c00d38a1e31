// Package surat manages outgoing letters and their category-coded numbers.
package surat

import (
	"context"
	"errors"
	"fmt"
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
	CodeConflict     = "conflict"
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

// Store is the outgoing letter persistence used by the service
type Store interface {
	ListAll(ctx context.Context) ([]models.Surat, error)
	GetByID(ctx context.Context, id string) (*models.Surat, error)
	PeekNomorUrut(ctx context.Context, kode string, tahun int) (int, error)
	CreateNumbered(ctx context.Context, params models.CreateSuratParams) (*models.Surat, error)
	Update(ctx context.Context, id string, params models.UpdateSuratParams) (*models.Surat, error)
	Delete(ctx context.Context, id string) error
}

// KategoriLookup resolves classification codes
type KategoriLookup interface {
	FindByKode(ctx context.Context, kode string) (*models.Kategori, error)
}

// Service handles outgoing letter operations
type Service struct {
	store       Store
	kategori    KategoriLookup
	loader      *cache.Loader
	invalidator *cache.Invalidator
	ttl         int
	logger      *logging.Logger
}

// NewService creates a new surat service
func NewService(store Store, kategori KategoriLookup, loader *cache.Loader, invalidator *cache.Invalidator, ttlSeconds int, logger *logging.Logger) *Service {
	return &Service{
		store:       store,
		kategori:    kategori,
		loader:      loader,
		invalidator: invalidator,
		ttl:         ttlSeconds,
		logger:      logger.Component("surat"),
	}
}

// All returns the full cached dataset, newest first. Callers must not modify it.
func (s *Service) All(ctx context.Context) ([]models.Surat, error) {
	return cache.ReadThrough(ctx, s.loader, cache.KeySurat, s.ttl, s.store.ListAll)
}

// List filters and paginates the cached dataset
func (s *Service) List(ctx context.Context, filter models.SuratFilterParams) (*models.SuratListResponse, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	matched := Filter(all, filter)
	return &models.SuratListResponse{
		Items:      models.Page(matched, filter.Limit, filter.Offset),
		TotalCount: len(matched),
	}, nil
}

// Filter selects letters matching every set criterion, newest first.
// A kategori filter also matches its sub codes.
func Filter(all []models.Surat, filter models.SuratFilterParams) []models.Surat {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	kode := strings.TrimSpace(filter.Kategori)

	matched := make([]models.Surat, 0, len(all))
	for _, item := range all {
		if filter.Tahun != 0 && item.Tahun != filter.Tahun {
			continue
		}
		if kode != "" && item.KategoriKode != kode && !strings.HasPrefix(item.KategoriKode, kode+".") {
			continue
		}
		if !models.InDateRange(item.TanggalSurat, filter.From, filter.To) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(item.Perihal), q) &&
			!strings.Contains(strings.ToLower(item.Tujuan), q) &&
			!strings.Contains(strings.ToLower(item.NomorSurat), q) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.TanggalSurat.Equal(b.TanggalSurat.Time) {
			return b.TanggalSurat.Before(a.TanggalSurat)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return matched
}

// Get retrieves an outgoing letter by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Surat, error) {
	item, err := s.store.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "surat not found"}
	}
	return item, err
}

// PreviewNomor returns the number the next letter in kode would receive for
// the year of tanggal, without allocating it
func (s *Service) PreviewNomor(ctx context.Context, kode string, tanggal models.Date) (*models.NomorPreview, error) {
	if tanggal.IsZero() {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "tanggal is required"}
	}
	if err := s.requireKategori(ctx, kode); err != nil {
		return nil, err
	}

	tahun := tanggal.Year()
	urut, err := s.store.PeekNomorUrut(ctx, kode, tahun)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter: %w", err)
	}

	return &models.NomorPreview{
		KategoriKode: kode,
		Tahun:        tahun,
		NomorUrut:    urut,
		NomorSurat:   models.FormatNomorSurat(kode, urut, tahun),
	}, nil
}

// Create numbers and stores a new outgoing letter
func (s *Service) Create(ctx context.Context, userID string, params models.CreateSuratParams) (*models.Surat, error) {
	params.KategoriKode = strings.TrimSpace(params.KategoriKode)
	if err := params.Validate(); err != nil {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}
	if err := s.requireKategori(ctx, params.KategoriKode); err != nil {
		return nil, err
	}
	params.Tujuan = strings.TrimSpace(params.Tujuan)
	params.Perihal = strings.TrimSpace(params.Perihal)
	params.CreatedBy = userID

	item, err := s.store.CreateNumbered(ctx, params)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ServiceError{Code: CodeConflict, Message: "nomor surat already issued, try again"}
	}
	if err != nil {
		s.logger.Error("Failed to create surat", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeSurat)
	s.logger.Info("Created surat", logging.WithFields(map[string]interface{}{
		"id":    item.ID,
		"nomor": item.NomorSurat,
		"user":  userID,
	}))
	return item, nil
}

// Update changes a letter. Moving it to another kategori or year allocates a
// new number; otherwise the number is kept.
func (s *Service) Update(ctx context.Context, id string, params models.UpdateSuratParams) (*models.Surat, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateUpdate(ctx, &params); err != nil {
		return nil, err
	}

	item, err := s.store.Update(ctx, id, params)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "surat not found"}
	}
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ServiceError{Code: CodeConflict, Message: "nomor surat already issued, try again"}
	}
	if err != nil {
		s.logger.Error("Failed to update surat", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeSurat)
	fields := map[string]interface{}{"id": id, "nomor": item.NomorSurat}
	if item.NomorSurat != current.NomorSurat {
		fields["previous"] = current.NomorSurat
	}
	s.logger.Info("Updated surat", logging.WithFields(fields))
	return item, nil
}

func (s *Service) validateUpdate(ctx context.Context, params *models.UpdateSuratParams) error {
	if params.KategoriKode != nil {
		kode := strings.TrimSpace(*params.KategoriKode)
		params.KategoriKode = &kode
		if err := models.ValidateKategoriKode(kode); err != nil {
			return &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
		}
		if err := s.requireKategori(ctx, kode); err != nil {
			return err
		}
	}
	if params.TanggalSurat != nil && params.TanggalSurat.IsZero() {
		return &ServiceError{Code: CodeInvalidInput, Message: "tanggal surat cannot be empty"}
	}
	if params.Tujuan != nil && strings.TrimSpace(*params.Tujuan) == "" {
		return &ServiceError{Code: CodeInvalidInput, Message: "tujuan cannot be empty"}
	}
	if params.Perihal != nil && strings.TrimSpace(*params.Perihal) == "" {
		return &ServiceError{Code: CodeInvalidInput, Message: "perihal cannot be empty"}
	}
	if params.Sifat != nil {
		sifat := models.NormalizeSifat(*params.Sifat)
		if !models.IsValidSifat(sifat) {
			return &ServiceError{Code: CodeInvalidInput, Message: "sifat must be biasa, penting, segera or rahasia"}
		}
		params.Sifat = &sifat
	}
	// numbering fields are only set by the store
	params.NomorSurat, params.NomorUrut, params.Tahun = nil, nil, nil
	return nil
}

// Delete removes an outgoing letter
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &ServiceError{Code: CodeNotFound, Message: "surat not found"}
		}
		s.logger.Error("Failed to delete surat", logging.WithField("error", err.Error()))
		return err
	}

	s.invalidator.InvalidateByType(cache.TypeSurat)
	s.logger.Info("Deleted surat", logging.WithField("id", id))
	return nil
}

func (s *Service) requireKategori(ctx context.Context, kode string) error {
	if err := models.ValidateKategoriKode(kode); err != nil {
		return &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}
	if _, err := s.kategori.FindByKode(ctx, kode); err != nil {
		var coded interface{ ErrorCode() string }
		if errors.As(err, &coded) && coded.ErrorCode() == CodeNotFound {
			return &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("kategori %s does not exist", kode)}
		}
		return err
	}
	return nil
}
