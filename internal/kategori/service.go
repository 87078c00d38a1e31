// Package kategori manages the classification codes that outgoing letters
// are numbered under, and serves them as a tree and as flat options.
package kategori

import (
	"context"
	"errors"
	"fmt"
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

// Store is the kategori persistence used by the service
type Store interface {
	ListAll(ctx context.Context) ([]models.Kategori, error)
	GetByID(ctx context.Context, id string) (*models.Kategori, error)
	GetByKode(ctx context.Context, kode string) (*models.Kategori, error)
	Create(ctx context.Context, params models.CreateKategoriParams) (*models.Kategori, error)
	Upsert(ctx context.Context, params models.CreateKategoriParams) (*models.Kategori, error)
	Update(ctx context.Context, id string, params models.UpdateKategoriParams) (*models.Kategori, error)
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
	CountSurat(ctx context.Context, kode string) (int, error)
}

// Service handles kategori operations
type Service struct {
	store       Store
	loader      *cache.Loader
	invalidator *cache.Invalidator
	ttl         int
	logger      *logging.Logger
}

// NewService creates a new kategori service. ttlSeconds applies to both the
// kategori list and the flattened categories.
func NewService(store Store, loader *cache.Loader, invalidator *cache.Invalidator, ttlSeconds int, logger *logging.Logger) *Service {
	return &Service{
		store:       store,
		loader:      loader,
		invalidator: invalidator,
		ttl:         ttlSeconds,
		logger:      logger.Component("kategori"),
	}
}

// List returns every kategori ordered by code
func (s *Service) List(ctx context.Context) ([]models.Kategori, error) {
	return cache.ReadThrough(ctx, s.loader, cache.KeyKategori, s.ttl, s.store.ListAll)
}

// Tree returns the kategori arranged by parent
func (s *Service) Tree(ctx context.Context) ([]*models.KategoriNode, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.BuildKategoriTree(list), nil
}

// Categories returns the flattened selectable options
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return cache.ReadThrough(ctx, s.loader, cache.KeyCategories, s.ttl, func(ctx context.Context) ([]models.Category, error) {
		list, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		return models.FlattenCategories(list), nil
	})
}

// Get retrieves a kategori by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Kategori, error) {
	k, err := s.store.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "kategori not found"}
	}
	return k, err
}

// FindByKode looks a code up in the cached list
func (s *Service) FindByKode(ctx context.Context, kode string) (*models.Kategori, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	k, ok := models.FindKategoriByKode(list, kode)
	if !ok {
		return nil, &ServiceError{Code: CodeNotFound, Message: fmt.Sprintf("kategori %s not found", kode)}
	}
	return &k, nil
}

// Create adds a kategori under an optional parent
func (s *Service) Create(ctx context.Context, params models.CreateKategoriParams) (*models.Kategori, error) {
	params.Kode = strings.TrimSpace(params.Kode)
	params.Nama = strings.TrimSpace(params.Nama)
	if params.Nama == "" {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "nama is required"}
	}
	if params.ParentID != nil && *params.ParentID == "" {
		params.ParentID = nil
	}

	if err := s.resolveLevel(ctx, &params); err != nil {
		return nil, err
	}

	k, err := s.store.Create(ctx, params)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ServiceError{Code: CodeConflict, Message: fmt.Sprintf("kode %s already exists", params.Kode)}
	}
	if err != nil {
		s.logger.Error("Failed to create kategori", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidate()
	s.logger.Info("Created kategori", logging.WithFields(map[string]interface{}{
		"id":    k.ID,
		"kode":  k.Kode,
		"level": k.Level,
	}))
	return k, nil
}

// resolveLevel derives the level from the parent and checks the code shape
func (s *Service) resolveLevel(ctx context.Context, params *models.CreateKategoriParams) error {
	parentKode := ""
	var parentLevel models.KategoriLevel
	if params.ParentID != nil {
		parent, err := s.store.GetByID(ctx, *params.ParentID)
		if errors.Is(err, database.ErrNotFound) {
			return &ServiceError{Code: CodeInvalidInput, Message: "parent kategori not found"}
		}
		if err != nil {
			return err
		}
		parentKode = parent.Kode
		parentLevel = parent.Level
	}

	level, ok := models.ChildLevel(parentLevel)
	if !ok {
		return &ServiceError{Code: CodeInvalidInput, Message: "a rincian kategori cannot have children"}
	}
	if err := models.ValidateChildKode(parentKode, params.Kode); err != nil {
		return &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}
	params.Level = level
	return nil
}

// Update changes the name or description of a kategori. Codes are immutable
// because issued letter numbers embed them.
func (s *Service) Update(ctx context.Context, id string, params models.UpdateKategoriParams) (*models.Kategori, error) {
	if params.Nama != nil {
		trimmed := strings.TrimSpace(*params.Nama)
		if trimmed == "" {
			return nil, &ServiceError{Code: CodeInvalidInput, Message: "nama cannot be empty"}
		}
		params.Nama = &trimmed
	}

	k, err := s.store.Update(ctx, id, params)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "kategori not found"}
	}
	if err != nil {
		s.logger.Error("Failed to update kategori", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidate()
	s.logger.Info("Updated kategori", logging.WithField("id", id))
	return k, nil
}

// Delete removes a kategori that has no children and no letters
func (s *Service) Delete(ctx context.Context, id string) error {
	k, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.store.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return &ServiceError{Code: CodeConflict, Message: fmt.Sprintf("kategori %s still has %d sub kategori", k.Kode, children)}
	}

	letters, err := s.store.CountSurat(ctx, k.Kode)
	if err != nil {
		return err
	}
	if letters > 0 {
		return &ServiceError{Code: CodeConflict, Message: fmt.Sprintf("kategori %s is used by %d surat", k.Kode, letters)}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrInUse) {
			return &ServiceError{Code: CodeConflict, Message: fmt.Sprintf("kategori %s is still referenced", k.Kode)}
		}
		s.logger.Error("Failed to delete kategori", logging.WithField("error", err.Error()))
		return err
	}

	s.invalidate()
	s.logger.Info("Deleted kategori", logging.WithFields(map[string]interface{}{
		"id":   id,
		"kode": k.Kode,
	}))
	return nil
}

// the flattened categories derive from the kategori list
func (s *Service) invalidate() {
	s.invalidator.InvalidateByType(cache.TypeKategori)
	s.invalidator.InvalidateByType(cache.TypeCategories)
}
