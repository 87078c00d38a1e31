// Package users administers staff accounts.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sipas/persuratan/internal/auth"
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
	CodeForbidden    = "forbidden"
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

// Store is the user persistence used by the service
type Store interface {
	ListAll(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	Update(ctx context.Context, id string, params models.UpdateUserParams) (*models.User, error)
	Delete(ctx context.Context, id string) error
	CountAdmins(ctx context.Context) (int, error)
}

// Service handles user administration
type Service struct {
	store       Store
	loader      *cache.Loader
	invalidator *cache.Invalidator
	ttl         int
	bcryptCost  int
	logger      *logging.Logger
	titleCase   cases.Caser
}

// NewService creates a new users service
func NewService(store Store, loader *cache.Loader, invalidator *cache.Invalidator, ttlSeconds, bcryptCost int, logger *logging.Logger) *Service {
	return &Service{
		store:       store,
		loader:      loader,
		invalidator: invalidator,
		ttl:         ttlSeconds,
		bcryptCost:  bcryptCost,
		logger:      logger.Component("users"),
		// NoLower keeps academic titles such as S.Kom intact
		titleCase: cases.Title(language.Indonesian, cases.NoLower),
	}
}

func (s *Service) all(ctx context.Context) ([]models.User, error) {
	return cache.ReadThrough(ctx, s.loader, cache.KeyUsers, s.ttl, s.store.ListAll)
}

// List filters and paginates the cached user list. Password hashes never
// leave the service.
func (s *Service) List(ctx context.Context, filter models.UserFilterParams) (*models.UsersResponse, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]models.User, 0, len(all))
	for _, u := range all {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Nama), q) && !strings.Contains(u.NIP, q) {
			continue
		}
		u.PasswordHash = ""
		matched = append(matched, u)
	}

	return &models.UsersResponse{
		Users:      models.Page(matched, filter.Limit, filter.Offset),
		TotalCount: len(matched),
	}, nil
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "user not found"}
	}
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Create adds an account with a bcrypt-hashed password
func (s *Service) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	params.NIP = models.NormalizeNIP(params.NIP)
	params.Nama = s.normalizeNama(params.Nama)
	params.Jabatan = strings.TrimSpace(params.Jabatan)
	if params.Role == "" {
		params.Role = models.RoleOperator
	}

	if err := models.ValidateNIP(params.NIP); err != nil {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}
	if params.Nama == "" {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "nama is required"}
	}
	if !models.IsValidRole(params.Role) {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "role must be admin, operator or pimpinan"}
	}
	if err := models.ValidatePassword(params.Password); err != nil {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}

	hash, err := auth.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	params.Password = hash

	u, err := s.store.Create(ctx, params)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ServiceError{Code: CodeConflict, Message: fmt.Sprintf("a user with NIP %s already exists", params.NIP)}
	}
	if err != nil {
		s.logger.Error("Failed to create user", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeUsers)
	s.logger.Info("Created user", logging.WithFields(map[string]interface{}{
		"id":   u.ID,
		"role": u.Role,
	}))
	u.PasswordHash = ""
	return u, nil
}

// Update changes profile, role or status. Callers cannot change their own
// role or status, and the last active admin cannot be demoted or disabled.
func (s *Service) Update(ctx context.Context, actorID, id string, params models.UpdateUserParams) (*models.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Nama != nil {
		nama := s.normalizeNama(*params.Nama)
		if nama == "" {
			return nil, &ServiceError{Code: CodeInvalidInput, Message: "nama cannot be empty"}
		}
		params.Nama = &nama
	}
	if params.Role != nil && !models.IsValidRole(*params.Role) {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "role must be admin, operator or pimpinan"}
	}
	if params.Status != nil && *params.Status != models.UserStatusActive && *params.Status != models.UserStatusDisabled {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "status must be active or disabled"}
	}
	// passwords only change through ResetPassword
	params.Password = nil

	roleChange := params.Role != nil && *params.Role != current.Role
	statusChange := params.Status != nil && *params.Status != current.Status
	if actorID == id && (roleChange || statusChange) {
		return nil, &ServiceError{Code: CodeForbidden, Message: "you cannot change your own role or status"}
	}
	if current.Role == models.RoleAdmin && current.IsActive() &&
		((roleChange && *params.Role != models.RoleAdmin) || (statusChange && *params.Status != models.UserStatusActive)) {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	u, err := s.store.Update(ctx, id, params)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ServiceError{Code: CodeNotFound, Message: "user not found"}
	}
	if err != nil {
		s.logger.Error("Failed to update user", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.invalidator.InvalidateByType(cache.TypeUsers)
	s.logger.Info("Updated user", logging.WithFields(map[string]interface{}{
		"id":    id,
		"actor": actorID,
	}))
	u.PasswordHash = ""
	return u, nil
}

// ResetPassword sets a new password for a user
func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	if err := models.ValidatePassword(password); err != nil {
		return &ServiceError{Code: CodeInvalidInput, Message: err.Error()}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	_, err = s.store.Update(ctx, id, models.UpdateUserParams{Password: &hash})
	if errors.Is(err, database.ErrNotFound) {
		return &ServiceError{Code: CodeNotFound, Message: "user not found"}
	}
	if err != nil {
		return err
	}

	s.invalidator.InvalidateByType(cache.TypeUsers)
	s.logger.Info("Password reset", logging.WithField("id", id))
	return nil
}

// Delete disables an account. Users cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return &ServiceError{Code: CodeForbidden, Message: "you cannot delete your own account"}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Role == models.RoleAdmin && current.IsActive() {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &ServiceError{Code: CodeNotFound, Message: "user not found"}
		}
		s.logger.Error("Failed to delete user", logging.WithField("error", err.Error()))
		return err
	}

	s.invalidator.InvalidateByType(cache.TypeUsers)
	s.logger.Info("Disabled user", logging.WithFields(map[string]interface{}{
		"id":    id,
		"actor": actorID,
	}))
	return nil
}

func (s *Service) requireAnotherAdmin(ctx context.Context) error {
	admins, err := s.store.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return &ServiceError{Code: CodeConflict, Message: "at least one active admin must remain"}
	}
	return nil
}

func (s *Service) normalizeNama(nama string) string {
	nama = strings.Join(strings.Fields(nama), " ")
	return s.titleCase.String(nama)
}
