package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sipas/persuratan/internal/models"
)

// UserStore handles user database operations
type UserStore struct {
	db *DB
}

// NewUserStore creates a new user store
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, nip, nama, jabatan, role, status, password_hash, created_at, updated_at, last_login_at`

// Create creates a new user. params.Password must already be hashed.
func (s *UserStore) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	nip := models.NormalizeNIP(params.NIP)
	role := params.Role
	if role == "" {
		role = models.RoleOperator
	}

	query := `
		INSERT INTO users (nip, nama, jabatan, role, status, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query,
		nip, params.Nama, nullString(params.Jabatan), role, models.UserStatusActive, params.Password,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", nip, err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByNIP retrieves a user by NIP
func (s *UserStore) GetByNIP(ctx context.Context, nip string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE nip = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, models.NormalizeNIP(nip)))
}

// Update updates a user
func (s *UserStore) Update(ctx context.Context, id string, params models.UpdateUserParams) (*models.User, error) {
	var sets []string
	var args []interface{}
	argIdx := 1

	if params.Nama != nil {
		sets = append(sets, fmt.Sprintf("nama = $%d", argIdx))
		args = append(args, *params.Nama)
		argIdx++
	}
	if params.Jabatan != nil {
		sets = append(sets, fmt.Sprintf("jabatan = $%d", argIdx))
		args = append(args, nullString(*params.Jabatan))
		argIdx++
	}
	if params.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, *params.Role)
		argIdx++
	}
	if params.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Password != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", argIdx))
		args = append(args, *params.Password)
		argIdx++
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE users SET %s
		WHERE id = $%d
		RETURNING `+userColumns, strings.Join(sets, ", "), argIdx)

	return s.scanUser(s.db.QueryRowContext(ctx, query, args...))
}

// UpdateLastLogin updates the last login timestamp
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// Delete soft-deletes a user by setting status to disabled
func (s *UserStore) Delete(ctx context.Context, id string) error {
	query := `UPDATE users SET status = 'disabled', updated_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListAll returns every user ordered by name. The users service caches this
// slice and filters it in memory.
func (s *UserStore) ListAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY nama ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountAdmins returns the number of active admins
func (s *UserStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND status = 'active'`,
	).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *UserStore) scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var jabatan sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.NIP, &user.Nama, &jabatan, &user.Role, &user.Status,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	user.Jabatan = jabatan.String
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}
