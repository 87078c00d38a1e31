package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sipas/persuratan/internal/models"
)

// KategoriStore handles kategori database operations
type KategoriStore struct {
	db *DB
}

// NewKategoriStore creates a new kategori store
func NewKategoriStore(db *DB) *KategoriStore {
	return &KategoriStore{db: db}
}

const kategoriColumns = `id, kode, nama, parent_id, level, keterangan, created_at, updated_at`

// ListAll returns the whole classification table
func (s *KategoriStore) ListAll(ctx context.Context) ([]models.Kategori, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+kategoriColumns+` FROM kategori ORDER BY kode`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Kategori{}
	for rows.Next() {
		k, err := scanKategori(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	models.SortKategori(list)
	return list, nil
}

// GetByID retrieves a kategori by ID
func (s *KategoriStore) GetByID(ctx context.Context, id string) (*models.Kategori, error) {
	return scanKategori(s.db.QueryRowContext(ctx, `SELECT `+kategoriColumns+` FROM kategori WHERE id = $1`, id))
}

// GetByKode retrieves a kategori by its code
func (s *KategoriStore) GetByKode(ctx context.Context, kode string) (*models.Kategori, error) {
	return scanKategori(s.db.QueryRowContext(ctx, `SELECT `+kategoriColumns+` FROM kategori WHERE kode = $1`, kode))
}

// Create inserts a kategori. Level must be resolved by the caller.
func (s *KategoriStore) Create(ctx context.Context, params models.CreateKategoriParams) (*models.Kategori, error) {
	query := `
		INSERT INTO kategori (kode, nama, parent_id, level, keterangan)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + kategoriColumns

	k, err := scanKategori(s.db.QueryRowContext(ctx, query,
		params.Kode, params.Nama, nullStringPtr(params.ParentID), params.Level, nullString(params.Keterangan),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create kategori %s: %w", params.Kode, err)
	}
	return k, nil
}

// Upsert inserts a kategori or refreshes the name of an existing code.
// Used by the seed loader.
func (s *KategoriStore) Upsert(ctx context.Context, params models.CreateKategoriParams) (*models.Kategori, error) {
	query := `
		INSERT INTO kategori (kode, nama, parent_id, level, keterangan)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kode) DO UPDATE SET
			nama = EXCLUDED.nama,
			keterangan = EXCLUDED.keterangan,
			updated_at = NOW()
		RETURNING ` + kategoriColumns

	k, err := scanKategori(s.db.QueryRowContext(ctx, query,
		params.Kode, params.Nama, nullStringPtr(params.ParentID), params.Level, nullString(params.Keterangan),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert kategori %s: %w", params.Kode, err)
	}
	return k, nil
}

// Update changes the descriptive fields of a kategori
func (s *KategoriStore) Update(ctx context.Context, id string, params models.UpdateKategoriParams) (*models.Kategori, error) {
	var sets []string
	var args []interface{}
	argIdx := 1

	if params.Nama != nil {
		sets = append(sets, fmt.Sprintf("nama = $%d", argIdx))
		args = append(args, *params.Nama)
		argIdx++
	}
	if params.Keterangan != nil {
		sets = append(sets, fmt.Sprintf("keterangan = $%d", argIdx))
		args = append(args, nullString(*params.Keterangan))
		argIdx++
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE kategori SET %s WHERE id = $%d RETURNING `+kategoriColumns,
		strings.Join(sets, ", "), argIdx)
	return scanKategori(s.db.QueryRowContext(ctx, query, args...))
}

// Delete removes a kategori. Foreign keys from children or letters surface as ErrInUse.
func (s *KategoriStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kategori WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
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

// CountChildren returns the number of direct children of a kategori
func (s *KategoriStore) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kategori WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

// CountSurat returns the number of outgoing letters filed under a code
func (s *KategoriStore) CountSurat(ctx context.Context, kode string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM surat_keluar WHERE kategori_kode = $1`, kode).Scan(&n)
	return n, err
}

func scanKategori(row rowScanner) (*models.Kategori, error) {
	k := &models.Kategori{}
	var parentID, keterangan sql.NullString

	err := row.Scan(&k.ID, &k.Kode, &k.Nama, &parentID, &k.Level, &keterangan, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}

	if parentID.Valid {
		k.ParentID = &parentID.String
	}
	k.Keterangan = keterangan.String
	return k, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}
