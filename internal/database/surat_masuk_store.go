package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sipas/persuratan/internal/crypto"
	"github.com/sipas/persuratan/internal/models"
)

// SuratMasukStore handles incoming letter database operations. Disposisi and
// keterangan are sealed at rest when a sealer is configured.
type SuratMasukStore struct {
	db     *DB
	sealer *crypto.Sealer
}

// NewSuratMasukStore creates a new surat masuk store; sealer may be nil
func NewSuratMasukStore(db *DB, sealer *crypto.Sealer) *SuratMasukStore {
	return &SuratMasukStore{db: db, sealer: sealer}
}

const suratMasukColumns = `id, nomor_surat, asal_surat, perihal, tanggal_surat, tanggal_terima, sifat, disposisi, keterangan, created_by, created_at, updated_at`

const insertSuratMasuk = `
	INSERT INTO surat_masuk (nomor_surat, asal_surat, perihal, tanggal_surat, tanggal_terima, sifat, disposisi, keterangan, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + suratMasukColumns

// ListAll returns every incoming letter, most recently received first
func (s *SuratMasukStore) ListAll(ctx context.Context) ([]models.SuratMasuk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+suratMasukColumns+` FROM surat_masuk ORDER BY tanggal_terima DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.SuratMasuk{}
	for rows.Next() {
		sm, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *sm)
	}
	return list, rows.Err()
}

// GetByID retrieves an incoming letter by ID
func (s *SuratMasukStore) GetByID(ctx context.Context, id string) (*models.SuratMasuk, error) {
	return s.scan(s.db.QueryRowContext(ctx, `SELECT `+suratMasukColumns+` FROM surat_masuk WHERE id = $1`, id))
}

// Create registers an incoming letter
func (s *SuratMasukStore) Create(ctx context.Context, params models.CreateSuratMasukParams) (*models.SuratMasuk, error) {
	args, err := s.args(params)
	if err != nil {
		return nil, err
	}
	sm, err := s.scan(s.db.QueryRowContext(ctx, insertSuratMasuk, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create surat masuk: %w", err)
	}
	return sm, nil
}

// CreateBatch inserts all rows in one transaction; any failure aborts the batch
func (s *SuratMasukStore) CreateBatch(ctx context.Context, batch []models.CreateSuratMasukParams) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSuratMasuk)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, params := range batch {
		args, err := s.args(params)
		if err != nil {
			return 0, err
		}
		if _, err := s.scan(stmt.QueryRowContext(ctx, args...)); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(batch), nil
}

// Update changes an incoming letter
func (s *SuratMasukStore) Update(ctx context.Context, id string, params models.UpdateSuratMasukParams) (*models.SuratMasuk, error) {
	var sets []string
	var args []interface{}
	argIdx := 1
	add := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if params.NomorSurat != nil {
		add("nomor_surat", *params.NomorSurat)
	}
	if params.AsalSurat != nil {
		add("asal_surat", *params.AsalSurat)
	}
	if params.Perihal != nil {
		add("perihal", *params.Perihal)
	}
	if params.TanggalSurat != nil {
		add("tanggal_surat", *params.TanggalSurat)
	}
	if params.TanggalTerima != nil {
		add("tanggal_terima", *params.TanggalTerima)
	}
	if params.Sifat != nil {
		add("sifat", *params.Sifat)
	}
	if params.Disposisi != nil {
		sealed, err := s.sealer.Seal(*params.Disposisi)
		if err != nil {
			return nil, err
		}
		add("disposisi", nullString(sealed))
	}
	if params.Keterangan != nil {
		sealed, err := s.sealer.Seal(*params.Keterangan)
		if err != nil {
			return nil, err
		}
		add("keterangan", nullString(sealed))
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE surat_masuk SET %s WHERE id = $%d RETURNING `+suratMasukColumns,
		strings.Join(sets, ", "), argIdx)

	return s.scan(s.db.QueryRowContext(ctx, query, args...))
}

// Delete removes an incoming letter
func (s *SuratMasukStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM surat_masuk WHERE id = $1`, id)
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

func (s *SuratMasukStore) args(p models.CreateSuratMasukParams) ([]interface{}, error) {
	disposisi, err := s.sealer.Seal(p.Disposisi)
	if err != nil {
		return nil, err
	}
	keterangan, err := s.sealer.Seal(p.Keterangan)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		p.NomorSurat, p.AsalSurat, p.Perihal, p.TanggalSurat, p.TanggalTerima, p.Sifat,
		nullString(disposisi), nullString(keterangan), nullString(p.CreatedBy),
	}, nil
}

func (s *SuratMasukStore) scan(row rowScanner) (*models.SuratMasuk, error) {
	sm := &models.SuratMasuk{}
	var disposisi, keterangan, createdBy sql.NullString

	err := row.Scan(
		&sm.ID, &sm.NomorSurat, &sm.AsalSurat, &sm.Perihal, &sm.TanggalSurat, &sm.TanggalTerima,
		&sm.Sifat, &disposisi, &keterangan, &createdBy, &sm.CreatedAt, &sm.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if sm.Disposisi, err = s.sealer.Open(disposisi.String); err != nil {
		return nil, fmt.Errorf("failed to open disposisi of %s: %w", sm.ID, err)
	}
	if sm.Keterangan, err = s.sealer.Open(keterangan.String); err != nil {
		return nil, fmt.Errorf("failed to open keterangan of %s: %w", sm.ID, err)
	}
	sm.CreatedBy = createdBy.String
	return sm, nil
}
