package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sipas/persuratan/internal/models"
)

// SuratStore handles outgoing letter database operations, including
// allocation of the per-kategori running number.
type SuratStore struct {
	db *DB
}

// NewSuratStore creates a new surat store
func NewSuratStore(db *DB) *SuratStore {
	return &SuratStore{db: db}
}

const suratColumns = `id, nomor_surat, kategori_kode, nomor_urut, tahun, tanggal_surat, tujuan, perihal, sifat, keterangan, created_by, created_at, updated_at`

const nextNomorQuery = `
	INSERT INTO nomor_counter (kategori_kode, tahun, last)
	VALUES ($1, $2, 1)
	ON CONFLICT (kategori_kode, tahun) DO UPDATE SET
		last = nomor_counter.last + 1,
		updated_at = NOW()
	RETURNING last
`

// ListAll returns every outgoing letter, newest first
func (s *SuratStore) ListAll(ctx context.Context) ([]models.Surat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+suratColumns+` FROM surat_keluar ORDER BY tanggal_surat DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Surat{}
	for rows.Next() {
		surat, err := scanSurat(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *surat)
	}
	return list, rows.Err()
}

// GetByID retrieves an outgoing letter by ID
func (s *SuratStore) GetByID(ctx context.Context, id string) (*models.Surat, error) {
	return scanSurat(s.db.QueryRowContext(ctx, `SELECT `+suratColumns+` FROM surat_keluar WHERE id = $1`, id))
}

// PeekNomorUrut returns the running number the next letter would get,
// without allocating it
func (s *SuratStore) PeekNomorUrut(ctx context.Context, kode string, tahun int) (int, error) {
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT last FROM nomor_counter WHERE kategori_kode = $1 AND tahun = $2), 0)`,
		kode, tahun,
	).Scan(&last)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// CreateNumbered allocates the next number for (kategori, year of tanggal
// surat) and inserts the letter in one transaction. A failed insert rolls
// the counter back, so sequences stay gap-free.
func (s *SuratStore) CreateNumbered(ctx context.Context, params models.CreateSuratParams) (*models.Surat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tahun := params.TanggalSurat.Year()
	var urut int
	if err := tx.QueryRowContext(ctx, nextNomorQuery, params.KategoriKode, tahun).Scan(&urut); err != nil {
		return nil, fmt.Errorf("failed to allocate nomor: %w", err)
	}

	params.Tahun = tahun
	params.NomorUrut = urut
	params.NomorSurat = models.FormatNomorSurat(params.KategoriKode, urut, tahun)

	query := `
		INSERT INTO surat_keluar (nomor_surat, kategori_kode, nomor_urut, tahun, tanggal_surat, tujuan, perihal, sifat, keterangan, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + suratColumns

	surat, err := scanSurat(tx.QueryRowContext(ctx, query,
		params.NomorSurat, params.KategoriKode, params.NomorUrut, params.Tahun, params.TanggalSurat,
		params.Tujuan, params.Perihal, params.Sifat, nullString(params.Keterangan), nullString(params.CreatedBy),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create surat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit surat: %w", err)
	}
	return surat, nil
}

// Update changes a letter. Moving it to another kategori or year, judged
// against the locked row, allocates a fresh number in the same transaction.
func (s *SuratStore) Update(ctx context.Context, id string, params models.UpdateSuratParams) (*models.Surat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanSurat(tx.QueryRowContext(ctx,
		`SELECT `+suratColumns+` FROM surat_keluar WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	if models.NeedsRenumber(*current, params) {
		kode := current.KategoriKode
		if params.KategoriKode != nil {
			kode = *params.KategoriKode
		}
		tanggal := current.TanggalSurat
		if params.TanggalSurat != nil {
			tanggal = *params.TanggalSurat
		}
		tahun := tanggal.Year()

		var urut int
		if err := tx.QueryRowContext(ctx, nextNomorQuery, kode, tahun).Scan(&urut); err != nil {
			return nil, fmt.Errorf("failed to allocate nomor: %w", err)
		}
		nomor := models.FormatNomorSurat(kode, urut, tahun)
		params.NomorSurat = &nomor
		params.NomorUrut = &urut
		params.Tahun = &tahun
	}

	var sets []string
	var args []interface{}
	argIdx := 1
	add := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if params.KategoriKode != nil {
		add("kategori_kode", *params.KategoriKode)
	}
	if params.TanggalSurat != nil {
		add("tanggal_surat", *params.TanggalSurat)
	}
	if params.Tujuan != nil {
		add("tujuan", *params.Tujuan)
	}
	if params.Perihal != nil {
		add("perihal", *params.Perihal)
	}
	if params.Sifat != nil {
		add("sifat", *params.Sifat)
	}
	if params.Keterangan != nil {
		add("keterangan", nullString(*params.Keterangan))
	}
	if params.NomorSurat != nil {
		add("nomor_surat", *params.NomorSurat)
		add("nomor_urut", *params.NomorUrut)
		add("tahun", *params.Tahun)
	}

	if len(sets) == 0 {
		return current, nil
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE surat_keluar SET %s WHERE id = $%d RETURNING `+suratColumns,
		strings.Join(sets, ", "), argIdx)

	updated, err := scanSurat(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update surat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit surat: %w", err)
	}
	return updated, nil
}

// Delete removes an outgoing letter. Its number is not reused.
func (s *SuratStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM surat_keluar WHERE id = $1`, id)
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

func scanSurat(row rowScanner) (*models.Surat, error) {
	surat := &models.Surat{}
	var keterangan, createdBy sql.NullString

	err := row.Scan(
		&surat.ID, &surat.NomorSurat, &surat.KategoriKode, &surat.NomorUrut, &surat.Tahun,
		&surat.TanggalSurat, &surat.Tujuan, &surat.Perihal, &surat.Sifat, &keterangan,
		&createdBy, &surat.CreatedAt, &surat.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	surat.Keterangan = keterangan.String
	surat.CreatedBy = createdBy.String
	return surat, nil
}
