package models

import (
	"strings"
	"time"
)

// SuratMasuk is an incoming letter
type SuratMasuk struct {
	ID            string    `json:"id"`
	NomorSurat    string    `json:"nomorSurat"`
	AsalSurat     string    `json:"asalSurat"`
	Perihal       string    `json:"perihal"`
	TanggalSurat  Date      `json:"tanggalSurat"`
	TanggalTerima Date      `json:"tanggalTerima"`
	Sifat         Sifat     `json:"sifat"`
	Disposisi     string    `json:"disposisi,omitempty"`
	Keterangan    string    `json:"keterangan,omitempty"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateSuratMasukParams represents parameters for registering an incoming letter
type CreateSuratMasukParams struct {
	NomorSurat    string `json:"nomorSurat"`
	AsalSurat     string `json:"asalSurat"`
	Perihal       string `json:"perihal"`
	TanggalSurat  Date   `json:"tanggalSurat"`
	TanggalTerima Date   `json:"tanggalTerima"`
	Sifat         Sifat  `json:"sifat"`
	Disposisi     string `json:"disposisi,omitempty"`
	Keterangan    string `json:"keterangan,omitempty"`
	CreatedBy     string `json:"-"`
}

// Validate checks required fields and the received-after-written rule
func (p *CreateSuratMasukParams) Validate() error {
	p.NomorSurat = strings.TrimSpace(p.NomorSurat)
	if p.NomorSurat == "" {
		return &ValidationError{Field: "nomorSurat", Message: "nomor surat is required"}
	}
	if strings.TrimSpace(p.AsalSurat) == "" {
		return &ValidationError{Field: "asalSurat", Message: "asal surat is required"}
	}
	if strings.TrimSpace(p.Perihal) == "" {
		return &ValidationError{Field: "perihal", Message: "perihal is required"}
	}
	if p.TanggalSurat.IsZero() {
		return &ValidationError{Field: "tanggalSurat", Message: "tanggal surat is required"}
	}
	if p.TanggalTerima.IsZero() {
		return &ValidationError{Field: "tanggalTerima", Message: "tanggal terima is required"}
	}
	if err := ValidateTanggalTerima(p.TanggalSurat, p.TanggalTerima); err != nil {
		return err
	}
	p.Sifat = NormalizeSifat(p.Sifat)
	if !IsValidSifat(p.Sifat) {
		return &ValidationError{Field: "sifat", Message: "sifat must be biasa, penting, segera or rahasia"}
	}
	return nil
}

// ValidateTanggalTerima rejects a received date before the letter date
func ValidateTanggalTerima(tanggalSurat, tanggalTerima Date) error {
	if tanggalTerima.Before(tanggalSurat) {
		return &ValidationError{Field: "tanggalTerima", Message: "tanggal terima cannot be before tanggal surat"}
	}
	return nil
}

// UpdateSuratMasukParams represents parameters for updating an incoming letter
type UpdateSuratMasukParams struct {
	NomorSurat    *string `json:"nomorSurat,omitempty"`
	AsalSurat     *string `json:"asalSurat,omitempty"`
	Perihal       *string `json:"perihal,omitempty"`
	TanggalSurat  *Date   `json:"tanggalSurat,omitempty"`
	TanggalTerima *Date   `json:"tanggalTerima,omitempty"`
	Sifat         *Sifat  `json:"sifat,omitempty"`
	Disposisi     *string `json:"disposisi,omitempty"`
	Keterangan    *string `json:"keterangan,omitempty"`
}

// SuratMasukFilterParams narrows an incoming letter listing
type SuratMasukFilterParams struct {
	Tahun  int    `json:"tahun,omitempty"`
	Sifat  Sifat  `json:"sifat,omitempty"`
	Query  string `json:"q,omitempty"`
	From   Date   `json:"from,omitempty"`
	To     Date   `json:"to,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SuratMasukListResponse represents a paginated list of incoming letters
type SuratMasukListResponse struct {
	Items      []SuratMasuk `json:"items"`
	TotalCount int          `json:"totalCount"`
}

// ImportResult summarizes a bulk import of incoming letters
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   []ImportError `json:"failed"`
}

// ImportError describes one rejected row
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
