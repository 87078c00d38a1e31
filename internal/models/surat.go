package models

import (
	"strings"
	"time"
)

// Sifat is the handling classification of a letter
type Sifat string

const (
	SifatBiasa   Sifat = "biasa"
	SifatPenting Sifat = "penting"
	SifatSegera  Sifat = "segera"
	SifatRahasia Sifat = "rahasia"
)

// IsValidSifat reports whether s is a known classification
func IsValidSifat(s Sifat) bool {
	switch s {
	case SifatBiasa, SifatPenting, SifatSegera, SifatRahasia:
		return true
	}
	return false
}

// NormalizeSifat lowercases s and defaults an empty value to biasa
func NormalizeSifat(s Sifat) Sifat {
	v := Sifat(strings.ToLower(strings.TrimSpace(string(s))))
	if v == "" {
		return SifatBiasa
	}
	return v
}

// Surat is an outgoing letter (surat keluar)
type Surat struct {
	ID           string    `json:"id"`
	NomorSurat   string    `json:"nomorSurat"`
	KategoriKode string    `json:"kategoriKode"`
	NomorUrut    int       `json:"nomorUrut"`
	Tahun        int       `json:"tahun"`
	TanggalSurat Date      `json:"tanggalSurat"`
	Tujuan       string    `json:"tujuan"`
	Perihal      string    `json:"perihal"`
	Sifat        Sifat     `json:"sifat"`
	Keterangan   string    `json:"keterangan,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateSuratParams represents parameters for creating an outgoing letter.
// The number fields are filled by the service before the insert.
type CreateSuratParams struct {
	KategoriKode string `json:"kategoriKode"`
	TanggalSurat Date   `json:"tanggalSurat"`
	Tujuan       string `json:"tujuan"`
	Perihal      string `json:"perihal"`
	Sifat        Sifat  `json:"sifat"`
	Keterangan   string `json:"keterangan,omitempty"`

	NomorSurat string `json:"-"`
	NomorUrut  int    `json:"-"`
	Tahun      int    `json:"-"`
	CreatedBy  string `json:"-"`
}

// Validate checks the user-supplied fields
func (p *CreateSuratParams) Validate() error {
	if err := ValidateKategoriKode(p.KategoriKode); err != nil {
		return err
	}
	if p.TanggalSurat.IsZero() {
		return &ValidationError{Field: "tanggalSurat", Message: "tanggal surat is required"}
	}
	if strings.TrimSpace(p.Tujuan) == "" {
		return &ValidationError{Field: "tujuan", Message: "tujuan is required"}
	}
	if strings.TrimSpace(p.Perihal) == "" {
		return &ValidationError{Field: "perihal", Message: "perihal is required"}
	}
	p.Sifat = NormalizeSifat(p.Sifat)
	if !IsValidSifat(p.Sifat) {
		return &ValidationError{Field: "sifat", Message: "sifat must be biasa, penting, segera or rahasia"}
	}
	return nil
}

// UpdateSuratParams represents parameters for updating an outgoing letter
type UpdateSuratParams struct {
	KategoriKode *string `json:"kategoriKode,omitempty"`
	TanggalSurat *Date   `json:"tanggalSurat,omitempty"`
	Tujuan       *string `json:"tujuan,omitempty"`
	Perihal      *string `json:"perihal,omitempty"`
	Sifat        *Sifat  `json:"sifat,omitempty"`
	Keterangan   *string `json:"keterangan,omitempty"`

	// Set by the service when the letter is renumbered
	NomorSurat *string `json:"-"`
	NomorUrut  *int    `json:"-"`
	Tahun      *int    `json:"-"`
}

// NeedsRenumber reports whether applying p to current moves the letter to
// another kategori or year, which requires a fresh number
func NeedsRenumber(current Surat, p UpdateSuratParams) bool {
	if p.KategoriKode != nil && *p.KategoriKode != current.KategoriKode {
		return true
	}
	return p.TanggalSurat != nil && p.TanggalSurat.Year() != current.Tahun
}

// SuratFilterParams narrows a letter listing
type SuratFilterParams struct {
	Tahun    int    `json:"tahun,omitempty"`
	Kategori string `json:"kategori,omitempty"`
	Query    string `json:"q,omitempty"`
	From     Date   `json:"from,omitempty"`
	To       Date   `json:"to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// SuratListResponse represents a paginated list of outgoing letters
type SuratListResponse struct {
	Items      []Surat `json:"items"`
	TotalCount int     `json:"totalCount"`
}

// NomorPreview is the number the next letter in a kategori would receive
type NomorPreview struct {
	KategoriKode string `json:"kategoriKode"`
	Tahun        int    `json:"tahun"`
	NomorUrut    int    `json:"nomorUrut"`
	NomorSurat   string `json:"nomorSurat"`
}

// InDateRange reports whether d falls within [from, to]; zero bounds are open
func InDateRange(d, from, to Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && to.Before(d) {
		return false
	}
	return true
}
