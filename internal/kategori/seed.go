package kategori

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// SeedEntry is one node of a kategori seed file
//
//	- kode: "000"
//	  nama: Umum
//	  children:
//	    - kode: "000.1"
//	      nama: Ketatausahaan
type SeedEntry struct {
	Kode       string      `yaml:"kode"`
	Nama       string      `yaml:"nama"`
	Keterangan string      `yaml:"keterangan,omitempty"`
	Children   []SeedEntry `yaml:"children,omitempty"`
}

// ParseSeed decodes a YAML seed document
func ParseSeed(r io.Reader) ([]SeedEntry, error) {
	var entries []SeedEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse kategori seed: %w", err)
	}
	return entries, nil
}

// Seed upserts the given tree. Existing codes keep their position and get
// their names refreshed. Returns the number of entries written.
func (s *Service) Seed(ctx context.Context, entries []SeedEntry) (int, error) {
	written := 0
	var walk func(parent *models.Kategori, list []SeedEntry) error
	walk = func(parent *models.Kategori, list []SeedEntry) error {
		for _, e := range list {
			params := models.CreateKategoriParams{
				Kode:       strings.TrimSpace(e.Kode),
				Nama:       strings.TrimSpace(e.Nama),
				Keterangan: e.Keterangan,
			}
			if params.Nama == "" {
				return &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("kategori %s has no nama", params.Kode)}
			}
			if parent != nil {
				params.ParentID = &parent.ID
			}

			parentKode := ""
			var parentLevel models.KategoriLevel
			if parent != nil {
				parentKode = parent.Kode
				parentLevel = parent.Level
			}
			level, ok := models.ChildLevel(parentLevel)
			if !ok {
				return &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("kategori %s is nested too deep", params.Kode)}
			}
			if err := models.ValidateChildKode(parentKode, params.Kode); err != nil {
				return &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("kategori %s: %s", params.Kode, err.Error())}
			}
			params.Level = level

			k, err := s.store.Upsert(ctx, params)
			if err != nil {
				return err
			}
			written++

			if err := walk(k, e.Children); err != nil {
				return err
			}
		}
		return nil
	}

	err := walk(nil, entries)
	if written > 0 {
		s.invalidate()
	}
	if err != nil {
		return written, err
	}

	s.logger.Info("Seeded kategori", logging.WithField("count", written))
	return written, nil
}
