// Package report renders period reports of outgoing and incoming letters
// and the dashboard summary.
package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// Kind selects which letter register a report covers
type Kind string

const (
	KindSurat      Kind = "surat"
	KindSuratMasuk Kind = "surat-masuk"
)

// Format is the output file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
)

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// CodeInvalidInput is the only error code the report service raises
const CodeInvalidInput = "invalid_input"

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

// SuratSource provides the full outgoing-letter dataset
type SuratSource interface {
	All(ctx context.Context) ([]models.Surat, error)
}

// SuratMasukSource provides the full incoming-letter dataset
type SuratMasukSource interface {
	All(ctx context.Context) ([]models.SuratMasuk, error)
}

// Report is a rendered report file
type Report struct {
	Filename    string
	ContentType string
	Rows        int
	Data        []byte
}

// Service builds reports from the cached letter datasets
type Service struct {
	surat      SuratSource
	suratMasuk SuratMasukSource
	logger     *logging.Logger
	printer    *message.Printer
	now        func() time.Time
}

// NewService creates a new report service
func NewService(surat SuratSource, suratMasuk SuratMasukSource, logger *logging.Logger) *Service {
	return &Service{
		surat:      surat,
		suratMasuk: suratMasuk,
		logger:     logger.Component("report"),
		printer:    message.NewPrinter(language.Indonesian),
		now:        time.Now,
	}
}

// table is the format-independent shape every renderer consumes
type table struct {
	title   string
	period  string
	headers []string
	widths  []float64 // relative column widths for pdf and xlsx
	rows    [][]string
}

// Generate renders the letters of kind dated within [from, to] in the given
// format. Zero bounds are open.
func (s *Service) Generate(ctx context.Context, kind Kind, from, to models.Date, format Format) (*Report, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, &ServiceError{Code: CodeInvalidInput, Message: "from must not be after to"}
	}

	var render func(*table) ([]byte, error)
	switch format {
	case FormatXLSX:
		render = renderXLSX
	case FormatPDF:
		render = s.renderPDF
	case FormatCSV:
		render = renderCSV
	default:
		return nil, &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("unsupported format %q", format)}
	}

	var (
		t   *table
		err error
	)
	switch kind {
	case KindSurat:
		t, err = s.suratTable(ctx, from, to)
	case KindSuratMasuk:
		t, err = s.suratMasukTable(ctx, from, to)
	default:
		return nil, &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("unknown report kind %q", kind)}
	}
	if err != nil {
		return nil, err
	}

	data, err := render(t)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", format, err)
	}

	s.logger.Info("Generated report", logging.WithFields(map[string]interface{}{
		"kind":   kind,
		"format": format,
		"rows":   len(t.rows),
	}))

	return &Report{
		Filename:    fmt.Sprintf("laporan-%s-%s.%s", kind, periodSlug(from, to), format),
		ContentType: format.ContentType(),
		Rows:        len(t.rows),
		Data:        data,
	}, nil
}

func (s *Service) suratTable(ctx context.Context, from, to models.Date) (*table, error) {
	all, err := s.surat.All(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Surat, 0, len(all))
	for _, sr := range all {
		if models.InDateRange(sr.TanggalSurat, from, to) {
			items = append(items, sr)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].TanggalSurat.Equal(items[j].TanggalSurat.Time) {
			return items[i].TanggalSurat.Before(items[j].TanggalSurat)
		}
		return items[i].NomorUrut < items[j].NomorUrut
	})

	t := &table{
		title:   "Laporan Surat Keluar",
		period:  periodLabel(from, to),
		headers: []string{"No", "Nomor Surat", "Tanggal", "Kategori", "Tujuan", "Perihal", "Sifat", "Keterangan"},
		widths:  []float64{1, 4, 2.5, 2, 4, 6, 2, 4},
	}
	for i, sr := range items {
		t.rows = append(t.rows, []string{
			strconv.Itoa(i + 1),
			sr.NomorSurat,
			formatShortDate(sr.TanggalSurat),
			sr.KategoriKode,
			sr.Tujuan,
			sr.Perihal,
			string(sr.Sifat),
			sr.Keterangan,
		})
	}
	return t, nil
}

func (s *Service) suratMasukTable(ctx context.Context, from, to models.Date) (*table, error) {
	all, err := s.suratMasuk.All(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.SuratMasuk, 0, len(all))
	for _, sm := range all {
		if models.InDateRange(sm.TanggalTerima, from, to) {
			items = append(items, sm)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TanggalTerima.Before(items[j].TanggalTerima)
	})

	t := &table{
		title:   "Laporan Surat Masuk",
		period:  periodLabel(from, to),
		headers: []string{"No", "Nomor Surat", "Asal Surat", "Tanggal Surat", "Tanggal Terima", "Perihal", "Sifat", "Disposisi"},
		widths:  []float64{1, 4, 4, 2.5, 2.5, 6, 2, 4},
	}
	for i, sm := range items {
		t.rows = append(t.rows, []string{
			strconv.Itoa(i + 1),
			sm.NomorSurat,
			sm.AsalSurat,
			formatShortDate(sm.TanggalSurat),
			formatShortDate(sm.TanggalTerima),
			sm.Perihal,
			string(sm.Sifat),
			sm.Disposisi,
		})
	}
	return t, nil
}

var bulan = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the Indonesian name of m
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return bulan[m-1]
}

// formatLongDate renders d as "17 Agustus 2026"
func formatLongDate(d models.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day(), MonthName(d.Month()), d.Year())
}

func formatShortDate(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func periodLabel(from, to models.Date) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "Semua periode"
	case from.IsZero():
		return "s.d. " + formatLongDate(to)
	case to.IsZero():
		return "Sejak " + formatLongDate(from)
	}
	return formatLongDate(from) + " s.d. " + formatLongDate(to)
}

func periodSlug(from, to models.Date) string {
	if from.IsZero() && to.IsZero() {
		return "semua"
	}
	slug := func(d models.Date) string {
		if d.IsZero() {
			return "x"
		}
		return d.String()
	}
	return slug(from) + "_" + slug(to)
}
