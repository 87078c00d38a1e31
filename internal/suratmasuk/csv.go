package suratmasuk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sipas/persuratan/internal/models"
)

var csvColumns = []string{
	"nomor_surat", "asal_surat", "perihal", "tanggal_surat", "tanggal_terima", "sifat", "disposisi", "keterangan",
}

var requiredColumns = []string{"nomor_surat", "asal_surat", "perihal", "tanggal_surat", "tanggal_terima"}

// Row is a parsed import line with its 1-based data row number
type Row struct {
	Number int
	Params models.CreateSuratMasukParams
}

// ParseCSV reads an import sheet. The first row is a header naming the
// columns in any order; both comma and semicolon separators are accepted.
// Rows with unparseable dates are returned as ImportErrors, numbered from the
// first data row.
func ParseCSV(r io.Reader) ([]Row, []models.ImportError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = detectSeparator(string(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &ServiceError{Code: CodeInvalidInput, Message: "import file is empty"}
	}
	if err != nil {
		return nil, nil, &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("invalid CSV header: %v", err)}
	}

	index := map[string]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, &ServiceError{Code: CodeInvalidInput, Message: fmt.Sprintf("missing column %s", col)}
		}
	}

	var rows []Row
	var failed []models.ImportError
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failed = append(failed, models.ImportError{Row: rowNum, Message: err.Error()})
			continue
		}

		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		tanggalSurat, errSurat := models.ParseDate(get("tanggal_surat"))
		tanggalTerima, errTerima := models.ParseDate(get("tanggal_terima"))
		if errSurat != nil || errTerima != nil {
			failed = append(failed, models.ImportError{Row: rowNum, Message: "invalid tanggal_surat or tanggal_terima"})
			continue
		}

		rows = append(rows, Row{Number: rowNum, Params: models.CreateSuratMasukParams{
			NomorSurat:    get("nomor_surat"),
			AsalSurat:     get("asal_surat"),
			Perihal:       get("perihal"),
			TanggalSurat:  tanggalSurat,
			TanggalTerima: tanggalTerima,
			Sifat:         models.Sifat(get("sifat")),
			Disposisi:     get("disposisi"),
			Keterangan:    get("keterangan"),
		}})
	}

	return rows, failed, nil
}

// CSVHeader is the column order used for templates and exports
func CSVHeader() []string {
	out := make([]string, len(csvColumns))
	copy(out, csvColumns)
	return out
}

func detectSeparator(data string) rune {
	firstLine := data
	if i := strings.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}
