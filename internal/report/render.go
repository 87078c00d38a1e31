package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

func renderCSV(t *table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const xlsxSheet = "Laporan"

func renderXLSX(t *table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.headers))
	if err != nil {
		return nil, err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Border:    cellBorders(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Border:    cellBorders(),
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	f.SetCellValue(xlsxSheet, "A1", t.title)
	f.SetCellStyle(xlsxSheet, "A1", "A1", titleStyle)
	f.SetCellValue(xlsxSheet, "A2", t.period)

	const headerRow = 4
	if err := f.SetSheetRow(xlsxSheet, fmt.Sprintf("A%d", headerRow), &t.headers); err != nil {
		return nil, err
	}
	f.SetCellStyle(xlsxSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle)

	for i, row := range t.rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell := fmt.Sprintf("A%d", headerRow+1+i)
		if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
			return nil, err
		}
	}
	if len(t.rows) > 0 {
		f.SetCellStyle(xlsxSheet, fmt.Sprintf("A%d", headerRow+1), fmt.Sprintf("%s%d", lastCol, headerRow+len(t.rows)), bodyStyle)
	}

	for i, w := range t.widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(xlsxSheet, col, col, w*6)
	}

	f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellBorders() []excelize.Border {
	out := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "top", "right", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}

const (
	pdfLineHeight = 6.0
	pdfMargin     = 10.0
)

func (s *Service) renderPDF(t *table) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*pdfMargin
	var total float64
	for _, w := range t.widths {
		total += w
	}
	widths := make([]float64, len(t.widths))
	for i, w := range t.widths {
		widths[i] = usable * w / total
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(217, 225, 242)
		for i, h := range t.headers {
			pdf.CellFormat(widths[i], pdfLineHeight+1, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Halaman %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(t.title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(t.period), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	header()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range t.rows {
		if pdf.GetY()+pdfLineHeight > pageH-bottom-15 {
			pdf.AddPage()
			header()
		}
		for i, v := range row {
			pdf.CellFormat(widths[i], pdfLineHeight, tr(fitText(pdf, v, widths[i]-2)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(0, 6, s.printer.Sprintf("Jumlah: %d surat", len(t.rows)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitText shortens v with an ellipsis until it fits in width
func fitText(pdf *fpdf.Fpdf, v string, width float64) string {
	if pdf.GetStringWidth(v) <= width {
		return v
	}
	r := []rune(v)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
