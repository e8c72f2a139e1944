package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/voucherdesk/reconciler/internal/domain"
)

// ReadWorkbook loads the first sheet of an .xlsx, legacy .xls or .csv file into
// header-keyed rows. Blank rows are skipped; the first non-blank row is the header.
func ReadWorkbook(data []byte, fileName string) (*domain.Sheet, error) {
	var (
		cells [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xls":
		cells, err = readXLS(data)
	case ".csv":
		cells, err = readCSV(data)
	default:
		cells, err = readXLSX(data)
	}
	if err != nil {
		return nil, domain.NewStructuralError("read workbook", "the file is not a readable workbook", err)
	}
	return buildSheet(cells), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The xls decoder panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, errors.Errorf("decode xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open xls")
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("first sheet is unreadable")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func buildSheet(cells [][]string) *domain.Sheet {
	sheet := &domain.Sheet{}
	headerFound := false
	for _, row := range cells {
		if isBlankRow(row) {
			continue
		}
		if !headerFound {
			sheet.Headers = uniqueHeaders(row)
			headerFound = true
			continue
		}
		raw := make(domain.RawRow, len(sheet.Headers))
		for i, h := range sheet.Headers {
			if i < len(row) {
				raw[h] = strings.TrimSpace(row[i])
			}
		}
		sheet.Rows = append(sheet.Rows, raw)
	}
	return sheet
}

// uniqueHeaders names empty headers __EMPTY and suffixes repeats with _1, _2...
func uniqueHeaders(row []string) []string {
	seen := make(map[string]int, len(row))
	headers := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "__EMPTY"
		}
		base := h
		for seen[h] > 0 {
			h = fmt.Sprintf("%s_%d", base, seen[base])
			seen[base]++
		}
		seen[h]++
		headers[i] = h
	}
	return headers
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
