package ingestion

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV reads a comma-separated export into cells. Rows may have
// differing widths; a UTF-8 byte order mark is ignored.
func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	lineNum := 0
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("csv file is empty")
	}
	return rows, nil
}
