package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/settlement"
)

// ErrEmptyImport means the sheet was well formed but every row was a summary row.
var ErrEmptyImport = errors.New("no transaction rows left after removing total rows")

// totalMarkers identify summary rows by their reference text.
var totalMarkers = []string{"total", "الإجمالي", "اجمالي", "المجموع"}

// ImportResult is the normalized content of one sheet.
type ImportResult struct {
	Roles domain.ColumnRoles `json:"roles"`
	Rows  []domain.ImportRow `json:"rows"`
	// Amounts holds the parsed larger-amount column, ready for settlement.
	Amounts []float64 `json:"amounts"`
	Dropped int       `json:"dropped"`
}

// Import classifies the sheet columns and reshapes every data row.
func Import(sheet *domain.Sheet) (*ImportResult, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, domain.NewStructuralError("import", "the sheet contains no data rows", nil)
	}

	roles := ClassifyColumns(sheet.Headers, sheet.Rows)
	largerCol, ok := roles.Header(domain.RoleAmountLarger)
	if !ok {
		return nil, domain.NewStructuralError("import", "no amount column found in the sheet", nil)
	}

	cell := func(row domain.RawRow, role domain.ColumnRole) string {
		if h, ok := roles.Header(role); ok {
			return strings.TrimSpace(row[h])
		}
		return ""
	}

	res := &ImportResult{Roles: roles}
	for _, raw := range sheet.Rows {
		row := domain.ImportRow{
			Reference:     cell(raw, domain.RoleReference),
			CreatedAt:     cell(raw, domain.RoleDate),
			MobileNumber:  cell(raw, domain.RoleMobile),
			AmountSmaller: cell(raw, domain.RoleAmountSmaller),
			AmountLarger:  strings.TrimSpace(raw[largerCol]),
			Rate:          cell(raw, domain.RoleRate),
			Status:        cell(raw, domain.RoleStatus),
		}
		if IsTotalRow(row.Reference) {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	if len(res.Rows) == 0 {
		return nil, ErrEmptyImport
	}

	res.Amounts = LargerAmounts(res.Rows)
	return res, nil
}

// LargerAmounts extracts the valid larger (EGP) amounts of rows, in order.
func LargerAmounts(rows []domain.ImportRow) []float64 {
	cells := make([]string, len(rows))
	for i, r := range rows {
		cells[i] = r.AmountLarger
	}
	return settlement.ParseAmounts(strings.Join(cells, "\n"))
}

// IsTotalRow reports whether a reference marks a total/summary row.
func IsTotalRow(reference string) bool {
	ref := strings.ToLower(reference)
	for _, m := range totalMarkers {
		if strings.Contains(ref, m) {
			return true
		}
	}
	return false
}

// ManualRows builds import rows from typed amounts so they can be exported
// like an imported sheet.
func ManualRows(text string, aedToEGP float64, now time.Time) []domain.ImportRow {
	var rows []domain.ImportRow
	rate := ""
	if aedToEGP != 0 {
		rate = fmt.Sprint(aedToEGP)
	}
	for i, amount := range settlement.ParseAmounts(text) {
		rows = append(rows, domain.ImportRow{
			Reference:    fmt.Sprintf("MANUAL-%d", i+1),
			CreatedAt:    now.UTC().Format(time.RFC3339),
			AmountLarger: fmt.Sprint(amount),
			Rate:         rate,
		})
	}
	return rows
}
