package ingestion

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/settlement"
)

const exportSheet = "Transactions"

// ExportColumns is the fixed column order of exported workbooks.
var ExportColumns = []string{
	"Reference", "Date", "Mobile Number", "AED Amount", "EGP Amount", "AED / EGP", "USDT", "USDT Rate",
}

// ExportWorkbook renders rows as an xlsx workbook with a trailing totals row.
// Amount and rate cells are written as numbers, or left blank when unparseable.
func ExportWorkbook(rows []domain.ImportRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, domain.NewStructuralError("export", "there are no rows to export", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}
	if err := setRow(f, 1, toCells(ExportColumns)); err != nil {
		return nil, err
	}

	var totalAED, totalEGP float64
	var firstRate any = ""
	for i, r := range rows {
		aed := numericCell(r.AmountSmaller)
		egp := numericCell(r.AmountLarger)
		rate := numericCell(r.Rate)
		if v, ok := aed.(float64); ok {
			totalAED += v
		}
		if v, ok := egp.(float64); ok {
			totalEGP += v
		}
		if _, ok := rate.(float64); ok && firstRate == "" {
			firstRate = rate
		}

		cells := []any{r.Reference, r.CreatedAt, r.MobileNumber, aed, egp, rate, "", ""}
		if err := setRow(f, i+2, cells); err != nil {
			return nil, err
		}
	}

	total := []any{"Total", "", "", totalAED, totalEGP, firstRate, "", ""}
	if err := setRow(f, len(rows)+2, total); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, n int, cells []any) error {
	axis, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return errors.Wrapf(err, "row %d", n)
	}
	if err := f.SetSheetRow(exportSheet, axis, &cells); err != nil {
		return errors.Wrapf(err, "write row %d", n)
	}
	return nil
}

func numericCell(s string) any {
	if v, ok := settlement.ParseAmount(s); ok {
		return v
	}
	return ""
}

func toCells(ss []string) []any {
	cells := make([]any, len(ss))
	for i, s := range ss {
		cells[i] = s
	}
	return cells
}
