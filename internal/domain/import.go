package domain

import "time"

// RawRow maps a sheet header to its cell text.
type RawRow map[string]string

// Sheet is the first worksheet of an imported workbook. Headers keep column order.
type Sheet struct {
	Headers []string
	Rows    []RawRow
}

type ColumnRole string

const (
	RoleAmountLarger  ColumnRole = "amountLarger"
	RoleAmountSmaller ColumnRole = "amountSmaller"
	RoleRate          ColumnRole = "rate"
	RoleReference     ColumnRole = "reference"
	RoleDate          ColumnRole = "date"
	RoleMobile        ColumnRole = "mobile"
	RoleStatus        ColumnRole = "status"
)

// ColumnRoles assigns roles to header names. A missing key means no column matched.
type ColumnRoles map[ColumnRole]string

// Header returns the header assigned to role and whether one was found.
func (c ColumnRoles) Header(role ColumnRole) (string, bool) {
	h, ok := c[role]
	return h, ok && h != ""
}

// ImportRow is a spreadsheet row reshaped onto the fixed import columns.
// AmountLarger is the higher-denomination (EGP) amount, AmountSmaller the AED one.
type ImportRow struct {
	Reference     string `json:"reference"`
	CreatedAt     string `json:"created_at"`
	MobileNumber  string `json:"mobile_number"`
	AmountSmaller string `json:"amount_smaller"`
	AmountLarger  string `json:"amount_larger"`
	Rate          string `json:"rate"`
	Status        string `json:"status"`
}

// ImportReport records one stored workbook import.
type ImportReport struct {
	ID         string      `json:"id"`
	FileName   string      `json:"file_name"`
	FileHash   string      `json:"file_hash"`
	RowCount   int         `json:"row_count"`
	Dropped    int         `json:"dropped"`
	Roles      ColumnRoles `json:"roles"`
	ImportedAt time.Time   `json:"imported_at"`
}
