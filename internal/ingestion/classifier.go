package ingestion

import (
	"sort"
	"strings"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/settlement"
)

// roleMatcher tests a lower-cased header for a single-column role.
type roleMatcher struct {
	role  domain.ColumnRole
	match func(header string) bool
}

// singleRoles are evaluated in order; the first matching header wins per role.
var singleRoles = []roleMatcher{
	{domain.RoleRate, isRateHeader},
	{domain.RoleReference, containsAny("reference", "ref", "مرجع")},
	// Substring match: "Updated" and "Validated" also read as dates.
	{domain.RoleDate, containsAny("date", "created", "تاريخ")},
	{domain.RoleMobile, containsAny("mobile", "phone", "موبايل", "هاتف")},
	{domain.RoleStatus, containsAny("status", "حالة")},
}

var isAmountHeader = containsAny("amount", "مبلغ")

func isRateHeader(h string) bool {
	switch {
	case strings.Contains(h, "aed") && strings.Contains(h, "egp"):
		return true
	case strings.Contains(h, "درهم") && (strings.Contains(h, "مصري") || strings.Contains(h, "جنيه")):
		return true
	default:
		return strings.Contains(h, "rate") && !strings.Contains(h, "usdt")
	}
}

func containsAny(tokens ...string) func(string) bool {
	return func(h string) bool {
		for _, tok := range tokens {
			if strings.Contains(h, tok) {
				return true
			}
		}
		return false
	}
}

// ClassifyColumns assigns semantic roles to the sheet headers. rows are only
// used to rank multiple amount columns by their mean value.
func ClassifyColumns(headers []string, rows []domain.RawRow) domain.ColumnRoles {
	roles := make(domain.ColumnRoles)

	for _, m := range singleRoles {
		for _, h := range headers {
			if m.match(strings.ToLower(h)) {
				roles[m.role] = h
				break
			}
		}
	}

	var amountCols []string
	for _, h := range headers {
		if isAmountHeader(strings.ToLower(h)) {
			amountCols = append(amountCols, h)
		}
	}

	switch len(amountCols) {
	case 0:
	case 1:
		roles[domain.RoleAmountLarger] = amountCols[0]
	default:
		ranked := rankByMean(amountCols, rows)
		roles[domain.RoleAmountLarger] = ranked[0]
		roles[domain.RoleAmountSmaller] = ranked[1]
	}

	return roles
}

// rankByMean orders columns by descending mean; ties keep header order.
func rankByMean(cols []string, rows []domain.RawRow) []string {
	type colMean struct {
		col  string
		mean float64
	}
	means := make([]colMean, len(cols))
	for i, c := range cols {
		means[i] = colMean{col: c, mean: columnMean(c, rows)}
	}
	sort.SliceStable(means, func(i, j int) bool { return means[i].mean > means[j].mean })

	ranked := make([]string, len(means))
	for i, m := range means {
		ranked[i] = m.col
	}
	return ranked
}

// columnMean averages a column over all rows, counting non-numeric cells as zero.
func columnMean(col string, rows []domain.RawRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		if v, ok := settlement.ParseAmount(r[col]); ok {
			sum += v
		}
	}
	return sum / float64(len(rows))
}
