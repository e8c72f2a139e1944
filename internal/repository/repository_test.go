package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voucherdesk/reconciler/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImportRepoRoundTrip(t *testing.T) {
	repo := NewImportRepo(newTestDB(t))

	rpt := &domain.ImportReport{
		ID:       "IMP-1",
		FileName: "vouchers.xlsx",
		FileHash: "abc123",
		RowCount: 2,
		Dropped:  1,
		Roles: domain.ColumnRoles{
			domain.RoleAmountLarger: "Voucher Amount",
			domain.RoleReference:    "Reference",
		},
		ImportedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	rows := []domain.ImportRow{
		{Reference: "R-1", AmountLarger: "1000", AmountSmaller: "73.5", Rate: "13.6"},
		{Reference: "R-2", AmountLarger: "2,000", MobileNumber: "0100"},
	}
	require.NoError(t, repo.InsertReport(rpt, rows))

	exists, err := repo.ReportExistsByHash("abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ReportExistsByHash("other")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.GetByHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, "IMP-1", got.ID)
	assert.Equal(t, "Voucher Amount", got.Roles[domain.RoleAmountLarger])
	assert.True(t, rpt.ImportedAt.Equal(got.ImportedAt))

	stored, err := repo.GetRows("IMP-1")
	require.NoError(t, err)
	assert.Equal(t, rows, stored)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// Same checksum again violates the unique index.
	dup := *rpt
	dup.ID = "IMP-2"
	assert.Error(t, repo.InsertReport(&dup, nil))
}

func TestImportRepoList(t *testing.T) {
	repo := NewImportRepo(newTestDB(t))
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, repo.InsertReport(&domain.ImportReport{
			ID: id, FileName: id + ".xlsx", FileHash: "h" + id,
			Roles: domain.ColumnRoles{}, ImportedAt: base.Add(time.Duration(i) * time.Hour),
		}, nil))
	}

	reports, total, err := repo.List(ImportFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, reports, 2)
	assert.Equal(t, "C", reports[0].ID)
	assert.Equal(t, "B", reports[1].ID)

	reports, _, err = repo.List(ImportFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "A", reports[0].ID)
}

func order(id string, typ domain.TradeType, status domain.OrderStatus, created time.Time) domain.ExchangeTransaction {
	return domain.ExchangeTransaction{
		ID: id, Type: typ, Status: status, Asset: "USDT", Fiat: "EGP",
		Amount:        decimal.RequireFromString("10.5"),
		TotalPrice:    decimal.RequireFromString("525"),
		UnitPrice:     decimal.RequireFromString("49.9"),
		Commission:    decimal.RequireFromString("0.01"),
		EffectiveRate: decimal.RequireFromString("50"),
		Difference:    decimal.RequireFromString("0.1"),
		CounterParty:  "trader", PayMethod: "InstaPay",
		CreatedAt: created,
	}
}

func TestOrderRepoUpsertAndList(t *testing.T) {
	repo := NewOrderRepo(newTestDB(t))
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	synced := day.Add(48 * time.Hour)

	orders := []domain.ExchangeTransaction{
		order("1", domain.TradeBuy, domain.OrderFilled, day),
		order("2", domain.TradeSell, domain.OrderCompleted, day.Add(time.Hour)),
		order("3", domain.TradeBuy, domain.OrderCancelled, day.Add(24*time.Hour)),
	}
	n, err := repo.BulkUpsert(orders, synced)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-syncing replaces rather than duplicates.
	orders[0].Status = domain.OrderCompleted
	_, err = repo.BulkUpsert(orders[:1], synced)
	require.NoError(t, err)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	buys, total, err := repo.List(OrderFilter{Type: "buy"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, buys, 2)
	assert.Equal(t, "3", buys[0].ID)
	assert.Equal(t, domain.OrderCompleted, buys[1].Status)
	assert.True(t, buys[1].Amount.Equal(decimal.RequireFromString("10.5")))
	require.NotNil(t, buys[1].SyncedAt)
	assert.True(t, synced.Equal(*buys[1].SyncedAt))

	to := day.Add(2 * time.Hour)
	early, total, err := repo.List(OrderFilter{To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, early, 2)

	filled, total, err := repo.List(OrderFilter{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "3", filled[0].ID)

	all, err := repo.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestOrderRepoUpsertCountsDistinctOrders(t *testing.T) {
	repo := NewOrderRepo(newTestDB(t))
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := order("7", domain.TradeBuy, domain.OrderPending, day)
	again := order("7", domain.TradeBuy, domain.OrderCompleted, day)
	other := order("8", domain.TradeSell, domain.OrderCompleted, day)

	n, err := repo.BulkUpsert([]domain.ExchangeTransaction{first, again, other}, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, n, count)

	all, err := repo.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, o := range all {
		if o.ID == "7" {
			assert.Equal(t, domain.OrderCompleted, o.Status)
		}
	}
}
