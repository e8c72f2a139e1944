package reconciliation

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/exchange"
	"github.com/voucherdesk/reconciler/internal/repository"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchHistory(ctx context.Context) ([]domain.ExchangeTransaction, error) {
	args := m.Called(ctx)
	txs, _ := args.Get(0).([]domain.ExchangeTransaction)
	return txs, args.Error(1)
}

func tx(id string, typ domain.TradeType, status domain.OrderStatus, amount, total string) domain.ExchangeTransaction {
	a := decimal.RequireFromString(amount)
	p := decimal.RequireFromString(total)
	t := domain.ExchangeTransaction{
		ID: id, Type: typ, Status: status, Asset: "USDT", Fiat: "EGP",
		Amount: a, TotalPrice: p, Commission: decimal.RequireFromString("0.1"),
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if !a.IsZero() {
		t.EffectiveRate = p.Div(a)
	}
	return t
}

func history() []domain.ExchangeTransaction {
	return []domain.ExchangeTransaction{
		tx("1", domain.TradeBuy, domain.OrderFilled, "10", "500"),
		tx("2", domain.TradeBuy, domain.OrderCompleted, "30", "1560"),
		tx("3", domain.TradeSell, domain.OrderCompleted, "5", "260"),
		tx("4", domain.TradeBuy, domain.OrderCancelled, "100", "4800"),
	}
}

func TestFilterTransactions(t *testing.T) {
	txs := history()

	assert.Len(t, FilterTransactions(txs, Filter{}), 4)
	assert.Len(t, FilterTransactions(txs, Filter{Type: "ALL"}), 4)

	sells := FilterTransactions(txs, Filter{Type: "sell"})
	require.Len(t, sells, 1)
	assert.Equal(t, "3", sells[0].ID)

	// rates: 50, 52, 52, 48
	mid := FilterTransactions(txs, Filter{MinRate: 49, MaxRate: 51})
	require.Len(t, mid, 1)
	assert.Equal(t, "1", mid[0].ID)

	high := FilterTransactions(txs, Filter{Type: "BUY", MinRate: 51})
	require.Len(t, high, 1)
	assert.Equal(t, "2", high[0].ID)
}

func TestSummarize(t *testing.T) {
	s := Summarize(history())

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 2, s.BuyOrders)
	assert.Equal(t, 1, s.SellOrders)
	assert.True(t, decimal.NewFromInt(40).Equal(s.BoughtAsset))
	assert.True(t, decimal.NewFromInt(2060).Equal(s.SpentFiat))
	assert.True(t, decimal.RequireFromString("51.5").Equal(s.AverageBuyRate), s.AverageBuyRate.String())
	assert.True(t, decimal.NewFromInt(52).Equal(s.AverageSellRate))
	assert.True(t, decimal.RequireFromString("0.3").Equal(s.Commission))

	empty := Summarize(nil)
	assert.True(t, empty.AverageBuyRate.IsZero())
	assert.True(t, empty.AverageSellRate.IsZero())
}

func newTestService(t *testing.T, fetcher HistoryFetcher) (*Service, *repository.OrderRepo, *test.Hook) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	repo := repository.NewOrderRepo(db)
	svc := NewService(fetcher, repo, logger)
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC) }
	return svc, repo, hook
}

func TestSyncHistoryStoresOrders(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("FetchHistory", mock.Anything).Return(history(), nil).Twice()

	svc, repo, hook := newTestService(t, fetcher)

	res, err := svc.SyncHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 4, res.Stored)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "reconciliation", hook.LastEntry().Data["component"])

	_, err = svc.SyncHistory(context.Background())
	require.NoError(t, err)
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	summary, err := svc.Summary(Filter{Type: "BUY"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.True(t, decimal.NewFromInt(40).Equal(summary.BoughtAsset))

	fetcher.AssertExpectations(t)
}

func TestSyncHistoryKeepsOrdersWithoutOrderNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"tradeType":"BUY","orderStatus":"COMPLETED","amount":"10","totalPrice":"500"},
			{"tradeType":"BUY","orderStatus":"COMPLETED","amount":"20","totalPrice":"1000"},
			{"tradeType":"SELL","orderStatus":"COMPLETED","amount":"5","totalPrice":"260"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	client := exchange.NewClient(srv.URL,
		exchange.WithClock(func() time.Time { return time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC) }))
	require.NoError(t, client.Configure(domain.Credentials{APIKey: "key", APISecret: "secret"}))

	svc, repo, _ := newTestService(t, client)

	res, err := svc.SyncHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Stored)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, res.Stored, count)

	summary, err := svc.Summary(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.BuyOrders)
	assert.Equal(t, 1, summary.SellOrders)
	assert.True(t, decimal.NewFromInt(30).Equal(summary.BoughtAsset), summary.BoughtAsset.String())
	assert.True(t, decimal.NewFromInt(1500).Equal(summary.SpentFiat), summary.SpentFiat.String())
}

func TestSyncHistoryKeepsErrorKind(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("FetchHistory", mock.Anything).
		Return(nil, domain.NewConfigurationError("fetch history", "exchange credentials are not configured"))

	svc, _, hook := newTestService(t, fetcher)

	_, err := svc.SyncHistory(context.Background())
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCompare(t *testing.T) {
	svc, _, _ := newTestService(t, &mockFetcher{})
	summary := Summarize(history())

	cov, err := svc.Compare(domain.SettlementResult{RequiredUSDT: 50}, summary)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cov.BoughtUSDT)
	assert.Equal(t, 10.0, cov.ShortfallUSDT)
	assert.Equal(t, 51.5, cov.AverageBuyRate)
	assert.False(t, cov.Covered)

	cov, err = svc.Compare(domain.SettlementResult{RequiredUSDT: 20}, summary)
	require.NoError(t, err)
	assert.Zero(t, cov.ShortfallUSDT)
	assert.True(t, cov.Covered)

	_, err = svc.Compare(domain.SettlementResult{RequiredUSDT: math.Inf(1)}, summary)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
