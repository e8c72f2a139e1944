package reconciliation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/repository"
)

// HistoryFetcher is the part of the exchange client the service needs.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context) ([]domain.ExchangeTransaction, error)
}

// SyncResult summarises one history sync.
type SyncResult struct {
	Fetched  int       `json:"fetched"`
	Stored   int       `json:"stored"`
	SyncedAt time.Time `json:"synced_at"`
}

// Coverage compares the USDT a settlement needs against USDT bought on the
// exchange.
type Coverage struct {
	RequiredUSDT   float64 `json:"required_usdt"`
	BoughtUSDT     float64 `json:"bought_usdt"`
	ShortfallUSDT  float64 `json:"shortfall_usdt"`
	AverageBuyRate float64 `json:"average_buy_rate"`
	Covered        bool    `json:"covered"`
}

// Service keeps the local order store in step with the exchange and
// compares settlements against it.
type Service struct {
	client    HistoryFetcher
	orderRepo *repository.OrderRepo
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(client HistoryFetcher, orderRepo *repository.OrderRepo, log logrus.FieldLogger) *Service {
	return &Service{
		client:    client,
		orderRepo: orderRepo,
		log:       log.WithField("component", "reconciliation"),
		now:       time.Now,
	}
}

// SyncHistory fetches the latest order history and upserts it locally.
// Client errors are returned unwrapped so their kind survives.
func (s *Service) SyncHistory(ctx context.Context) (*SyncResult, error) {
	txs, err := s.client.FetchHistory(ctx)
	if err != nil {
		s.log.WithError(err).Warn("history sync failed")
		return nil, err
	}

	syncedAt := s.now().UTC()
	stored, err := s.orderRepo.BulkUpsert(txs, syncedAt)
	if err != nil {
		return nil, fmt.Errorf("store orders: %w", err)
	}

	s.log.WithFields(logrus.Fields{"fetched": len(txs), "stored": stored}).Info("history synced")
	return &SyncResult{Fetched: len(txs), Stored: stored, SyncedAt: syncedAt}, nil
}

// Summary loads stored orders, applies f and summarises the result.
func (s *Service) Summary(f Filter) (Summary, error) {
	txs, err := s.orderRepo.All()
	if err != nil {
		return Summary{}, fmt.Errorf("load orders: %w", err)
	}
	return Summarize(FilterTransactions(txs, f)), nil
}

// Compare reports how much of a settlement's required USDT is covered by
// completed buys.
func (s *Service) Compare(result domain.SettlementResult, summary Summary) (Coverage, error) {
	if math.IsNaN(result.RequiredUSDT) || math.IsInf(result.RequiredUSDT, 0) {
		return Coverage{}, domain.NewValidationError("compare coverage",
			"required USDT is undefined; check the USDT to EGP rate", nil)
	}
	bought := summary.BoughtAsset.InexactFloat64()
	c := Coverage{
		RequiredUSDT:   result.RequiredUSDT,
		BoughtUSDT:     bought,
		ShortfallUSDT:  math.Max(0, result.RequiredUSDT-bought),
		AverageBuyRate: summary.AverageBuyRate.InexactFloat64(),
	}
	c.Covered = c.ShortfallUSDT == 0
	return c, nil
}
