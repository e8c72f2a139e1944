package reconciliation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/voucherdesk/reconciler/internal/domain"
)

// Filter narrows exchange history. Type is BUY, SELL or ALL/empty; zero
// rate bounds are ignored.
type Filter struct {
	Type    string  `json:"type"`
	MinRate float64 `json:"min_rate"`
	MaxRate float64 `json:"max_rate"`
}

// FilterTransactions returns the transactions matching f, in input order.
// The rate compared is total price over amount.
func FilterTransactions(txs []domain.ExchangeTransaction, f Filter) []domain.ExchangeTransaction {
	typ := domain.TradeType(strings.ToUpper(strings.TrimSpace(f.Type)))
	out := make([]domain.ExchangeTransaction, 0, len(txs))
	for _, tx := range txs {
		if typ != "" && typ != "ALL" && tx.Type != typ {
			continue
		}
		rate := tx.EffectiveRate.InexactFloat64()
		if f.MinRate != 0 && rate < f.MinRate {
			continue
		}
		if f.MaxRate != 0 && rate > f.MaxRate {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Summary aggregates completed exchange orders per side.
type Summary struct {
	Count      int `json:"count"`
	Completed  int `json:"completed"`
	BuyOrders  int `json:"buy_orders"`
	SellOrders int `json:"sell_orders"`

	BoughtAsset decimal.Decimal `json:"bought_asset"`
	SpentFiat   decimal.Decimal `json:"spent_fiat"`
	SoldAsset   decimal.Decimal `json:"sold_asset"`
	EarnedFiat  decimal.Decimal `json:"earned_fiat"`
	Commission  decimal.Decimal `json:"commission"`

	// Weighted by amount; zero when the side is empty.
	AverageBuyRate  decimal.Decimal `json:"average_buy_rate"`
	AverageSellRate decimal.Decimal `json:"average_sell_rate"`
}

var completedStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderFilled:    {},
	domain.OrderCompleted: {},
}

// Summarize totals the completed orders in txs. Orders in any other status
// are counted but contribute nothing to the totals.
func Summarize(txs []domain.ExchangeTransaction) Summary {
	s := Summary{Count: len(txs)}
	for _, tx := range txs {
		if _, ok := completedStatuses[tx.Status]; !ok {
			continue
		}
		s.Completed++
		s.Commission = s.Commission.Add(tx.Commission)
		switch tx.Type {
		case domain.TradeBuy:
			s.BuyOrders++
			s.BoughtAsset = s.BoughtAsset.Add(tx.Amount)
			s.SpentFiat = s.SpentFiat.Add(tx.TotalPrice)
		case domain.TradeSell:
			s.SellOrders++
			s.SoldAsset = s.SoldAsset.Add(tx.Amount)
			s.EarnedFiat = s.EarnedFiat.Add(tx.TotalPrice)
		}
	}
	if !s.BoughtAsset.IsZero() {
		s.AverageBuyRate = s.SpentFiat.Div(s.BoughtAsset)
	}
	if !s.SoldAsset.IsZero() {
		s.AverageSellRate = s.EarnedFiat.Div(s.SoldAsset)
	}
	return s
}
