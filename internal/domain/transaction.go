package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

var tradeTypes = map[TradeType]struct{}{
	TradeBuy:  {},
	TradeSell: {},
}

// Valid reports whether t is BUY or SELL.
func (t TradeType) Valid() bool {
	_, ok := tradeTypes[t]
	return ok
}

type OrderStatus string

const (
	OrderAccepted          OrderStatus = "ACCEPTED"
	OrderCancelled         OrderStatus = "CANCELLED"
	OrderCancelling        OrderStatus = "CANCELLING"
	OrderClosing           OrderStatus = "CLOSING"
	OrderDuplicateCancel   OrderStatus = "DUPLICATE_CANCEL"
	OrderEnded             OrderStatus = "ENDED"
	OrderFilled            OrderStatus = "FILLED"
	OrderNoOrder           OrderStatus = "NO_ORDER"
	OrderOpen              OrderStatus = "OPEN"
	OrderRejected          OrderStatus = "REJECTED"
	OrderUnknown           OrderStatus = "UNKNOWN"
	OrderCompleted         OrderStatus = "COMPLETED"
	OrderPending           OrderStatus = "PENDING"
	OrderTrading           OrderStatus = "TRADING"
	OrderBuyerPayed        OrderStatus = "BUYER_PAYED"
	OrderAppeal            OrderStatus = "APPEAL"
	OrderInAppeal          OrderStatus = "IN_APPEAL"
	OrderCancelledBySystem OrderStatus = "CANCELLED_BY_SYSTEM"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderAccepted: {}, OrderCancelled: {}, OrderCancelling: {}, OrderClosing: {},
	OrderDuplicateCancel: {}, OrderEnded: {}, OrderFilled: {}, OrderNoOrder: {},
	OrderOpen: {}, OrderRejected: {}, OrderUnknown: {}, OrderCompleted: {},
	OrderPending: {}, OrderTrading: {}, OrderBuyerPayed: {}, OrderAppeal: {},
	OrderInAppeal: {}, OrderCancelledBySystem: {},
}

// Valid reports whether s belongs to the known status set.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}

// Credentials authenticate signed exchange requests. They are never persisted.
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// ExchangeTransaction is a normalized P2P order from the exchange history.
type ExchangeTransaction struct {
	ID           string          `json:"id"`
	Type         TradeType       `json:"type"`
	Status       OrderStatus     `json:"status"`
	Asset        string          `json:"asset"`
	Fiat         string          `json:"fiat"`
	Amount       decimal.Decimal `json:"amount"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Commission   decimal.Decimal `json:"commission"`
	CounterParty string          `json:"counter_party"`
	PayMethod    string          `json:"pay_method"`
	CreatedAt    time.Time       `json:"created_at"`
	// EffectiveRate is TotalPrice / Amount; Difference is EffectiveRate - UnitPrice.
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	Difference    decimal.Decimal `json:"difference"`
	SyncedAt      *time.Time      `json:"synced_at,omitempty"`
}
