package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/voucherdesk/reconciler/internal/domain"
)

const (
	defaultFiat  = "EGP"
	defaultAsset = "USDT"
)

// rawOrder mirrors one entry of the history payload. Numeric fields arrive
// either as JSON numbers or as strings, so they are kept raw until parsed.
type rawOrder struct {
	OrderNumber         json.RawMessage `json:"orderNumber"`
	TradeType           string          `json:"tradeType"`
	OrderStatus         string          `json:"orderStatus"`
	Asset               string          `json:"asset"`
	Fiat                string          `json:"fiat"`
	Amount              json.RawMessage `json:"amount"`
	TotalPrice          json.RawMessage `json:"totalPrice"`
	UnitPrice           json.RawMessage `json:"unitPrice"`
	Commission          json.RawMessage `json:"commission"`
	CounterPartNickName string          `json:"counterPartNickName"`
	PayMethodName       string          `json:"payMethodName"`
	CreateTime          json.RawMessage `json:"createTime"`
}

// normalizeOrder converts a raw record into a domain transaction. Any field
// that fails validation rejects the whole record. index is the record's
// position in the payload and keeps fallback IDs distinct within a fetch.
func normalizeOrder(raw rawOrder, index int, now time.Time) (domain.ExchangeTransaction, error) {
	var tx domain.ExchangeTransaction

	tx.Type = domain.TradeType(strings.ToUpper(strings.TrimSpace(raw.TradeType)))
	if !tx.Type.Valid() {
		return tx, errors.Errorf("invalid trade type %q", raw.TradeType)
	}
	tx.Status = domain.OrderStatus(strings.ToUpper(strings.TrimSpace(raw.OrderStatus)))
	if !tx.Status.Valid() {
		return tx, errors.Errorf("invalid order status %q", raw.OrderStatus)
	}

	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *decimal.Decimal
	}{
		{"amount", raw.Amount, &tx.Amount},
		{"totalPrice", raw.TotalPrice, &tx.TotalPrice},
		{"unitPrice", raw.UnitPrice, &tx.UnitPrice},
		{"commission", raw.Commission, &tx.Commission},
	}
	for _, f := range fields {
		d, err := parseDecimal(f.raw)
		if err != nil {
			return tx, errors.Wrapf(err, "field %s", f.name)
		}
		*f.dst = d
	}

	created, err := parseCreateTime(raw.CreateTime, now)
	if err != nil {
		return tx, errors.Wrap(err, "field createTime")
	}
	tx.CreatedAt = created

	tx.ID = rawString(raw.OrderNumber)
	if tx.ID == "" {
		tx.ID = fmt.Sprintf("%d-%d", now.UnixMilli(), index)
	}
	tx.Asset = orDefault(raw.Asset, defaultAsset)
	tx.Fiat = orDefault(raw.Fiat, defaultFiat)
	tx.CounterParty = raw.CounterPartNickName
	tx.PayMethod = raw.PayMethodName

	if !tx.Amount.IsZero() {
		tx.EffectiveRate = tx.TotalPrice.Div(tx.Amount)
		tx.Difference = tx.EffectiveRate.Sub(tx.UnitPrice)
	}
	return tx, nil
}

// parseDecimal accepts a JSON number or a numeric string. Missing, null and
// empty values are zero.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s := rawString(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Errorf("not a number: %q", s)
	}
	return d, nil
}

// parseCreateTime accepts epoch milliseconds as a number or string, or an
// RFC 3339 timestamp. A missing value yields now.
func parseCreateTime(raw json.RawMessage, now time.Time) (time.Time, error) {
	s := rawString(raw)
	if s == "" {
		return now, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
	}
	return t.UTC(), nil
}

// rawString returns the text of a JSON string or the literal of a JSON number.
func rawString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return trimmed
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
