package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voucherdesk/reconciler/internal/domain"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// BulkUpsert stores synced orders, replacing earlier copies of the same order
// so status changes are picked up. It returns the number of distinct orders
// written; a repeated ID in one batch counts once.
func (r *OrderRepo) BulkUpsert(orders []domain.ExchangeTransaction, syncedAt time.Time) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO exchange_orders
		(id, trade_type, order_status, asset, fiat, amount, total_price, unit_price,
		 commission, counter_party, pay_method, created_at, effective_rate, difference, synced_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		o := &orders[i]
		res, err := stmt.Exec(
			o.ID, string(o.Type), string(o.Status), o.Asset, o.Fiat,
			o.Amount.String(), o.TotalPrice.String(), o.UnitPrice.String(), o.Commission.String(),
			o.CounterParty, o.PayMethod, o.CreatedAt.UTC().Format(time.RFC3339),
			o.EffectiveRate.String(), o.Difference.String(), syncedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert order %d: %w", i, err)
		}
		if ra, _ := res.RowsAffected(); ra > 0 {
			seen[o.ID] = struct{}{}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(seen), nil
}

func (r *OrderRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM exchange_orders").Scan(&count)
	return count, err
}

type OrderFilter struct {
	Type   string
	Status string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

func (r *OrderRepo) List(f OrderFilter) ([]domain.ExchangeTransaction, int, error) {
	where, args := buildOrderWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM exchange_orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT * FROM exchange_orders" + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var orders []domain.ExchangeTransaction
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

// --- helpers ---

func buildOrderWhere(f OrderFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Type != "" {
		clauses = append(clauses, "trade_type = ?")
		args = append(args, strings.ToUpper(f.Type))
	}
	if f.Status != "" {
		clauses = append(clauses, "order_status = ?")
		args = append(args, strings.ToUpper(f.Status))
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanOrder(rows *sql.Rows) (*domain.ExchangeTransaction, error) {
	var o domain.ExchangeTransaction
	var tradeType, status, createdAt, syncedAt string
	var amount, totalPrice, unitPrice, commission, effRate, diff string

	err := rows.Scan(
		&o.ID, &tradeType, &status, &o.Asset, &o.Fiat,
		&amount, &totalPrice, &unitPrice, &commission,
		&o.CounterParty, &o.PayMethod, &createdAt, &effRate, &diff, &syncedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Type = domain.TradeType(tradeType)
	o.Status = domain.OrderStatus(status)
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
		o.SyncedAt = &t
	}

	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{amount, &o.Amount},
		{totalPrice, &o.TotalPrice},
		{unitPrice, &o.UnitPrice},
		{commission, &o.Commission},
		{effRate, &o.EffectiveRate},
		{diff, &o.Difference},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("decimal %q: %w", f.src, err)
		}
		*f.dst = d
	}

	return &o, nil
}

// All returns every stored order, newest first.
func (r *OrderRepo) All() ([]domain.ExchangeTransaction, error) {
	rows, err := r.db.Query("SELECT * FROM exchange_orders ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var orders []domain.ExchangeTransaction
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
