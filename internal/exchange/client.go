package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/voucherdesk/reconciler/internal/domain"
)

const (
	historyPath    = "/sapi/v1/c2c/orderMatch/listUserOrderHistory"
	apiKeyHeader   = "X-MBX-APIKEY"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
)


// Client fetches signed P2P order history from the exchange.
type Client struct {
	baseURL  string
	http     *http.Client
	now      func() time.Time
	observer Observer
	maxBody  int64

	mu    sync.RWMutex
	creds domain.Credentials
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		now:      time.Now,
		observer: nopObserver{},
		maxBody:  maxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure replaces the credentials used to sign requests.
func (c *Client) Configure(creds domain.Credentials) error {
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	creds.APISecret = strings.TrimSpace(creds.APISecret)
	if creds.APIKey == "" || creds.APISecret == "" {
		return domain.NewConfigurationError("configure exchange", "API key and secret are both required")
	}
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.APIKey != "" && c.creds.APISecret != ""
}

// FetchHistory requests the most recent page of order history and returns
// the records that pass normalization, in payload order.
func (c *Client) FetchHistory(ctx context.Context) ([]domain.ExchangeTransaction, error) {
	const op = "fetch history"

	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, domain.NewConfigurationError(op, "exchange credentials are not configured")
	}

	now := c.now()
	query := historyQuery(now)
	endpoint := c.baseURL + historyPath + "?" + query + "&signature=" + sign(query, creds.APISecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewTransportError(op, "could not build request", 0, redactURL(err))
	}
	req.Header.Set(apiKeyHeader, creds.APIKey)
	req.Header.Set("Accept", "application/json")

	c.observer.Observe(Event{Name: EventRequestSent, Fields: map[string]any{
		"path":    historyPath,
		"api_key": maskKey(creds.APIKey),
	}})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(transportError(op, redactURL(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, c.fail(transportError(op, redactURL(err)))
	}
	if int64(len(body)) > c.maxBody {
		return nil, c.fail(domain.NewTransportError(op, "response body exceeds size limit", resp.StatusCode, nil))
	}
	c.observer.Observe(Event{Name: EventResponse, Fields: map[string]any{
		"status": resp.StatusCode,
		"bytes":  len(body),
	}})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(domain.NewTransportError(op, statusMessage(resp.StatusCode, body), resp.StatusCode, nil))
	}

	records, err := c.decodeRecords(body)
	if err != nil {
		return nil, c.fail(domain.NewStructuralError(op, "unexpected history payload", err))
	}

	txs := make([]domain.ExchangeTransaction, 0, len(records))
	for _, rec := range records {
		tx, err := normalizeOrder(rec.order, rec.index, now)
		if err != nil {
			c.observer.Observe(Event{Name: EventRecordDropped, Fields: map[string]any{
				"index":  rec.index,
				"reason": err.Error(),
			}})
			continue
		}
		txs = append(txs, tx)
	}

	c.observer.Observe(Event{Name: EventHistoryFetched, Fields: map[string]any{
		"received": len(records),
		"accepted": len(txs),
	}})
	return txs, nil
}

// payloadRecord is a decoded record with its position in the payload array.
type payloadRecord struct {
	index int
	order rawOrder
}

// decodeRecords unwraps an optional {"data": [...]} envelope and requires
// the payload to be an array.
func (c *Client) decodeRecords(body []byte) ([]payloadRecord, error) {
	payload := json.RawMessage(body)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		data, ok := envelope["data"]
		if !ok {
			return nil, errors.New("payload is an object without a data field")
		}
		payload = data
		c.observer.Observe(Event{Name: EventPayloadWrapped})
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, errors.Wrap(err, "payload is not an array")
	}
	if items == nil {
		return nil, errors.New("payload is not an array")
	}

	records := make([]payloadRecord, 0, len(items))
	for i, item := range items {
		var raw rawOrder
		if err := json.Unmarshal(item, &raw); err != nil {
			c.observer.Observe(Event{Name: EventRecordDropped, Fields: map[string]any{
				"index":  i,
				"reason": "record is not an object",
			}})
			continue
		}
		records = append(records, payloadRecord{index: i, order: raw})
	}
	return records, nil
}

func (c *Client) fail(err error) error {
	fields := map[string]any{"error": err.Error()}
	if de, ok := domain.AsError(err); ok {
		fields["kind"] = string(de.Kind)
		if de.Status != 0 {
			fields["status"] = de.Status
		}
	}
	c.observer.Observe(Event{Name: EventFetchFailed, Fields: fields})
	return err
}

// redactURL strips the signed query string from a *url.Error so the
// signature never reaches logs or callers.
func redactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	redacted := *uerr
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		u.Fragment = ""
		redacted.URL = u.String()
	} else {
		redacted.URL = historyPath
	}
	return &redacted
}

func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewTransportError(op, "connection timed out", 0, err)
	}
	return domain.NewTransportError(op, "exchange unreachable", 0, err)
}

func statusMessage(status int, body []byte) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "unauthorized"
	case http.StatusNotFound:
		return "endpoint not found"
	}
	var apiErr struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Msg != "" {
			return apiErr.Msg
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return http.StatusText(status)
}
