package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	recvWindowMillis = 60000
	historyPage      = 1
	historyRows      = 100
	historyTradeType = "BUY,SELL"
)

// historyQuery builds the canonical query string in the fixed parameter
// order the signature is computed over.
func historyQuery(ts time.Time) string {
	return fmt.Sprintf("timestamp=%d&recvWindow=%d&page=%d&rows=%d&tradeType=%s",
		ts.UnixMilli(), recvWindowMillis, historyPage, historyRows, historyTradeType)
}

// sign returns the hex HMAC-SHA256 of query keyed with secret.
func sign(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
