package currency

import (
	"strconv"
	"strings"

	"github.com/voucherdesk/reconciler/internal/domain"
)

// Converters work on plain float64 so a missing rate (0) yields ±Inf or NaN
// instead of an error.

// EGPToUSDT converts an EGP amount to USDT at the given EGP-per-USDT rate.
func EGPToUSDT(egp float64, rates domain.RateSet) float64 {
	return egp / rates.USDTToEGP
}

// USDTToAED converts a USDT amount to AED at the given AED-per-USDT rate.
func USDTToAED(usdt float64, rates domain.RateSet) float64 {
	return usdt * rates.USDTToAED
}

// EGPToAED converts an EGP amount to AED at the given EGP-per-AED rate.
func EGPToAED(egp float64, rates domain.RateSet) float64 {
	return egp / rates.AEDToEGP
}

// FeeInAED is the merchant fee for usdt units, quoted in EGP per USDT and
// converted to AED.
func FeeInAED(usdt float64, rates domain.RateSet) float64 {
	return (usdt * rates.MerchantFeePerUSDTEGP) / rates.AEDToEGP
}

// ParseRate parses a user-entered rate such as "13.6" or "1,050.25".
// Blank input is a zero rate.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, domain.NewValidationError("parse rate", "rate is not a number: "+s, err)
	}
	return v, nil
}
