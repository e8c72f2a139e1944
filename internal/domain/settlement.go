package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// RateSet holds the four user-supplied conversion inputs of a settlement.
// Zero means "not supplied".
type RateSet struct {
	USDTToEGP             float64 `json:"usdt_to_egp"`
	AEDToEGP              float64 `json:"aed_to_egp"`
	USDTToAED             float64 `json:"usdt_to_aed"`
	MerchantFeePerUSDTEGP float64 `json:"merchant_fee_per_usdt_egp"`
}

// Validate reports every rate that is missing, zero or non-finite. The merchant
// fee may be zero.
func (r RateSet) Validate() error {
	var missing []string
	check := func(name string, v float64, allowZero bool) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (!allowZero && v == 0) {
			missing = append(missing, name)
		}
	}
	check("usdt_to_egp", r.USDTToEGP, false)
	check("aed_to_egp", r.AEDToEGP, false)
	check("usdt_to_aed", r.USDTToAED, false)
	check("merchant_fee_per_usdt_egp", r.MerchantFeePerUSDTEGP, true)

	if len(missing) == 0 {
		return nil
	}
	return NewValidationError("validate rates",
		fmt.Sprintf("missing or invalid rates: %s", strings.Join(missing, ", ")), nil)
}

// SettlementResult is the outcome of one settlement calculation. Fields may
// hold NaN or ±Inf when a rate was missing.
type SettlementResult struct {
	Count                   int     `json:"count"`
	TotalEGP                float64 `json:"total_egp"`
	TotalAEDRequired        float64 `json:"total_aed_required"`
	RequiredUSDT            float64 `json:"required_usdt"`
	RepurchaseCostAED       float64 `json:"repurchase_cost_aed"`
	MerchantFeeAED          float64 `json:"merchant_fee_aed"`
	NetProfitAED            float64 `json:"net_profit_aed"`
	ProfitPercentage        float64 `json:"profit_percentage"`
	CompanyProfitPercentage float64 `json:"company_profit_percentage"`
}

// Finite reports whether every figure of the result is a finite number.
func (r SettlementResult) Finite() bool {
	for _, v := range []float64{
		r.TotalEGP, r.TotalAEDRequired, r.RequiredUSDT, r.RepurchaseCostAED,
		r.MerchantFeeAED, r.NetProfitAED, r.ProfitPercentage, r.CompanyProfitPercentage,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes non-finite figures as null; encoding/json rejects them.
func (r SettlementResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count                   int      `json:"count"`
		TotalEGP                *float64 `json:"total_egp"`
		TotalAEDRequired        *float64 `json:"total_aed_required"`
		RequiredUSDT            *float64 `json:"required_usdt"`
		RepurchaseCostAED       *float64 `json:"repurchase_cost_aed"`
		MerchantFeeAED          *float64 `json:"merchant_fee_aed"`
		NetProfitAED            *float64 `json:"net_profit_aed"`
		ProfitPercentage        *float64 `json:"profit_percentage"`
		CompanyProfitPercentage *float64 `json:"company_profit_percentage"`
	}{
		Count:                   r.Count,
		TotalEGP:                finiteOrNil(r.TotalEGP),
		TotalAEDRequired:        finiteOrNil(r.TotalAEDRequired),
		RequiredUSDT:            finiteOrNil(r.RequiredUSDT),
		RepurchaseCostAED:       finiteOrNil(r.RepurchaseCostAED),
		MerchantFeeAED:          finiteOrNil(r.MerchantFeeAED),
		NetProfitAED:            finiteOrNil(r.NetProfitAED),
		ProfitPercentage:        finiteOrNil(r.ProfitPercentage),
		CompanyProfitPercentage: finiteOrNil(r.CompanyProfitPercentage),
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
