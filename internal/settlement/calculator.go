// Package settlement computes the EGP -> USDT -> AED settlement of an amount batch.
package settlement

import (
	"github.com/voucherdesk/reconciler/internal/currency"
	"github.com/voucherdesk/reconciler/internal/domain"
)

// Calculate derives the settlement figures for amounts at the given rates.
//
// It never fails: a missing or zero rate yields ±Inf or NaN in the affected
// field and every field computed from it. An empty batch yields a zero result.
func Calculate(amounts []float64, rates domain.RateSet) domain.SettlementResult {
	if len(amounts) == 0 {
		return domain.SettlementResult{}
	}

	var totalEGP float64
	for _, a := range amounts {
		totalEGP += a
	}

	requiredUSDT := currency.EGPToUSDT(totalEGP, rates)
	repurchaseCost := currency.USDTToAED(requiredUSDT, rates)
	totalAED := currency.EGPToAED(totalEGP, rates)
	merchantFee := currency.FeeInAED(requiredUSDT, rates)
	netProfit := totalAED - repurchaseCost - merchantFee

	return domain.SettlementResult{
		Count:                   len(amounts),
		TotalEGP:                totalEGP,
		TotalAEDRequired:        totalAED,
		RequiredUSDT:            requiredUSDT,
		RepurchaseCostAED:       repurchaseCost,
		MerchantFeeAED:          merchantFee,
		NetProfitAED:            netProfit,
		ProfitPercentage:        (merchantFee + netProfit) / repurchaseCost * 100,
		CompanyProfitPercentage: netProfit / repurchaseCost * 100,
	}
}

// CalculateText parses amount text and calculates its settlement.
func CalculateText(text string, rates domain.RateSet) domain.SettlementResult {
	return Calculate(ParseAmounts(text), rates)
}
