package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sample rates used for the generated data.
const (
	aedToEGP  = 13.6
	usdtToEGP = 50.2
)

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	// Date range: 2024-01-08 to 2024-01-21.
	startDate := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	dayRange := int(endDate.Sub(startDate).Hours() / 24)

	generateVoucherWorkbook(rng, startDate, dayRange, baseDir)
	generateExchangeHistory(rng, startDate, dayRange, baseDir)
}

// generateVoucherWorkbook writes a merchant voucher sheet with Arabic
// headers, a subtotal row per day block and a closing total.
func generateVoucherWorkbook(rng *rand.Rand, start time.Time, dayRange int, baseDir string) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []any{"مرجع", "تاريخ", "رقم الموبايل", "المبلغ بالدرهم", "المبلغ بالجنيه", "سعر الدرهم مصري", "حالة"}
	mustSetRow(f, sheet, 1, headers)

	statuses := []string{"مدفوع", "مدفوع", "مدفوع", "معلق"}
	row := 2
	var blockEGP, blockAED, totalEGP, totalAED float64
	count := 0
	for i := 1; i <= 60; i++ {
		created := start.AddDate(0, 0, rng.Intn(dayRange)).Add(time.Duration(rng.Intn(24*60)) * time.Minute)
		egp := math.Round((100+rng.Float64()*4900)*100) / 100
		aed := math.Round(egp/aedToEGP*100) / 100

		mustSetRow(f, sheet, row, []any{
			fmt.Sprintf("VCH-%04d", i),
			created.Format("2006-01-02 15:04"),
			fmt.Sprintf("010%08d", rng.Intn(100000000)),
			aed,
			egp,
			aedToEGP,
			statuses[rng.Intn(len(statuses))],
		})
		row++
		count++
		blockEGP += egp
		blockAED += aed

		if i%20 == 0 {
			mustSetRow(f, sheet, row, []any{"المجموع", "", "", round2(blockAED), round2(blockEGP)})
			row++
			totalEGP += blockEGP
			totalAED += blockAED
			blockEGP, blockAED = 0, 0
		}
	}
	mustSetRow(f, sheet, row, []any{"الإجمالي", "", "", round2(totalAED), round2(totalEGP)})

	path := filepath.Join(baseDir, "vouchers.xlsx")
	if err := f.SaveAs(path); err != nil {
		panic(err)
	}
	fmt.Printf("Generated %d voucher rows (%.2f EGP) -> vouchers.xlsx\n", count, totalEGP)
}

// generateExchangeHistory writes a recorded order history payload in the
// exchange's wrapped response shape, including a few malformed records.
func generateExchangeHistory(rng *rand.Rand, start time.Time, dayRange int, baseDir string) {
	statuses := []string{"COMPLETED", "COMPLETED", "COMPLETED", "CANCELLED", "PENDING"}
	payMethods := []string{"InstaPay", "Vodafone Cash", "Bank Transfer"}

	var orders []map[string]any
	for i := 1; i <= 40; i++ {
		tradeType := "BUY"
		if rng.Float64() < 0.3 {
			tradeType = "SELL"
		}
		amount := math.Round((20+rng.Float64()*980)*100) / 100
		unit := math.Round((usdtToEGP+rng.Float64()*1.2-0.6)*100) / 100
		created := start.AddDate(0, 0, rng.Intn(dayRange)).Add(time.Duration(rng.Intn(24*60)) * time.Minute)

		orders = append(orders, map[string]any{
			"orderNumber":         fmt.Sprintf("2024%014d", rng.Int63n(1e14)),
			"tradeType":           tradeType,
			"orderStatus":         statuses[rng.Intn(len(statuses))],
			"asset":               "USDT",
			"fiat":                "EGP",
			"amount":              fmt.Sprintf("%.2f", amount),
			"unitPrice":           fmt.Sprintf("%.2f", unit),
			"totalPrice":          fmt.Sprintf("%.2f", round2(amount*unit)),
			"commission":          fmt.Sprintf("%.4f", amount*0.001),
			"counterPartNickName": fmt.Sprintf("trader_%02d", rng.Intn(25)),
			"payMethodName":       payMethods[rng.Intn(len(payMethods))],
			"createTime":          created.UnixMilli(),
		})
	}

	// Records the client must drop.
	orders = append(orders,
		map[string]any{"orderNumber": "BAD-TYPE", "tradeType": "SWAP", "orderStatus": "COMPLETED", "amount": "1"},
		map[string]any{"orderNumber": "BAD-AMOUNT", "tradeType": "BUY", "orderStatus": "COMPLETED", "amount": "n/a"},
	)

	writeJSONFile(filepath.Join(baseDir, "exchange_history.json"), map[string]any{
		"code":    "000000",
		"message": "success",
		"data":    orders,
		"total":   len(orders),
		"success": true,
	})
	fmt.Printf("Generated %d exchange orders -> exchange_history.json\n", len(orders))
}

func mustSetRow(f *excelize.File, sheet string, row int, cells []any) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		panic(err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		panic(err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "../testdata", "../../testdata"} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
