package pricing

import (
	"github.com/fjod/go_pos/internal/domain"
	"github.com/shopspring/decimal"
)

// MethodShare is one row of the cash-cut breakdown.
type MethodShare struct {
	Method     domain.PaymentMethod `json:"method"`
	Total      float64              `json:"total"`
	Count      int                  `json:"count"`
	Percentage float64              `json:"percentage"`
}

// PaymentMethodBreakdown groups finalized sales by payment method. Rows come
// back in domain.PaymentMethods order and only for methods that occur.
// Percentages are unrounded; rounding is left to display.
func PaymentMethodBreakdown(sales []domain.Sale) ([]MethodShare, error) {
	totals := make([]domain.PaymentMethodTotal, 0, len(sales))
	for _, s := range sales {
		totals = append(totals, domain.PaymentMethodTotal{Method: s.PaymentMethod, Total: s.Total, Count: 1})
	}
	return ShareOfTotals(totals)
}

// ShareOfTotals merges per-method totals (as reported by the daily-cut
// endpoint) and adds each method's share of the grand total.
func ShareOfTotals(totals []domain.PaymentMethodTotal) ([]MethodShare, error) {
	byMethod := make(map[domain.PaymentMethod]*MethodShare, len(domain.PaymentMethods))
	var grand float64
	for _, t := range totals {
		m, err := domain.ParsePaymentMethod(t.Method)
		if err != nil {
			return nil, err
		}
		row, ok := byMethod[m]
		if !ok {
			row = &MethodShare{Method: m}
			byMethod[m] = row
		}
		row.Total += t.Total
		row.Count += t.Count
		grand += t.Total
	}

	shares := make([]MethodShare, 0, len(byMethod))
	for _, m := range domain.PaymentMethods {
		row, ok := byMethod[m]
		if !ok {
			continue
		}
		if grand != 0 {
			row.Percentage = row.Total / grand * 100
		}
		shares = append(shares, *row)
	}
	return shares, nil
}

// ExpectedCash is the efectivo total the drawer should hold.
func ExpectedCash(totals []domain.PaymentMethodTotal) float64 {
	var cash float64
	for _, t := range totals {
		if t.Method == string(domain.PaymentCash) {
			cash += t.Total
		}
	}
	return cash
}

type CashStatus string

const (
	CashExact    CashStatus = "exact"
	CashSurplus  CashStatus = "surplus"
	CashShortage CashStatus = "shortage"
)

type CashReconciliation struct {
	Expected   float64    `json:"expected"`
	Counted    float64    `json:"counted"`
	Difference float64    `json:"difference"`
	Status     CashStatus `json:"status"`
}

// ReconcileCash compares physically counted cash with the expected amount.
func ReconcileCash(expected, counted float64) CashReconciliation {
	diff := decimal.NewFromFloat(counted).Sub(decimal.NewFromFloat(expected))
	status := CashExact
	switch diff.Sign() {
	case 1:
		status = CashSurplus
	case -1:
		status = CashShortage
	}
	return CashReconciliation{
		Expected:   expected,
		Counted:    counted,
		Difference: diff.InexactFloat64(),
		Status:     status,
	}
}
