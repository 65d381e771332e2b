// Package pricing holds the pure monetary arithmetic shared by the order
// workflow and the bulk catalogue repricing tool. Nothing in here performs
// I/O; all values are float64 with no internal rounding. Rounding for
// display happens at the edge via the Round helpers.
package pricing

import (
	"vinobridge/internal/model"

	"github.com/shopspring/decimal"
)

// Variables is the in-memory rate/markup configuration a calculation runs
// with. It mirrors model.CalculationVariables field for field.
type Variables struct {
	InputCurrency string
	GBPToUSD      float64
	EURToUSD      float64
	USDToAED      float64

	MarginType  string
	MarginValue float64

	FreightPerBottle      float64
	SalesAdvisorMarginPct float64
	ImportDutyPct         float64
	LocalCosts            float64
	VATPct                float64
}

// DefaultBulkVariables returns the catalogue-repricing defaults. The bulk
// pipeline carries a 50% duty default while the per-order pipeline uses
// 20%; the two sets are intentionally separate.
func DefaultBulkVariables() Variables {
	return Variables{
		InputCurrency: "GBP",
		GBPToUSD:      1.27,
		EURToUSD:      1.08,
		USDToAED:      3.67,
		MarginType:    model.MarginPercentage,
		MarginValue:   5,
		ImportDutyPct: 50,
		VATPct:        5,
	}
}

// DefaultOrderVariables returns the per-order calculator defaults.
func DefaultOrderVariables() Variables {
	v := DefaultBulkVariables()
	v.ImportDutyPct = 20
	return v
}

// FromModel converts a persisted configuration row.
func FromModel(m model.CalculationVariables) Variables {
	return Variables{
		InputCurrency:         m.InputCurrency,
		GBPToUSD:              m.GBPToUSD,
		EURToUSD:              m.EURToUSD,
		USDToAED:              m.USDToAED,
		MarginType:            m.MarginType,
		MarginValue:           m.MarginValue,
		FreightPerBottle:      m.FreightPerBottle,
		SalesAdvisorMarginPct: m.SalesAdvisorMarginPct,
		ImportDutyPct:         m.ImportDutyPct,
		LocalCosts:            m.LocalCosts,
		VATPct:                m.VATPct,
	}
}

// toUSD converts a source price in the given currency to USD.
func (v Variables) toUSD(price float64, currency string) float64 {
	switch currency {
	case "GBP":
		return price * v.GBPToUSD
	case "EUR":
		return price * v.EURToUSD
	default: // USD, or anything unrecognised is treated as already-USD
		return price
	}
}

// applyMargin layers the operating company's margin onto a price. In
// percentage mode the margin is back-calculated, price / (1 - pct/100), so
// cost ends up as a percentage of the resulting price. A divisor of zero or
// below (margin >= 100%) means no margin is applied rather than producing
// Inf/NaN.
func (v Variables) applyMargin(price float64) float64 {
	if v.MarginType == model.MarginAbsolute {
		return price + v.MarginValue
	}
	divisor := 1 - v.MarginValue/100
	if divisor <= 0 {
		return price
	}
	return price / divisor
}

// BulkRow is one priced catalogue row: source price per case plus its
// currency and case configuration.
type BulkRow struct {
	UnitPrice  float64
	Currency   string
	CaseConfig int
}

// BulkRowResult carries both price ladders for a catalogue row.
type BulkRowResult struct {
	// B2B in-bond
	CaseUSD   float64
	BottleUSD float64
	CaseAED   float64
	BottleAED float64
	// D2C delivered
	DeliveredCaseUSD   float64
	DeliveredBottleUSD float64
	DeliveredCaseAED   float64
	DeliveredBottleAED float64
}

// CalculateBulkRow runs the catalogue repricing pipeline:
// currency conversion, company margin, freight per case, then for the
// delivered price sales-advisor margin, import duty, local costs and VAT,
// in that fixed order.
func CalculateBulkRow(row BulkRow, v Variables) BulkRowResult {
	caseConfig := row.CaseConfig
	if caseConfig <= 0 {
		caseConfig = 1
	}

	usd := v.toUSD(row.UnitPrice, row.Currency)
	caseUSD := v.applyMargin(usd) + v.FreightPerBottle*float64(caseConfig)

	delivered := caseUSD * (1 + v.SalesAdvisorMarginPct/100)
	delivered *= 1 + v.ImportDutyPct/100
	delivered += v.LocalCosts
	delivered *= 1 + v.VATPct/100

	return BulkRowResult{
		CaseUSD:            caseUSD,
		BottleUSD:          caseUSD / float64(caseConfig),
		CaseAED:            caseUSD * v.USDToAED,
		BottleAED:          caseUSD * v.USDToAED / float64(caseConfig),
		DeliveredCaseUSD:   delivered,
		DeliveredBottleUSD: delivered / float64(caseConfig),
		DeliveredCaseAED:   delivered * v.USDToAED,
		DeliveredBottleAED: delivered * v.USDToAED / float64(caseConfig),
	}
}

// OrderQuote is the per-order B2B calculator breakdown.
type OrderQuote struct {
	ImportTax          float64
	LandedPrice        float64
	PriceAfterMargin   float64
	VAT                float64
	CustomerQuotePrice float64
}

// CalculateOrderQuote runs the per-order B2B pipeline: import tax and margin
// both stem from the single in-bond base, VAT is charged on the
// margin-inclusive landed price. The step order differs from the bulk
// pipeline on purpose; keep the two separate.
func CalculateOrderQuote(inBond, transfer float64, v Variables) OrderQuote {
	importTax := inBond * v.ImportDutyPct / 100
	landed := inBond + transfer + importTax

	afterMargin := landed
	divisor := 1 - v.MarginValue/100
	if divisor > 0 {
		afterMargin = landed / divisor
	}

	vat := afterMargin * v.VATPct / 100

	return OrderQuote{
		ImportTax:          importTax,
		LandedPrice:        landed,
		PriceAfterMargin:   afterMargin,
		VAT:                vat,
		CustomerQuotePrice: afterMargin + vat,
	}
}

// LineFigures is the slice of an order line item the totals calculation
// needs.
type LineFigures struct {
	Quantity   int
	CaseConfig int
	UnitPrice  float64
}

// OrderTotals is the derived aggregate written back onto the order row.
type OrderTotals struct {
	ItemCount       int
	CaseCount       int
	Subtotal        float64
	DutyAmount      float64
	VATAmount       float64
	LogisticsAmount float64
	TotalAmount     float64
}

// CalculateOrderTotals recomputes the order aggregate from the current item
// set: duty on the subtotal, VAT on subtotal plus duty, logistics as freight
// per bottle across all bottles.
func CalculateOrderTotals(items []LineFigures, v Variables) OrderTotals {
	t := OrderTotals{ItemCount: len(items)}
	for _, it := range items {
		t.CaseCount += it.Quantity
		t.Subtotal += it.UnitPrice * float64(it.Quantity)
		t.LogisticsAmount += v.FreightPerBottle * float64(it.CaseConfig) * float64(it.Quantity)
	}
	t.DutyAmount = t.Subtotal * v.ImportDutyPct / 100
	t.VATAmount = (t.Subtotal + t.DutyAmount) * v.VATPct / 100
	t.TotalAmount = t.Subtotal + t.DutyAmount + t.VATAmount + t.LogisticsAmount
	return t
}

// Round2 rounds a stored float for display with two decimals.
func Round2(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

// RoundWhole rounds a stored float to the nearest integer for display.
func RoundWhole(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(0).Float64()
	return r
}
