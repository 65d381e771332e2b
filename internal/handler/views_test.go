package handler

import (
	"testing"

	"vinobridge/internal/model"
	"vinobridge/internal/pricing"

	"github.com/stretchr/testify/assert"
)

func TestPriceItemViewRoundsForDisplay(t *testing.T) {
	item := model.PricingLineItem{
		ProductName:        "Sassicaia",
		CaseConfig:         6,
		Currency:           "GBP",
		UnitPrice:          1800,
		CaseUSD:            2812.5,
		BottleUSD:          468.75,
		CaseAED:            9843.75,
		BottleAED:          1640.625,
		DeliveredCaseUSD:   4725.1875,
		DeliveredBottleUSD: 787.53125,
		DeliveredCaseAED:   16538.15625,
		DeliveredBottleAED: 2756.359375,
	}

	view := newPriceItemView(item)

	assert.Equal(t, 2812.5, view.CaseUSD)
	assert.Equal(t, 468.75, view.BottleUSD)
	assert.Equal(t, 4725.19, view.DeliveredCaseUSD)
	assert.Equal(t, 787.53, view.DeliveredBottleUSD)

	assert.Equal(t, 9844.0, view.CaseAED)
	assert.Equal(t, 1641.0, view.BottleAED)
	assert.Equal(t, 16538.0, view.DeliveredCaseAED)
	assert.Equal(t, 2756.0, view.DeliveredBottleAED)
}

func TestQuoteViewRoundsForDisplay(t *testing.T) {
	view := newQuoteView(pricing.OrderQuote{
		ImportTax:          1000,
		LandedPrice:        6200,
		PriceAfterMargin:   7750.828125,
		VAT:                1162.624,
		CustomerQuotePrice: 8913.452125,
	})

	assert.Equal(t, 1000.0, view.ImportTax)
	assert.Equal(t, 6200.0, view.LandedPrice)
	assert.Equal(t, 7750.83, view.PriceAfterMargin)
	assert.Equal(t, 1162.62, view.VAT)
	assert.Equal(t, 8913.45, view.CustomerQuotePrice)
}
