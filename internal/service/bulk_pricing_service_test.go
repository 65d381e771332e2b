package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"vinobridge/internal/model"
	"vinobridge/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type pricingFixture struct {
	svc      BulkPricingService
	pricing  *fakePricingRepo
	activity *fakeActivityRepo
	admin    Actor
	partner  Actor
}

func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()
	f := &pricingFixture{
		pricing:  newFakePricingRepo(),
		activity: &fakeActivityRepo{},
		admin:    Actor{ID: uuid.New(), Role: model.RoleAdmin},
		partner:  Actor{ID: uuid.New(), Role: model.RolePartner},
	}
	f.svc = NewBulkPricingService(f.pricing, f.activity, fakeTxManager{})
	return f
}

// workbook builds an in-memory xlsx with the given rows on the first sheet.
func workbook(t *testing.T, rows [][]interface{}) io.Reader {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func (f *pricingFixture) uploadedSession(t *testing.T) *model.PricingSession {
	t.Helper()
	file := workbook(t, [][]interface{}{
		{"Wine", "Price", "Curr", "Pack"},
		{"Opus One 2018", "£2,400.00", "USD", "6x75cl"},
		{"Sassicaia 2016", "1800", "", ""},
		{"Bad Row", "n/a", "", ""},
	})
	session, err := f.svc.CreateSession(context.Background(), f.admin, CreateSessionRequest{
		Name: "Q3 catalogue", FileName: "q3.xlsx",
	}, file)
	require.NoError(t, err)
	return session
}

func (f *pricingFixture) mappedSession(t *testing.T) *model.PricingSession {
	t.Helper()
	session := f.uploadedSession(t)
	_, err := f.svc.UpdateMapping(context.Background(), f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{
			MapProductName: 0,
			MapUnitPrice:   1,
			MapCurrency:    2,
			MapCaseConfig:  3,
		},
	})
	require.NoError(t, err)

	gbpToUSD := 1.25
	usdToAED := 3.5
	marginType := model.MarginPercentage
	margin := 20.0
	duty := 50.0
	vat := 5.0
	_, err = f.svc.UpdateVariables(context.Background(), f.admin, session.ID.String(), UpdateVariablesRequest{
		GBPToUSD:      &gbpToUSD,
		USDToAED:      &usdToAED,
		MarginType:    &marginType,
		MarginValue:   &margin,
		ImportDutyPct: &duty,
		VATPct:        &vat,
	})
	require.NoError(t, err)
	return f.pricing.sessions[session.ID]
}

func TestCreateSessionReadsWorkbook(t *testing.T) {
	f := newPricingFixture(t)
	session := f.uploadedSession(t)

	assert.Equal(t, model.SessionUploaded, session.Status)
	assert.Equal(t, 6, session.DefaultCaseConfig)
	assert.Equal(t, "GBP", session.DefaultCurrency)
	assert.Contains(t, session.RawRows, "Opus One 2018")
}

func TestCreateSessionStopsAtEmptyRow(t *testing.T) {
	f := newPricingFixture(t)
	file := workbook(t, [][]interface{}{
		{"Wine", "Price"},
		{"Opus One", "2400"},
		{"", ""},
		{"Below The Gap", "999"},
	})
	session, err := f.svc.CreateSession(context.Background(), f.admin, CreateSessionRequest{Name: "gap"}, file)
	require.NoError(t, err)

	assert.Contains(t, session.RawRows, "Opus One")
	assert.NotContains(t, session.RawRows, "Below The Gap")
}

func TestCreateSessionRejectsGarbage(t *testing.T) {
	f := newPricingFixture(t)
	_, err := f.svc.CreateSession(context.Background(), f.admin, CreateSessionRequest{Name: "x"}, bytes.NewReader([]byte("not an xlsx")))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateSessionPartnerForbidden(t *testing.T) {
	f := newPricingFixture(t)
	_, err := f.svc.CreateSession(context.Background(), f.partner, CreateSessionRequest{Name: "x"}, bytes.NewReader(nil))
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestUpdateMappingValidation(t *testing.T) {
	f := newPricingFixture(t)
	session := f.uploadedSession(t)
	ctx := context.Background()

	_, err := f.svc.UpdateMapping(ctx, f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation, "unit_price is required")

	_, err = f.svc.UpdateMapping(ctx, f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0, MapUnitPrice: 40},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation, "column out of range")

	_, err = f.svc.UpdateMapping(ctx, f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0, MapUnitPrice: 1, "colour": 2},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation, "unknown field")

	updated, err := f.svc.UpdateMapping(ctx, f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0, MapUnitPrice: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionMapped, updated.Status)
}

func TestUpdateVariablesVersions(t *testing.T) {
	f := newPricingFixture(t)
	session := f.uploadedSession(t)
	ctx := context.Background()

	margin := 10.0
	first, err := f.svc.UpdateVariables(ctx, f.admin, session.ID.String(), UpdateVariablesRequest{MarginValue: &margin})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Variables.Version)

	margin = 12.0
	second, err := f.svc.UpdateVariables(ctx, f.admin, session.ID.String(), UpdateVariablesRequest{MarginValue: &margin})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Variables.Version)
	assert.InDelta(t, 12.0, second.Variables.MarginValue, 0.001)

	tooHigh := 100.0
	_, err = f.svc.UpdateVariables(ctx, f.admin, session.ID.String(), UpdateVariablesRequest{MarginValue: &tooHigh})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRunCalculation(t *testing.T) {
	f := newPricingFixture(t)
	session := f.mappedSession(t)

	items, err := f.svc.RunCalculation(context.Background(), f.admin, session.ID.String())
	require.NoError(t, err)

	// "Bad Row" has an unparseable price and is skipped.
	require.Len(t, items, 2)
	assert.Equal(t, model.SessionCalculated, f.pricing.sessions[session.ID].Status)

	// Row 1: £2,400 marked USD, 6x75cl pack. 2400 stays USD, margin 20%
	// back-calculated: 2400 / 0.8 = 3000.
	opus := items[0]
	assert.Equal(t, "Opus One", opus.ProductName)
	require.NotNil(t, opus.Vintage)
	assert.Equal(t, "2018", *opus.Vintage)
	assert.Equal(t, 6, opus.CaseConfig)
	assert.Equal(t, "USD", opus.Currency)
	assert.InDelta(t, 3000.0, opus.CaseUSD, 0.001)
	assert.InDelta(t, 500.0, opus.BottleUSD, 0.001)
	assert.InDelta(t, 10500.0, opus.CaseAED, 0.001)
	// Delivered: 3000 * 1.5 duty * 1.05 VAT.
	assert.InDelta(t, 4725.0, opus.DeliveredCaseUSD, 0.001)

	// Row 2: no currency or pack cells, session defaults apply (GBP, 6).
	sass := items[1]
	assert.Equal(t, "Sassicaia", sass.ProductName)
	require.NotNil(t, sass.Vintage)
	assert.Equal(t, "2016", *sass.Vintage)
	assert.Equal(t, "GBP", sass.Currency)
	assert.Equal(t, 6, sass.CaseConfig)
	// 1800 * 1.25 = 2250 USD, / 0.8 = 2812.5.
	assert.InDelta(t, 2812.5, sass.CaseUSD, 0.001)
}

func TestRunCalculationRequiresMappingAndVariables(t *testing.T) {
	f := newPricingFixture(t)
	session := f.uploadedSession(t)
	ctx := context.Background()

	_, err := f.svc.RunCalculation(ctx, f.admin, session.ID.String())
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.UpdateMapping(ctx, f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0, MapUnitPrice: 1},
	})
	require.NoError(t, err)

	_, err = f.svc.RunCalculation(ctx, f.admin, session.ID.String())
	assert.ErrorIs(t, err, apperror.ErrValidation, "variables still missing")
}

func TestRunCalculationAllRowsInvalid(t *testing.T) {
	f := newPricingFixture(t)
	file := workbook(t, [][]interface{}{
		{"Wine", "Price"},
		{"No Price", "tbc"},
	})
	session, err := f.svc.CreateSession(context.Background(), f.admin, CreateSessionRequest{Name: "bad"}, file)
	require.NoError(t, err)

	_, err = f.svc.UpdateMapping(context.Background(), f.admin, session.ID.String(), UpdateMappingRequest{
		Mapping: map[string]int{MapProductName: 0, MapUnitPrice: 1},
	})
	require.NoError(t, err)
	margin := 10.0
	_, err = f.svc.UpdateVariables(context.Background(), f.admin, session.ID.String(), UpdateVariablesRequest{MarginValue: &margin})
	require.NoError(t, err)

	_, err = f.svc.RunCalculation(context.Background(), f.admin, session.ID.String())
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestVariablesChangeResetsCalculatedSession(t *testing.T) {
	f := newPricingFixture(t)
	session := f.mappedSession(t)

	_, err := f.svc.RunCalculation(context.Background(), f.admin, session.ID.String())
	require.NoError(t, err)
	require.Equal(t, model.SessionCalculated, f.pricing.sessions[session.ID].Status)

	freight := 3.0
	updated, err := f.svc.UpdateVariables(context.Background(), f.admin, session.ID.String(), UpdateVariablesRequest{FreightPerBottle: &freight})
	require.NoError(t, err)
	assert.Equal(t, model.SessionMapped, updated.Status)
}

func TestUpdateItemCaseConfig(t *testing.T) {
	f := newPricingFixture(t)
	session := f.mappedSession(t)

	items, err := f.svc.RunCalculation(context.Background(), f.admin, session.ID.String())
	require.NoError(t, err)
	stored, err := f.svc.ListItems(context.Background(), session.ID.String())
	require.NoError(t, err)
	require.Len(t, stored, len(items))

	target := stored[0]
	updated, err := f.svc.UpdateItemCaseConfig(context.Background(), f.admin, target.ID.String(), UpdateItemCaseConfigRequest{CaseConfig: 12})
	require.NoError(t, err)

	assert.Equal(t, 12, updated.CaseConfig)
	// Case price is freight-free here so it is unchanged; the bottle price
	// re-divides by the new pack size.
	assert.InDelta(t, target.CaseUSD, updated.CaseUSD, 0.001)
	assert.InDelta(t, target.CaseUSD/12, updated.BottleUSD, 0.001)

	// Other rows are untouched.
	after, err := f.svc.ListItems(context.Background(), session.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, stored[1].BottleUSD, after[1].BottleUSD, 0.001)
}
