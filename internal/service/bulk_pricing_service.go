package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"vinobridge/internal/model"
	"vinobridge/internal/pricing"
	"vinobridge/internal/repository"
	"vinobridge/pkg/apperror"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Mapping field keys accepted by UpdateMapping.
const (
	MapProductName = "product_name"
	MapUnitPrice   = "unit_price"
	MapCurrency    = "currency"
	MapCaseConfig  = "case_config"
	MapVintage     = "vintage"
)

type CreateSessionRequest struct {
	Name              string
	FileName          string
	DefaultCaseConfig int
	DefaultCurrency   string
}

type UpdateMappingRequest struct {
	// Semantic field -> zero-based column index.
	Mapping map[string]int `json:"mapping" binding:"required"`
}

type UpdateVariablesRequest struct {
	InputCurrency         *string  `json:"input_currency"`
	GBPToUSD              *float64 `json:"gbp_to_usd"`
	EURToUSD              *float64 `json:"eur_to_usd"`
	USDToAED              *float64 `json:"usd_to_aed"`
	MarginType            *string  `json:"margin_type" binding:"omitempty,oneof=percentage absolute"`
	MarginValue           *float64 `json:"margin_value"`
	FreightPerBottle      *float64 `json:"freight_per_bottle"`
	SalesAdvisorMarginPct *float64 `json:"sales_advisor_margin_pct"`
	ImportDutyPct         *float64 `json:"import_duty_pct"`
	LocalCosts            *float64 `json:"local_costs"`
	VATPct                *float64 `json:"vat_pct"`
}

type UpdateItemCaseConfigRequest struct {
	CaseConfig int `json:"case_config" binding:"required,gt=0"`
}

type BulkPricingService interface {
	CreateSession(ctx context.Context, actor Actor, req CreateSessionRequest, file io.Reader) (*model.PricingSession, error)
	GetSession(ctx context.Context, sessionID string) (*model.PricingSession, error)
	ListSessions(ctx context.Context, page, limit int) ([]model.PricingSession, int64, error)
	UpdateMapping(ctx context.Context, actor Actor, sessionID string, req UpdateMappingRequest) (*model.PricingSession, error)
	UpdateVariables(ctx context.Context, actor Actor, sessionID string, req UpdateVariablesRequest) (*model.PricingSession, error)
	RunCalculation(ctx context.Context, actor Actor, sessionID string) ([]model.PricingLineItem, error)
	ListItems(ctx context.Context, sessionID string) ([]model.PricingLineItem, error)
	UpdateItemCaseConfig(ctx context.Context, actor Actor, itemID string, req UpdateItemCaseConfigRequest) (*model.PricingLineItem, error)
}

type bulkPricingService struct {
	pricingRepo  repository.PricingRepository
	activityRepo repository.ActivityRepository
	txManager    repository.TransactionManager
}

func NewBulkPricingService(
	pricingRepo repository.PricingRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
) BulkPricingService {
	return &bulkPricingService{
		pricingRepo:  pricingRepo,
		activityRepo: activityRepo,
		txManager:    txManager,
	}
}

func (s *bulkPricingService) loadSession(ctx context.Context, sessionID string) (*model.PricingSession, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperror.NotFound("pricing session", sessionID)
	}
	session, err := s.pricingRepo.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("pricing session", sessionID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return session, nil
}

// CreateSession reads the uploaded workbook's first sheet into raw rows.
// Parsing stops at the first fully empty row; trailing blank cells within a
// row are kept so column indexes stay stable.
func (s *bulkPricingService) CreateSession(ctx context.Context, actor Actor, req CreateSessionRequest, file io.Reader) (*model.PricingSession, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins run bulk pricing")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperror.Validation("failed to read upload: " + err.Error())
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Validation("not a readable xlsx workbook")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperror.Validation("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, apperror.Validation("failed to read sheet: " + err.Error())
	}

	var kept [][]string
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			break
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil, apperror.Validation("sheet contains no data rows")
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize rows: %w", err)
	}

	session := &model.PricingSession{
		Name:              req.Name,
		Status:            model.SessionUploaded,
		FileName:          req.FileName,
		RawRows:           string(raw),
		DefaultCaseConfig: 6,
		DefaultCurrency:   "GBP",
	}
	if req.DefaultCaseConfig > 0 {
		session.DefaultCaseConfig = req.DefaultCaseConfig
	}
	if req.DefaultCurrency != "" {
		session.DefaultCurrency = strings.ToUpper(req.DefaultCurrency)
	}
	actorID := actor.ID
	session.CreatedBy = &actorID

	if err := s.pricingRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *bulkPricingService) GetSession(ctx context.Context, sessionID string) (*model.PricingSession, error) {
	return s.loadSession(ctx, sessionID)
}

func (s *bulkPricingService) ListSessions(ctx context.Context, page, limit int) ([]model.PricingSession, int64, error) {
	return s.pricingRepo.ListSessions(ctx, page, limit)
}

// UpdateMapping validates that mapped columns exist in the uploaded sheet
// and that the two required fields are present, then resets the session to
// MAPPED so stale calculated items are never served as current.
func (s *bulkPricingService) UpdateMapping(ctx context.Context, actor Actor, sessionID string, req UpdateMappingRequest) (*model.PricingSession, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins run bulk pricing")
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, ok := req.Mapping[MapProductName]; !ok {
		return nil, apperror.Validation("mapping must include product_name")
	}
	if _, ok := req.Mapping[MapUnitPrice]; !ok {
		return nil, apperror.Validation("mapping must include unit_price")
	}

	rows, err := s.rawRows(session)
	if err != nil {
		return nil, err
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for field, col := range req.Mapping {
		switch field {
		case MapProductName, MapUnitPrice, MapCurrency, MapCaseConfig, MapVintage:
		default:
			return nil, apperror.Validation("unknown mapping field " + field)
		}
		if col < 0 || col >= width {
			return nil, apperror.Validation(fmt.Sprintf("column %d for %s is out of range", col, field))
		}
	}

	mapping, err := json.Marshal(req.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize mapping: %w", err)
	}
	session.ColumnMapping = string(mapping)
	session.Status = model.SessionMapped

	if err := s.pricingRepo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// UpdateVariables inserts a new immutable version of the session's rate
// configuration and drops the session back to MAPPED.
func (s *bulkPricingService) UpdateVariables(ctx context.Context, actor Actor, sessionID string, req UpdateVariablesRequest) (*model.PricingSession, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins run bulk pricing")
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	base := pricing.DefaultBulkVariables()
	if session.Variables != nil {
		base = pricing.FromModel(*session.Variables)
	}
	if req.InputCurrency != nil {
		base.InputCurrency = strings.ToUpper(*req.InputCurrency)
	}
	if req.GBPToUSD != nil {
		base.GBPToUSD = *req.GBPToUSD
	}
	if req.EURToUSD != nil {
		base.EURToUSD = *req.EURToUSD
	}
	if req.USDToAED != nil {
		base.USDToAED = *req.USDToAED
	}
	if req.MarginType != nil {
		base.MarginType = *req.MarginType
	}
	if req.MarginValue != nil {
		base.MarginValue = *req.MarginValue
	}
	if req.FreightPerBottle != nil {
		base.FreightPerBottle = *req.FreightPerBottle
	}
	if req.SalesAdvisorMarginPct != nil {
		base.SalesAdvisorMarginPct = *req.SalesAdvisorMarginPct
	}
	if req.ImportDutyPct != nil {
		base.ImportDutyPct = *req.ImportDutyPct
	}
	if req.LocalCosts != nil {
		base.LocalCosts = *req.LocalCosts
	}
	if req.VATPct != nil {
		base.VATPct = *req.VATPct
	}
	if base.MarginType == model.MarginPercentage && base.MarginValue >= 100 {
		return nil, apperror.Validation("percentage margin must be below 100")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		name := "session-" + session.ID.String()
		version, err := s.pricingRepo.LatestVersion(txCtx, name)
		if err != nil {
			return fmt.Errorf("failed to read variables version: %w", err)
		}
		vars := &model.CalculationVariables{
			Name:                  name,
			Version:               version + 1,
			InputCurrency:         base.InputCurrency,
			GBPToUSD:              base.GBPToUSD,
			EURToUSD:              base.EURToUSD,
			USDToAED:              base.USDToAED,
			MarginType:            base.MarginType,
			MarginValue:           base.MarginValue,
			FreightPerBottle:      base.FreightPerBottle,
			SalesAdvisorMarginPct: base.SalesAdvisorMarginPct,
			ImportDutyPct:         base.ImportDutyPct,
			LocalCosts:            base.LocalCosts,
			VATPct:                base.VATPct,
		}
		if err := s.pricingRepo.CreateVariables(txCtx, vars); err != nil {
			return fmt.Errorf("failed to create variables: %w", err)
		}

		session.VariablesID = &vars.ID
		session.Variables = vars
		if session.Status == model.SessionCalculated {
			session.Status = model.SessionMapped
		}
		return s.pricingRepo.SaveSession(txCtx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RunCalculation regenerates the full line-item set from the raw rows,
// mapping and current variables. Rows whose price cell does not parse are
// skipped; a calculation that yields zero valid rows is rejected.
func (s *bulkPricingService) RunCalculation(ctx context.Context, actor Actor, sessionID string) ([]model.PricingLineItem, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins run bulk pricing")
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ColumnMapping == "" {
		return nil, apperror.Validation("session has no column mapping")
	}
	if session.VariablesID == nil || session.Variables == nil {
		return nil, apperror.Validation("session has no calculation variables")
	}

	var mapping map[string]int
	if err := json.Unmarshal([]byte(session.ColumnMapping), &mapping); err != nil {
		return nil, fmt.Errorf("corrupt column mapping: %w", err)
	}
	rows, err := s.rawRows(session)
	if err != nil {
		return nil, err
	}
	vars := pricing.FromModel(*session.Variables)

	cell := func(row []string, field string) (string, bool) {
		col, ok := mapping[field]
		if !ok || col >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[col]), true
	}

	var items []model.PricingLineItem
	// Row 0 is the header.
	for idx, row := range rows {
		if idx == 0 {
			continue
		}

		name, _ := cell(row, MapProductName)
		if name == "" {
			continue
		}
		priceRaw, _ := cell(row, MapUnitPrice)
		unitPrice, ok := pricing.ParsePrice(priceRaw)
		if !ok || unitPrice <= 0 {
			continue
		}

		currency := session.DefaultCurrency
		if c, ok := cell(row, MapCurrency); ok && c != "" {
			currency = strings.ToUpper(c)
		}

		caseConfig := session.DefaultCaseConfig
		if c, ok := cell(row, MapCaseConfig); ok && c != "" {
			caseConfig = pricing.ParseCaseConfig(c, session.DefaultCaseConfig)
		}

		var vintage *string
		if v, ok := cell(row, MapVintage); ok && v != "" {
			vintage = &v
		} else if extracted, cleaned := pricing.ExtractVintage(name); extracted != nil {
			vintage = extracted
			name = cleaned
		}

		result := pricing.CalculateBulkRow(pricing.BulkRow{
			UnitPrice:  unitPrice,
			Currency:   currency,
			CaseConfig: caseConfig,
		}, vars)

		items = append(items, model.PricingLineItem{
			SessionID:          session.ID,
			RowIndex:           idx,
			ProductName:        name,
			Vintage:            vintage,
			CaseConfig:         caseConfig,
			Currency:           currency,
			UnitPrice:          unitPrice,
			CaseUSD:            result.CaseUSD,
			BottleUSD:          result.BottleUSD,
			CaseAED:            result.CaseAED,
			BottleAED:          result.BottleAED,
			DeliveredCaseUSD:   result.DeliveredCaseUSD,
			DeliveredBottleUSD: result.DeliveredBottleUSD,
			DeliveredCaseAED:   result.DeliveredCaseAED,
			DeliveredBottleAED: result.DeliveredBottleAED,
		})
	}
	if len(items) == 0 {
		return nil, apperror.Validation("no rows produced a valid price")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pricingRepo.ReplaceLineItems(txCtx, session.ID, items); err != nil {
			return fmt.Errorf("failed to replace line items: %w", err)
		}
		session.Status = model.SessionCalculated
		if err := s.pricingRepo.SaveSession(txCtx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"rows_in":   len(rows) - 1,
			"items_out": len(items),
			"variables": session.Variables.Version,
		})
		actorID := actor.ID
		sessionRef := session.ID
		return s.activityRepo.Log(txCtx, &model.ActivityLog{
			SessionID: &sessionRef,
			ActorID:   &actorID,
			Action:    model.ActionBulkCalculationRun,
			Note:      fmt.Sprintf("Calculated %d of %d rows", len(items), len(rows)-1),
			Details:   string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *bulkPricingService) ListItems(ctx context.Context, sessionID string) ([]model.PricingLineItem, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.pricingRepo.ListLineItems(ctx, session.ID)
}

// UpdateItemCaseConfig recomputes a single row's price ladder in place; the
// rest of the session is untouched.
func (s *bulkPricingService) UpdateItemCaseConfig(ctx context.Context, actor Actor, itemID string, req UpdateItemCaseConfigRequest) (*model.PricingLineItem, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins run bulk pricing")
	}
	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, apperror.NotFound("pricing line item", itemID)
	}
	item, err := s.pricingRepo.FindLineItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("pricing line item", itemID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	session, err := s.pricingRepo.FindSession(ctx, item.SessionID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if session.Variables == nil {
		return nil, apperror.Validation("session has no calculation variables")
	}

	vars := pricing.FromModel(*session.Variables)
	result := pricing.CalculateBulkRow(pricing.BulkRow{
		UnitPrice:  item.UnitPrice,
		Currency:   item.Currency,
		CaseConfig: req.CaseConfig,
	}, vars)

	item.CaseConfig = req.CaseConfig
	item.CaseUSD = result.CaseUSD
	item.BottleUSD = result.BottleUSD
	item.CaseAED = result.CaseAED
	item.BottleAED = result.BottleAED
	item.DeliveredCaseUSD = result.DeliveredCaseUSD
	item.DeliveredBottleUSD = result.DeliveredBottleUSD
	item.DeliveredCaseAED = result.DeliveredCaseAED
	item.DeliveredBottleAED = result.DeliveredBottleAED

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pricingRepo.SaveLineItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
		actorID := actor.ID
		sessionRef := session.ID
		details, _ := json.Marshal(map[string]interface{}{"item_id": item.ID, "case_config": req.CaseConfig})
		return s.activityRepo.Log(txCtx, &model.ActivityLog{
			SessionID: &sessionRef,
			ActorID:   &actorID,
			Action:    model.ActionCaseConfigUpdated,
			Note:      "Case configuration changed for " + item.ProductName,
			Details:   string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *bulkPricingService) rawRows(session *model.PricingSession) ([][]string, error) {
	var rows [][]string
	if err := json.Unmarshal([]byte(session.RawRows), &rows); err != nil {
		return nil, fmt.Errorf("corrupt raw rows: %w", err)
	}
	return rows, nil
}
