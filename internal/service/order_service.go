package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vinobridge/internal/model"
	"vinobridge/internal/pricing"
	"vinobridge/internal/repository"
	"vinobridge/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderTypePrivateClient = "private_client_order"

// Actor identifies who is performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// --- DTOs ---

type CreateOrderRequest struct {
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name" binding:"required_without=ClientID"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
}

type AddLineItemRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	Producer    string  `json:"producer"`
	Vintage     string  `json:"vintage"`
	Region      string  `json:"region"`
	LWIN        string  `json:"lwin"`
	CaseConfig  int     `json:"case_config" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
}

type StockAssignment struct {
	ItemID string `json:"item_id" binding:"required"`
	Source string `json:"source" binding:"required,oneof=cc_inventory partner_airfreight partner_local_stock manual"`
}

type PriceOverride struct {
	ItemID    string  `json:"item_id" binding:"required"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

type ApproveOrderRequest struct {
	DistributorID    string            `json:"distributor_id" binding:"required"`
	StockAssignments []StockAssignment `json:"stock_assignments"`
	PriceOverrides   []PriceOverride   `json:"price_overrides"`
	Note             string            `json:"note"`
}

type VerificationResponseRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=verified not_verified"`
	Notes   string `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type ScheduleDeliveryRequest struct {
	ScheduledDate string `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
}

type MarkDeliveredRequest struct {
	SignatureProof string `json:"signature_proof"`
	PhotoProof     string `json:"photo_proof"`
}

type ConfirmStockReceiptRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required,min=1"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateOrderVariablesRequest struct {
	ImportDutyPct    *float64 `json:"import_duty_pct"`
	VATPct           *float64 `json:"vat_pct"`
	FreightPerBottle *float64 `json:"freight_per_bottle"`
}

type OrderQuoteRequest struct {
	InBondPrice  float64 `json:"in_bond_price" binding:"required,gt=0"`
	TransferCost float64 `json:"transfer_cost" binding:"gte=0"`
	ImportTaxPct float64 `json:"import_tax_pct"`
	MarginPct    float64 `json:"margin_pct"`
	VATPct       float64 `json:"vat_pct"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]model.Order, int64, error)

	AddLineItem(ctx context.Context, actor Actor, orderID string, req AddLineItemRequest) (*model.Order, error)
	RemoveLineItem(ctx context.Context, actor Actor, orderID, itemID string) (*model.Order, error)

	SubmitOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error)
	ApproveOrder(ctx context.Context, actor Actor, orderID string, req ApproveOrderRequest) (*model.Order, error)
	VerificationResponse(ctx context.Context, actor Actor, orderID string, req VerificationResponseRequest) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID string, req UpdateStatusRequest) (*model.Order, error)
	ScheduleDelivery(ctx context.Context, actor Actor, orderID string, req ScheduleDeliveryRequest) (*model.Order, error)
	MarkDelivered(ctx context.Context, actor Actor, orderID string, req MarkDeliveredRequest) (*model.Order, error)
	ConfirmStockReceipt(ctx context.Context, actor Actor, orderID string, req ConfirmStockReceiptRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, actor Actor, orderID string, req CancelOrderRequest) (*model.Order, error)

	UpdateOrderVariables(ctx context.Context, actor Actor, orderID string, req UpdateOrderVariablesRequest) (*model.Order, error)
	QuoteLine(req OrderQuoteRequest) pricing.OrderQuote
}

type orderService struct {
	orderRepo    repository.OrderRepository
	activityRepo repository.ActivityRepository
	partyRepo    repository.PartyRepository
	pricingRepo  repository.PricingRepository
	eventRepo    repository.EventRepository
	stock        StockReservationCoordinator
	txManager    repository.TransactionManager
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	activityRepo repository.ActivityRepository,
	partyRepo repository.PartyRepository,
	pricingRepo repository.PricingRepository,
	eventRepo repository.EventRepository,
	stock StockReservationCoordinator,
	txManager repository.TransactionManager,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		activityRepo: activityRepo,
		partyRepo:    partyRepo,
		pricingRepo:  pricingRepo,
		eventRepo:    eventRepo,
		stock:        stock,
		txManager:    txManager,
	}
}

// --- Helpers ---

func (s *orderService) loadOrder(ctx context.Context, orderID string) (*model.Order, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperror.NotFound("order", orderID)
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return order, nil
}

// authorize enforces the relationship guards: a partner may only act on
// orders they originated, a distributor only on orders assigned to them.
func (s *orderService) authorize(ctx context.Context, actor Actor, order *model.Order) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RolePartner:
		if order.PartnerID != actor.ID {
			return apperror.Forbidden("order belongs to another partner")
		}
		return nil
	case model.RoleDistributor:
		dist, err := s.partyRepo.FindDistributorByUser(ctx, actor.ID)
		if err != nil {
			return apperror.Forbidden("no distributor record for this account")
		}
		if order.DistributorID == nil || *order.DistributorID != dist.ID {
			return apperror.Forbidden("order is not assigned to this distributor")
		}
		return nil
	default:
		return apperror.Forbidden("unknown role " + actor.Role)
	}
}

func (s *orderService) variables(order *model.Order) pricing.Variables {
	if order.Variables != nil {
		return pricing.FromModel(*order.Variables)
	}
	return pricing.DefaultOrderVariables()
}

// recomputeTotals rewrites the derived aggregate from the current item set.
// Callers must hold a transaction so a partially updated item set is never
// observed.
func (s *orderService) recomputeTotals(ctx context.Context, order *model.Order) {
	figures := make([]pricing.LineFigures, 0, len(order.Items))
	for _, it := range order.Items {
		figures = append(figures, pricing.LineFigures{
			Quantity:   it.Quantity,
			CaseConfig: it.CaseConfig,
			UnitPrice:  it.UnitPrice,
		})
	}
	totals := pricing.CalculateOrderTotals(figures, s.variables(order))
	order.ItemCount = totals.ItemCount
	order.CaseCount = totals.CaseCount
	order.Subtotal = totals.Subtotal
	order.DutyAmount = totals.DutyAmount
	order.VATAmount = totals.VATAmount
	order.LogisticsAmount = totals.LogisticsAmount
	order.TotalAmount = totals.TotalAmount
}

// transition performs the guarded, conditional status move plus the audit
// and outbox writes every transition shares. Must run inside RunInTx.
func (s *orderService) transition(ctx context.Context, order *model.Order, next model.OrderStatus, actor Actor, action, note string, details interface{}) error {
	prev := order.Status
	if !model.CanTransition(prev, next) {
		return apperror.InvalidState(string(prev), "a status allowing "+string(next))
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, order.ID, prev, next)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if !ok {
		// Lost a race: the stored status moved under us.
		return apperror.InvalidState("changed concurrently", string(prev))
	}
	order.Status = next

	detailJSON, _ := json.Marshal(details)
	actorID := actor.ID
	entry := &model.ActivityLog{
		OrderID:        &order.ID,
		ActorID:        &actorID,
		Action:         action,
		PreviousStatus: &prev,
		NewStatus:      &next,
		Note:           note,
		Details:        string(detailJSON),
	}
	if err := s.activityRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"order_number": order.OrderNumber,
		"partner_id":   order.PartnerID.String(),
		"from":         prev,
		"to":           next,
	})
	event := &model.OrderEvent{
		Kind:    model.EventOrderStatusChanged,
		OrderID: order.ID,
		Payload: string(payload),
	}
	if err := s.eventRepo.Enqueue(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	// The invoice-creation job is fire-and-forget work for the dispatcher,
	// raised only by the transition into client_paid.
	if next == model.StatusClientPaid {
		invoiceEvent := &model.OrderEvent{
			Kind:    model.EventInvoiceCreate,
			OrderID: order.ID,
			Payload: string(payload),
		}
		if err := s.eventRepo.Enqueue(ctx, invoiceEvent); err != nil {
			return fmt.Errorf("failed to enqueue invoice job: %w", err)
		}
	}

	return nil
}

func workflowStamp(at time.Time, by uuid.UUID) (*time.Time, *uuid.UUID) {
	return &at, &by
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RolePartner {
		return nil, apperror.Forbidden("only partners and admins create orders")
	}

	order := &model.Order{
		Status:      model.StatusDraft,
		PartnerID:   actor.ID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
	}
	if req.ClientID != "" {
		cid, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperror.Validation("invalid client_id")
		}
		client, err := s.partyRepo.FindClient(ctx, cid)
		if err != nil {
			return nil, apperror.NotFound("client", req.ClientID)
		}
		order.ClientID = &client.ID
		if order.ClientName == "" {
			order.ClientName = client.Name
		}
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		year := time.Now().Year()
		seq, err := s.orderRepo.NextSequence(txCtx, year)
		if err != nil {
			return fmt.Errorf("failed to derive order number: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("PCO-%d-%05d", year, seq)

		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"client_name": order.ClientName})
		actorID := actor.ID
		entry := &model.ActivityLog{
			OrderID: &order.ID,
			ActorID: &actorID,
			Action:  model.ActionOrderCreated,
			Note:    "Order " + order.OrderNumber + " created",
			Details: string(details),
		}
		return s.activityRepo.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]model.Order, int64, error) {
	filter := repository.OrderFilter{Status: model.OrderStatus(status), Page: page, Limit: limit}
	switch actor.Role {
	case model.RolePartner:
		id := actor.ID
		filter.PartnerID = &id
	case model.RoleDistributor:
		dist, err := s.partyRepo.FindDistributorByUser(ctx, actor.ID)
		if err != nil {
			return nil, 0, apperror.Forbidden("no distributor record for this account")
		}
		filter.DistributorID = &dist.ID
	}
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) AddLineItem(ctx context.Context, actor Actor, orderID string, req AddLineItemRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.StatusDraft && order.Status != model.StatusRevisionRequested {
		return nil, apperror.InvalidState(string(order.Status), "draft or revision_requested")
	}

	var vintage *string
	if req.Vintage != "" {
		vintage = &req.Vintage
	} else if v, cleaned := pricing.ExtractVintage(req.ProductName); v != nil {
		vintage = v
		req.ProductName = cleaned
	}

	item := &model.OrderLineItem{
		OrderID:     order.ID,
		ProductName: req.ProductName,
		Producer:    req.Producer,
		Vintage:     vintage,
		Region:      req.Region,
		LWIN:        req.LWIN,
		CaseConfig:  req.CaseConfig,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		LineTotal:   req.UnitPrice * float64(req.Quantity),
		StockStatus: model.StockPending,
		StockSource: model.SourceManual,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.CreateItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to create line item: %w", err)
		}
		order.Items = append(order.Items, *item)
		s.recomputeTotals(txCtx, order)
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to save totals: %w", err)
		}

		details, _ := json.Marshal(item)
		actorID := actor.ID
		return s.activityRepo.Log(txCtx, &model.ActivityLog{
			OrderID: &order.ID,
			ActorID: &actorID,
			Action:  model.ActionItemAdded,
			Note:    "Added " + item.ProductName,
			Details: string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) RemoveLineItem(ctx context.Context, actor Actor, orderID, itemID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.StatusDraft && order.Status != model.StatusRevisionRequested {
		return nil, apperror.InvalidState(string(order.Status), "draft or revision_requested")
	}

	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, apperror.NotFound("line item", itemID)
	}
	var removed *model.OrderLineItem
	remaining := make([]model.OrderLineItem, 0, len(order.Items))
	for i := range order.Items {
		if order.Items[i].ID == id {
			removed = &order.Items[i]
			continue
		}
		remaining = append(remaining, order.Items[i])
	}
	if removed == nil {
		return nil, apperror.NotFound("line item", itemID)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.DeleteItem(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete line item: %w", err)
		}
		order.Items = remaining
		s.recomputeTotals(txCtx, order)
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to save totals: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"product_name": removed.ProductName})
		actorID := actor.ID
		return s.activityRepo.Log(txCtx, &model.ActivityLog{
			OrderID: &order.ID,
			ActorID: &actorID,
			Action:  model.ActionItemRemoved,
			Note:    "Removed " + removed.ProductName,
			Details: string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) SubmitOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, apperror.Validation("cannot submit an order without line items")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, model.StatusSubmitted, actor, model.ActionStatusChanged, "Order submitted for review", nil); err != nil {
			return err
		}
		order.SubmittedAt, order.SubmittedBy = workflowStamp(time.Now(), actor.ID)
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ApproveOrder moves a submitted order to cc_approved, assigns the
// distributor, applies optional stock-source assignments and bespoke price
// overrides, and reserves cellar stock for cc_inventory items.
func (s *orderService) ApproveOrder(ctx context.Context, actor Actor, orderID string, req ApproveOrderRequest) (*model.Order, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins approve orders")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusSubmitted && order.Status != model.StatusUnderCCReview {
		return nil, apperror.InvalidState(string(order.Status), "submitted or under_cc_review")
	}

	distID, err := uuid.Parse(req.DistributorID)
	if err != nil {
		return nil, apperror.Validation("invalid distributor_id")
	}
	dist, err := s.partyRepo.FindDistributor(ctx, distID)
	if err != nil {
		return nil, apperror.NotFound("distributor", req.DistributorID)
	}

	sources := make(map[uuid.UUID]model.StockSource, len(req.StockAssignments))
	for _, a := range req.StockAssignments {
		id, parseErr := uuid.Parse(a.ItemID)
		if parseErr != nil {
			return nil, apperror.Validation("invalid item_id in stock assignment")
		}
		sources[id] = model.StockSource(a.Source)
	}
	overrides := make(map[uuid.UUID]float64, len(req.PriceOverrides))
	for _, o := range req.PriceOverrides {
		id, parseErr := uuid.Parse(o.ItemID)
		if parseErr != nil {
			return nil, apperror.Validation("invalid item_id in price override")
		}
		overrides[id] = o.UnitPrice
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, model.StatusCCApproved, actor, model.ActionOrderApproved, req.Note, map[string]string{"distributor": dist.Name}); err != nil {
			return err
		}

		var toReserve []ReservationItem
		for i := range order.Items {
			item := &order.Items[i]
			if src, ok := sources[item.ID]; ok {
				item.StockSource = src
				// Sourcing confirms the item; CC-held stock is already
				// sitting in the bonded warehouse.
				if item.StockStatus == model.StockPending {
					if src == model.SourceCCInventory {
						item.StockStatus = model.StockAtCCBonded
					} else {
						item.StockStatus = model.StockConfirmed
					}
				}
			}
			if price, ok := overrides[item.ID]; ok {
				item.UnitPrice = price
				item.LineTotal = price * float64(item.Quantity)
			}
			if err := s.orderRepo.UpdateItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to update line item: %w", err)
			}
			toReserve = append(toReserve, ReservationItem{
				ReferenceCode: item.LWIN,
				ProductName:   item.ProductName,
				QuantityCases: item.Quantity,
				Source:        item.StockSource,
			})
		}

		if err := s.stock.Reserve(txCtx, order.ID, orderTypePrivateClient, toReserve); err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}

		order.DistributorID = &dist.ID
		order.Distributor = dist
		order.ApprovedAt, order.ApprovedBy = workflowStamp(time.Now(), actor.ID)
		s.recomputeTotals(txCtx, order)
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VerificationResponse records the distributor's client-verification
// decision: verified moves to awaiting_client_payment and writes the
// payment reference, not_verified suspends.
func (s *orderService) VerificationResponse(ctx context.Context, actor Actor, orderID string, req VerificationResponseRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.StatusAwaitingDistributorVerif {
		return nil, apperror.InvalidState(string(order.Status), "awaiting_distributor_verification")
	}

	next := model.StatusVerificationSuspended
	if req.Outcome == "verified" {
		next = model.StatusAwaitingClientPayment
		// A verified outcome always produces a payment reference, which
		// needs the assigned distributor's code.
		if order.DistributorID == nil || order.Distributor == nil {
			return nil, apperror.PreconditionFailed("order has no assigned distributor; approve with a distributor before verification")
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, next, actor, model.ActionVerificationResult, req.Notes, map[string]string{"outcome": req.Outcome}); err != nil {
			return err
		}

		if next == model.StatusAwaitingClientPayment {
			ref := order.Distributor.Code + "-" + order.OrderNumber
			order.PaymentReference = &ref
		}
		order.VerifiedAt, order.VerifiedBy = workflowStamp(time.Now(), actor.ID)
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus is the generic admin transition. Cancellation routes through
// the same reservation-release mutation as CancelOrder.
func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, orderID string, req UpdateStatusRequest) (*model.Order, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins update status directly")
	}
	target := model.OrderStatus(req.Status)
	if target == model.StatusCancelled {
		return s.CancelOrder(ctx, actor, orderID, CancelOrderRequest{Reason: req.Note})
	}

	valid := false
	for _, sname := range model.AllStatuses {
		if sname == target {
			valid = true
			break
		}
	}
	if !valid {
		return nil, apperror.Validation("unknown status " + req.Status)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, target, actor, model.ActionStatusChanged, req.Note, nil); err != nil {
			return err
		}

		// Dispatching the order puts every item not yet in transit on the
		// truck; items the distributor already holds keep their state.
		if target == model.StatusStockInTransit {
			for i := range order.Items {
				item := &order.Items[i]
				if item.StockStatus.AtLeast(model.StockInTransitToDistributor) {
					continue
				}
				item.StockStatus = model.StockInTransitToDistributor
				if err := s.orderRepo.UpdateItem(txCtx, item); err != nil {
					return fmt.Errorf("failed to update item stock status: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ScheduleDelivery(ctx context.Context, actor Actor, orderID string, req ScheduleDeliveryRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}

	switch order.Status {
	case model.StatusClientPaid, model.StatusSchedulingDelivery, model.StatusDeliveryScheduled:
	default:
		return nil, apperror.InvalidState(string(order.Status), "client_paid, scheduling_delivery or delivery_scheduled")
	}

	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, apperror.Validation("scheduled_date must be YYYY-MM-DD")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, model.StatusDeliveryScheduled, actor, model.ActionDeliveryScheduled, "Delivery scheduled for "+req.ScheduledDate, map[string]string{"date": req.ScheduledDate}); err != nil {
			return err
		}
		order.ScheduledDeliveryDate = &date
		// Re-scheduling keeps the first scheduling stamp.
		if order.ScheduledAt == nil {
			order.ScheduledAt, order.ScheduledBy = workflowStamp(time.Now(), actor.ID)
		}
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkDelivered closes the order: every item's custody state cascades to
// delivered and the linked client is marked externally verified if not
// already.
func (s *orderService) MarkDelivered(ctx context.Context, actor Actor, orderID string, req MarkDeliveredRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.StatusOutForDelivery {
		return nil, apperror.InvalidState(string(order.Status), "out_for_delivery")
	}
	for _, item := range order.Items {
		if !item.StockStatus.AtLeast(model.StockAtDistributor) {
			return nil, apperror.PreconditionFailed("item " + item.ProductName + " has stock status " + string(item.StockStatus) + ", must be at_distributor or later")
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		details := map[string]string{"signature_proof": req.SignatureProof, "photo_proof": req.PhotoProof}
		if err := s.transition(txCtx, order, model.StatusDelivered, actor, model.ActionOrderDelivered, "Order delivered", details); err != nil {
			return err
		}

		if err := s.orderRepo.UpdateItemsStockStatus(txCtx, order.ID, model.StockDelivered); err != nil {
			return fmt.Errorf("failed to cascade item stock status: %w", err)
		}
		for i := range order.Items {
			order.Items[i].StockStatus = model.StockDelivered
		}

		if order.ClientID != nil {
			if err := s.partyRepo.MarkClientVerified(txCtx, *order.ClientID, time.Now()); err != nil {
				return fmt.Errorf("failed to mark client verified: %w", err)
			}
		}

		order.DeliveredAt, order.DeliveredBy = workflowStamp(time.Now(), actor.ID)
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmStockReceipt moves the named items to at_distributor. Items must
// be in transit to the distributor; anything earlier is a precondition
// failure.
func (s *orderService) ConfirmStockReceipt(ctx context.Context, actor Actor, orderID string, req ConfirmStockReceiptRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}

	wanted := make(map[uuid.UUID]bool, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, apperror.NotFound("line item", raw)
		}
		wanted[id] = true
	}

	var confirm []*model.OrderLineItem
	for i := range order.Items {
		item := &order.Items[i]
		if !wanted[item.ID] {
			continue
		}
		delete(wanted, item.ID)
		if item.StockStatus != model.StockInTransitToDistributor {
			return nil, apperror.PreconditionFailed("item " + item.ProductName + " is " + string(item.StockStatus) + ", must be in_transit_to_distributor")
		}
		confirm = append(confirm, item)
	}
	for id := range wanted {
		return nil, apperror.NotFound("line item", id.String())
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		names := make([]string, 0, len(confirm))
		for _, item := range confirm {
			item.StockStatus = model.StockAtDistributor
			if err := s.orderRepo.UpdateItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to update item stock status: %w", err)
			}
			names = append(names, item.ProductName)
		}

		details, _ := json.Marshal(map[string]interface{}{"items": names})
		actorID := actor.ID
		if err := s.activityRepo.Log(txCtx, &model.ActivityLog{
			OrderID: &order.ID,
			ActorID: &actorID,
			Action:  model.ActionStockReceiptConfirmed,
			Note:    "Stock receipt confirmed",
			Details: string(details),
		}); err != nil {
			return fmt.Errorf("failed to write activity log: %w", err)
		}

		// Once every item has landed, a stock_in_transit order rolls forward.
		if order.Status == model.StatusStockInTransit {
			all := true
			for _, item := range order.Items {
				if !item.StockStatus.AtLeast(model.StockAtDistributor) {
					all = false
					break
				}
			}
			if all {
				return s.transition(txCtx, order, model.StatusWithDistributor, actor, model.ActionStatusChanged, "All stock received by distributor", nil)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder is reachable from any non-terminal status and releases all
// held reservations; releasing an order holding nothing is a no-op.
func (s *orderService) CancelOrder(ctx context.Context, actor Actor, orderID string, req CancelOrderRequest) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status == model.StatusCancelled {
		// Cancelling twice is a no-op; reservations were released the
		// first time round.
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, apperror.InvalidState(string(order.Status), "any non-terminal status")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, order, model.StatusCancelled, actor, model.ActionOrderCancelled, req.Reason, nil); err != nil {
			return err
		}
		if err := s.stock.Release(txCtx, order.ID, orderTypePrivateClient, "order cancelled"); err != nil {
			return fmt.Errorf("failed to release reservations: %w", err)
		}
		order.CancellationReason = req.Reason
		order.CancelledAt, order.CancelledBy = workflowStamp(time.Now(), actor.ID)
		return s.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderVariables attaches a fresh rate configuration version and
// recomputes the whole order aggregate from the current item set.
func (s *orderService) UpdateOrderVariables(ctx context.Context, actor Actor, orderID string, req UpdateOrderVariablesRequest) (*model.Order, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins change rate configuration")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	current := s.variables(order)
	if req.ImportDutyPct != nil {
		current.ImportDutyPct = *req.ImportDutyPct
	}
	if req.VATPct != nil {
		current.VATPct = *req.VATPct
	}
	if req.FreightPerBottle != nil {
		current.FreightPerBottle = *req.FreightPerBottle
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		name := "order-" + order.OrderNumber
		version, err := s.pricingRepo.LatestVersion(txCtx, name)
		if err != nil {
			return fmt.Errorf("failed to read variables version: %w", err)
		}

		vars := &model.CalculationVariables{
			Name:                  name,
			Version:               version + 1,
			InputCurrency:         current.InputCurrency,
			GBPToUSD:              current.GBPToUSD,
			EURToUSD:              current.EURToUSD,
			USDToAED:              current.USDToAED,
			MarginType:            current.MarginType,
			MarginValue:           current.MarginValue,
			FreightPerBottle:      current.FreightPerBottle,
			SalesAdvisorMarginPct: current.SalesAdvisorMarginPct,
			ImportDutyPct:         current.ImportDutyPct,
			LocalCosts:            current.LocalCosts,
			VATPct:                current.VATPct,
		}
		if err := s.pricingRepo.CreateVariables(txCtx, vars); err != nil {
			return fmt.Errorf("failed to create variables: %w", err)
		}

		order.VariablesID = &vars.ID
		order.Variables = vars
		s.recomputeTotals(txCtx, order)
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to save totals: %w", err)
		}

		details, _ := json.Marshal(vars)
		actorID := actor.ID
		return s.activityRepo.Log(txCtx, &model.ActivityLog{
			OrderID: &order.ID,
			ActorID: &actorID,
			Action:  model.ActionVariablesUpdated,
			Note:    fmt.Sprintf("Rate configuration replaced (v%d)", vars.Version),
			Details: string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// QuoteLine runs the per-order B2B calculator. Zero-valued rates fall back
// to the order-pipeline defaults (duty 20, VAT 5).
func (s *orderService) QuoteLine(req OrderQuoteRequest) pricing.OrderQuote {
	v := pricing.DefaultOrderVariables()
	if req.ImportTaxPct > 0 {
		v.ImportDutyPct = req.ImportTaxPct
	}
	if req.MarginPct > 0 {
		v.MarginValue = req.MarginPct
	}
	if req.VATPct > 0 {
		v.VATPct = req.VATPct
	}
	return pricing.CalculateOrderQuote(req.InBondPrice, req.TransferCost, v)
}
