package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory ports backing the service tests. They honor the same contracts
// as the gorm-backed implementations, including the conditional status
// write and the version counter.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	seq    map[int]int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*model.Order{}, seq: map[int]int{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) CreateItem(_ context.Context, item *model.OrderLineItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return nil
}

func (r *fakeOrderRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	for _, order := range r.orders {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				order.Items = append(order.Items[:i], order.Items[i+1:]...)
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) UpdateItem(_ context.Context, item *model.OrderLineItem) error {
	for _, order := range r.orders {
		for i := range order.Items {
			if order.Items[i].ID == item.ID {
				order.Items[i] = *item
				return nil
			}
		}
	}
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) FindItem(_ context.Context, itemID uuid.UUID) (*model.OrderLineItem, error) {
	for _, order := range r.orders {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				return &order.Items[i], nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) Save(_ context.Context, order *model.Order) error {
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, expected, next model.OrderStatus) (bool, error) {
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status != expected {
		return false, nil
	}
	order.Status = next
	return true, nil
}

func (r *fakeOrderRepo) UpdateItemsStockStatus(_ context.Context, orderID uuid.UUID, status model.StockStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range order.Items {
		order.Items[i].StockStatus = status
	}
	return nil
}

func (r *fakeOrderRepo) NextSequence(_ context.Context, year int) (int, error) {
	r.seq[year]++
	return r.seq[year], nil
}

func (r *fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PartnerID != nil && order.PartnerID != *filter.PartnerID {
			continue
		}
		if filter.DistributorID != nil && (order.DistributorID == nil || *order.DistributorID != *filter.DistributorID) {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, int64(len(out)), nil
}

type fakeActivityRepo struct {
	entries []model.ActivityLog
}

func (r *fakeActivityRepo) Log(_ context.Context, entry *model.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]model.ActivityLog, error) {
	var out []model.ActivityLog
	for _, e := range r.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) List(_ context.Context, _, _ int) ([]model.ActivityLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

type fakePartyRepo struct {
	clients      map[uuid.UUID]*model.Client
	distributors map[uuid.UUID]*model.Distributor
}

func newFakePartyRepo() *fakePartyRepo {
	return &fakePartyRepo{
		clients:      map[uuid.UUID]*model.Client{},
		distributors: map[uuid.UUID]*model.Distributor{},
	}
}

func (r *fakePartyRepo) CreateClient(_ context.Context, client *model.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	r.clients[client.ID] = client
	return nil
}

func (r *fakePartyRepo) FindClient(_ context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakePartyRepo) MarkClientVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	c, ok := r.clients[id]
	if !ok {
		return nil
	}
	if c.ExternallyVerifiedAt == nil {
		c.ExternallyVerifiedAt = &at
	}
	return nil
}

func (r *fakePartyRepo) FindDistributor(_ context.Context, id uuid.UUID) (*model.Distributor, error) {
	d, ok := r.distributors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *fakePartyRepo) FindDistributorByUser(_ context.Context, userID uuid.UUID) (*model.Distributor, error) {
	for _, d := range r.distributors {
		if d.UserID != nil && *d.UserID == userID {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePricingRepo struct {
	sessions  map[uuid.UUID]*model.PricingSession
	variables []model.CalculationVariables
	lineItems map[uuid.UUID][]model.PricingLineItem
}

func newFakePricingRepo() *fakePricingRepo {
	return &fakePricingRepo{
		sessions:  map[uuid.UUID]*model.PricingSession{},
		lineItems: map[uuid.UUID][]model.PricingLineItem{},
	}
}

func (r *fakePricingRepo) CreateSession(_ context.Context, session *model.PricingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakePricingRepo) FindSession(_ context.Context, id uuid.UUID) (*model.PricingSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakePricingRepo) SaveSession(_ context.Context, session *model.PricingSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakePricingRepo) ListSessions(_ context.Context, _, _ int) ([]model.PricingSession, int64, error) {
	var out []model.PricingSession
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *fakePricingRepo) CreateVariables(_ context.Context, vars *model.CalculationVariables) error {
	if vars.ID == uuid.Nil {
		vars.ID = uuid.New()
	}
	r.variables = append(r.variables, *vars)
	return nil
}

func (r *fakePricingRepo) LatestVersion(_ context.Context, name string) (int, error) {
	max := 0
	for _, v := range r.variables {
		if v.Name == name && v.Version > max {
			max = v.Version
		}
	}
	return max, nil
}

func (r *fakePricingRepo) ReplaceLineItems(_ context.Context, sessionID uuid.UUID, items []model.PricingLineItem) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].SessionID = sessionID
	}
	r.lineItems[sessionID] = items
	return nil
}

func (r *fakePricingRepo) ListLineItems(_ context.Context, sessionID uuid.UUID) ([]model.PricingLineItem, error) {
	return r.lineItems[sessionID], nil
}

func (r *fakePricingRepo) FindLineItem(_ context.Context, id uuid.UUID) (*model.PricingLineItem, error) {
	for sid := range r.lineItems {
		for i := range r.lineItems[sid] {
			if r.lineItems[sid][i].ID == id {
				return &r.lineItems[sid][i], nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePricingRepo) SaveLineItem(_ context.Context, item *model.PricingLineItem) error {
	items := r.lineItems[item.SessionID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = *item
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeEventRepo struct {
	events        []model.OrderEvent
	notifications []model.Notification
	invoices      []model.Invoice
}

func (r *fakeEventRepo) Enqueue(_ context.Context, event *model.OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) ClaimDue(_ context.Context, limit int, now time.Time, _ time.Duration) ([]model.OrderEvent, error) {
	var due []model.OrderEvent
	for i := range r.events {
		if r.events[i].Processed {
			continue
		}
		if r.events[i].NextAttemptAt != nil && r.events[i].NextAttemptAt.After(now) {
			continue
		}
		r.events[i].Attempts++
		due = append(due, r.events[i])
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	for i := range r.events {
		if r.events[i].ID == id {
			r.events[i].Processed = true
			r.events[i].ProcessedAt = &at
		}
	}
	return nil
}

func (r *fakeEventRepo) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	for i := range r.events {
		if r.events[i].ID == id {
			r.events[i].LastError = lastError
		}
	}
	return nil
}

func (r *fakeEventRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeEventRepo) ListNotifications(_ context.Context, recipientID uuid.UUID, _, _ int) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEventRepo) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r.invoices = append(r.invoices, *inv)
	return nil
}

func (r *fakeEventRepo) FindInvoiceByOrder(_ context.Context, orderID uuid.UUID) (*model.Invoice, error) {
	for i := range r.invoices {
		if r.invoices[i].OrderID == orderID {
			return &r.invoices[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEventRepo) CountInvoicesByPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, inv := range r.invoices {
		if len(inv.InvoiceNo) >= len(prefix) && inv.InvoiceNo[:len(prefix)] == prefix {
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) ListInvoices(_ context.Context, _, _ int) ([]model.Invoice, int64, error) {
	return r.invoices, int64(len(r.invoices)), nil
}

type reserveCall struct {
	orderID uuid.UUID
	items   []ReservationItem
}

type fakeStockCoordinator struct {
	reserves []reserveCall
	releases []uuid.UUID
	failNext bool
}

func (c *fakeStockCoordinator) Reserve(_ context.Context, orderID uuid.UUID, _ string, items []ReservationItem) error {
	if c.failNext {
		c.failNext = false
		return fmt.Errorf("inventory unavailable")
	}
	c.reserves = append(c.reserves, reserveCall{orderID: orderID, items: items})
	return nil
}

func (c *fakeStockCoordinator) Release(_ context.Context, orderID uuid.UUID, _ string, _ string) error {
	c.releases = append(c.releases, orderID)
	return nil
}
