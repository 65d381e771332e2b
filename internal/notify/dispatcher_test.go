package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Stubs embed the port interfaces and override only what the dispatcher
// touches; calling anything else panics, which is what we want in a test.

type stubOrderRepo struct {
	repository.OrderRepository
	orders map[uuid.UUID]*model.Order
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

type stubEventRepo struct {
	repository.EventRepository
	events        []model.OrderEvent
	notifications []model.Notification
	invoices      []model.Invoice
	failures      map[uuid.UUID]string
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{failures: map[uuid.UUID]string{}}
}

func (s *stubEventRepo) ClaimDue(_ context.Context, limit int, _ time.Time, _ time.Duration) ([]model.OrderEvent, error) {
	var due []model.OrderEvent
	for i := range s.events {
		if s.events[i].Processed {
			continue
		}
		s.events[i].Attempts++
		due = append(due, s.events[i])
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *stubEventRepo) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Processed = true
			s.events[i].ProcessedAt = &at
		}
	}
	return nil
}

func (s *stubEventRepo) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	s.failures[id] = lastError
	return nil
}

func (s *stubEventRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *stubEventRepo) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	s.invoices = append(s.invoices, *inv)
	return nil
}

func (s *stubEventRepo) FindInvoiceByOrder(_ context.Context, orderID uuid.UUID) (*model.Invoice, error) {
	for i := range s.invoices {
		if s.invoices[i].OrderID == orderID {
			return &s.invoices[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEventRepo) CountInvoicesByPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, inv := range s.invoices {
		if len(inv.InvoiceNo) >= len(prefix) && inv.InvoiceNo[:len(prefix)] == prefix {
			n++
		}
	}
	return n, nil
}

func statusEvent(t *testing.T, order *model.Order, from, to model.OrderStatus) model.OrderEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"order_number": order.OrderNumber,
		"partner_id":   order.PartnerID.String(),
		"from":         from,
		"to":           to,
	})
	require.NoError(t, err)
	return model.OrderEvent{
		ID:      uuid.New(),
		Kind:    model.EventOrderStatusChanged,
		OrderID: order.ID,
		Payload: string(payload),
	}
}

func testOrder() *model.Order {
	return &model.Order{
		ID:          uuid.New(),
		OrderNumber: "PCO-2026-00042",
		PartnerID:   uuid.New(),
		Status:      model.StatusSubmitted,
		ClientEmail: "client@example.com",
		Subtotal:    6000,
		DutyAmount:  1200,
		VATAmount:   360,
		TotalAmount: 7560,
	}
}

func TestTickCreatesNotificationForMappedStatus(t *testing.T) {
	order := testOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	events := newStubEventRepo()
	events.events = append(events.events, statusEvent(t, order, model.StatusDraft, model.StatusSubmitted))

	d := NewDispatcher(events, orders, nil, NewLogEmailSender())
	d.Tick(context.Background())

	require.Len(t, events.notifications, 1)
	n := events.notifications[0]
	assert.Equal(t, order.PartnerID, n.RecipientID)
	assert.Equal(t, model.NotifyOrderSubmitted, n.Type)
	assert.Contains(t, n.Message, "PCO-2026-00042")
	assert.True(t, events.events[0].Processed)
}

func TestTickSilentStatusRaisesNothing(t *testing.T) {
	order := testOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	events := newStubEventRepo()
	// under_cc_review has no mapped notification type.
	events.events = append(events.events, statusEvent(t, order, model.StatusSubmitted, model.StatusUnderCCReview))

	d := NewDispatcher(events, orders, nil, NewLogEmailSender())
	d.Tick(context.Background())

	assert.Empty(t, events.notifications)
	assert.True(t, events.events[0].Processed)
}

func TestTickInvoiceCreation(t *testing.T) {
	order := testOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	events := newStubEventRepo()
	events.events = append(events.events, model.OrderEvent{
		ID:      uuid.New(),
		Kind:    model.EventInvoiceCreate,
		OrderID: order.ID,
		Payload: "{}",
	})

	d := NewDispatcher(events, orders, nil, NewLogEmailSender())
	d.Tick(context.Background())

	require.Len(t, events.invoices, 1)
	inv := events.invoices[0]
	assert.Equal(t, order.OrderNumber, inv.OrderNumber)
	assert.Contains(t, inv.InvoiceNo, "INV-"+time.Now().Format("20060102")+"-")
	assert.Equal(t, "7560", inv.TotalAmount.String())
}

func TestTickInvoiceIsIdempotent(t *testing.T) {
	order := testOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	events := newStubEventRepo()
	for i := 0; i < 2; i++ {
		events.events = append(events.events, model.OrderEvent{
			ID:      uuid.New(),
			Kind:    model.EventInvoiceCreate,
			OrderID: order.ID,
			Payload: "{}",
		})
	}

	d := NewDispatcher(events, orders, nil, NewLogEmailSender())
	d.Tick(context.Background())

	assert.Len(t, events.invoices, 1)
}

func TestTickFailedEventIsMarkedForRetry(t *testing.T) {
	order := testOrder()
	// Order missing from the repo: loading fails, event must not be processed.
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{}}
	events := newStubEventRepo()
	event := statusEvent(t, order, model.StatusDraft, model.StatusSubmitted)
	events.events = append(events.events, event)

	d := NewDispatcher(events, orders, nil, NewLogEmailSender())
	d.Tick(context.Background())

	assert.False(t, events.events[0].Processed)
	assert.Contains(t, events.failures[event.ID], "failed to load order")
}
