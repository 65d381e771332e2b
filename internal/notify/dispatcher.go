// Package notify drains the order-event outbox and performs the
// fire-and-forget work raised by status transitions: in-app notifications,
// websocket broadcasts, email and invoice creation. Events are written in
// the same transaction as the transition and processed here after commit,
// so a crashed process loses no work.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"
	ws "vinobridge/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 20
	defaultBackoff      = time.Minute
	maxAttempts         = 5
)

// EmailSender is the outbound email port. The default implementation only
// logs; a real SMTP or provider client can be swapped in at wiring time.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

type logEmailSender struct{}

func (logEmailSender) Send(_ context.Context, recipient, subject, _ string) error {
	logrus.WithFields(logrus.Fields{
		"recipient": recipient,
		"subject":   subject,
	}).Info("email suppressed (no sender configured)")
	return nil
}

// NewLogEmailSender returns the log-only email implementation.
func NewLogEmailSender() EmailSender {
	return logEmailSender{}
}

type statusChangedPayload struct {
	OrderNumber string            `json:"order_number"`
	PartnerID   string            `json:"partner_id"`
	From        model.OrderStatus `json:"from"`
	To          model.OrderStatus `json:"to"`
}

// Dispatcher polls the outbox and routes each event to its handler.
type Dispatcher struct {
	eventRepo repository.EventRepository
	orderRepo repository.OrderRepository
	hub       *ws.Hub
	email     EmailSender

	pollInterval time.Duration
	batchSize    int
	backoff      time.Duration
}

func NewDispatcher(eventRepo repository.EventRepository, orderRepo repository.OrderRepository, hub *ws.Hub, email EmailSender) *Dispatcher {
	return &Dispatcher{
		eventRepo:    eventRepo,
		orderRepo:    orderRepo,
		hub:          hub,
		email:        email,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		backoff:      defaultBackoff,
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	logrus.Info("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes one claimed batch. Exposed for tests.
func (d *Dispatcher) Tick(ctx context.Context) {
	events, err := d.eventRepo.ClaimDue(ctx, d.batchSize, time.Now(), d.backoff)
	if err != nil {
		logrus.WithError(err).Error("failed to claim outbox events")
		return
	}

	for _, event := range events {
		log := logrus.WithFields(logrus.Fields{
			"event_id": event.ID,
			"kind":     event.Kind,
			"order_id": event.OrderID,
		})

		if event.Attempts > maxAttempts {
			log.Warn("outbox event exceeded max attempts, marking processed")
			if err := d.eventRepo.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
				log.WithError(err).Error("failed to park outbox event")
			}
			continue
		}

		if err := d.handle(ctx, event); err != nil {
			log.WithError(err).Warn("outbox event failed, will retry")
			if markErr := d.eventRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				log.WithError(markErr).Error("failed to record outbox failure")
			}
			continue
		}
		if err := d.eventRepo.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
			log.WithError(err).Error("failed to mark outbox event processed")
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event model.OrderEvent) error {
	switch event.Kind {
	case model.EventOrderStatusChanged:
		return d.handleStatusChanged(ctx, event)
	case model.EventInvoiceCreate:
		return d.handleInvoiceCreate(ctx, event)
	default:
		// Unknown kinds are parked rather than retried forever.
		logrus.WithField("kind", event.Kind).Warn("unknown outbox event kind")
		return nil
	}
}

// handleStatusChanged raises zero or one notification per transition, per
// the fixed status lookup, plus a websocket broadcast for live dashboards.
func (d *Dispatcher) handleStatusChanged(ctx context.Context, event model.OrderEvent) error {
	var payload statusChangedPayload
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		return fmt.Errorf("corrupt payload: %w", err)
	}

	if d.hub != nil {
		msg, _ := json.Marshal(map[string]interface{}{
			"event":        event.Kind,
			"order_id":     event.OrderID,
			"order_number": payload.OrderNumber,
			"from":         payload.From,
			"to":           payload.To,
		})
		select {
		case d.hub.Broadcast <- msg:
		default:
			// Nobody listening; broadcast is best-effort.
		}
	}

	notifType := model.NotificationTypeFor(payload.To)
	if notifType == "" {
		return nil
	}

	order, err := d.orderRepo.FindByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	title := fmt.Sprintf("Order %s: %s", order.OrderNumber, payload.To)
	message := fmt.Sprintf("Order %s moved from %s to %s", order.OrderNumber, payload.From, payload.To)
	orderID := order.ID
	notification := &model.Notification{
		RecipientID: order.PartnerID,
		OrderID:     &orderID,
		Type:        notifType,
		Title:       title,
		Message:     message,
	}
	if err := d.eventRepo.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	recipient := order.ClientEmail
	if recipient != "" {
		if err := d.email.Send(ctx, recipient, title, message); err != nil {
			// Email failure is not worth re-running the whole event.
			logrus.WithError(err).Warn("email send failed")
		}
	}
	return nil
}

// handleInvoiceCreate writes the local accounting document for a paid
// order. A second delivery of the same event finds the existing invoice
// and does nothing.
func (d *Dispatcher) handleInvoiceCreate(ctx context.Context, event model.OrderEvent) error {
	if existing, err := d.eventRepo.FindInvoiceByOrder(ctx, event.OrderID); err == nil && existing != nil {
		return nil
	}

	order, err := d.orderRepo.FindByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	prefix := "INV-" + time.Now().Format("20060102") + "-"
	seq, err := d.eventRepo.CountInvoicesByPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to derive invoice number: %w", err)
	}

	invoice := &model.Invoice{
		InvoiceNo:       fmt.Sprintf("%s%04d", prefix, seq+1),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Subtotal:        decimal.NewFromFloat(order.Subtotal),
		DutyAmount:      decimal.NewFromFloat(order.DutyAmount),
		VATAmount:       decimal.NewFromFloat(order.VATAmount),
		LogisticsAmount: decimal.NewFromFloat(order.LogisticsAmount),
		TotalAmount:     decimal.NewFromFloat(order.TotalAmount),
	}
	if err := d.eventRepo.CreateInvoice(ctx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"invoice_no":   invoice.InvoiceNo,
		"order_number": order.OrderNumber,
	}).Info("invoice created")
	return nil
}
