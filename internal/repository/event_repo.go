package repository

import (
	"context"
	"time"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository covers the outbox plus the artifacts its handlers emit
// (in-app notifications and invoice documents).
type EventRepository interface {
	Enqueue(ctx context.Context, event *model.OrderEvent) error
	// ClaimDue marks up to limit due events as attempted and pushes their
	// next-attempt time out by backoff, so a crashed dispatcher's claims
	// become reclaimable. Returns the claimed batch.
	ClaimDue(ctx context.Context, limit int, now time.Time, backoff time.Duration) ([]model.OrderEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]model.Notification, int64, error)

	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	FindInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*model.Invoice, error)
	CountInvoicesByPrefix(ctx context.Context, prefix string) (int64, error)
	ListInvoices(ctx context.Context, page, limit int) ([]model.Invoice, int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Enqueue(ctx context.Context, event *model.OrderEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *eventRepository) ClaimDue(ctx context.Context, limit int, now time.Time, backoff time.Duration) ([]model.OrderEvent, error) {
	var claimed []model.OrderEvent
	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("processed = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)", false, now).
			Order("created_at ASC").
			Limit(limit).
			Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(claimed))
		for _, e := range claimed {
			ids = append(ids, e.ID)
		}
		return tx.Model(&model.OrderEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"attempts":        gorm.Expr("attempts + 1"),
				"next_attempt_at": now.Add(backoff),
			}).Error
	})
	return claimed, err
}

func (r *eventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.OrderEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": at}).Error
}

func (r *eventRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return GetDB(ctx, r.db).Model(&model.OrderEvent{}).
		Where("id = ?", id).
		Update("last_error", lastError).Error
}

func (r *eventRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *eventRepository) ListNotifications(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Notification{}).Where("recipient_id = ?", recipientID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *eventRepository) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *eventRepository) FindInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	if err := GetDB(ctx, r.db).First(&inv, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *eventRepository) CountInvoicesByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("invoice_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

func (r *eventRepository) ListInvoices(ctx context.Context, page, limit int) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}
