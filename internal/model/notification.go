package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEvent kinds processed by the outbox dispatcher.
const (
	EventOrderStatusChanged = "order.status_changed"
	EventInvoiceCreate      = "invoice.create"
)

// OrderEvent is an outbox row written in the same transaction as the state
// change it describes. The dispatcher claims unprocessed rows, runs the
// matching handler outside the transaction, and records the outcome.
// Handler failures never reach the transition that raised the event.
type OrderEvent struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind          string     `gorm:"type:varchar(50);not null;index" json:"kind"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	Payload       string     `gorm:"type:jsonb;not null" json:"payload"`
	Processed     bool       `gorm:"not null;default:false;index" json:"processed"`
	Attempts      int        `gorm:"type:int;not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"index" json:"next_attempt_at"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Notification is an in-app message for the originating partner, raised by
// status transitions via the status → notification-type lookup.
type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;index" json:"recipient_id"`
	OrderID     *uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	Type        NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	Read        bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// Invoice is the local accounting document written by the asynchronous
// invoice-creation job when an order enters client_paid. Amounts are kept
// as decimals; the external accounting sync reads these rows.
type Invoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo       string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderNumber     string          `gorm:"type:varchar(30);not null" json:"order_number"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	DutyAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"duty_amount"`
	VATAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"vat_amount"`
	LogisticsAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"logistics_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
