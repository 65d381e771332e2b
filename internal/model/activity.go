package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionOrderCreated          = "ORDER_CREATED"
	ActionItemAdded             = "ITEM_ADDED"
	ActionItemRemoved           = "ITEM_REMOVED"
	ActionStatusChanged         = "STATUS_CHANGED"
	ActionOrderApproved         = "ORDER_APPROVED"
	ActionVerificationResult    = "VERIFICATION_RESULT"
	ActionDeliveryScheduled     = "DELIVERY_SCHEDULED"
	ActionOrderDelivered        = "ORDER_DELIVERED"
	ActionStockReceiptConfirmed = "STOCK_RECEIPT_CONFIRMED"
	ActionOrderCancelled        = "ORDER_CANCELLED"
	ActionCaseConfigUpdated     = "CASE_CONFIG_UPDATED"
	ActionVariablesUpdated      = "VARIABLES_UPDATED"
	ActionBulkCalculationRun    = "BULK_CALCULATION_RUN"
)

// ActivityLog is the append-only record of every meaningful action on an
// order or pricing session. Rows are never updated or deleted; the full
// history timeline is reconstructed from these rows alone.
type ActivityLog struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        *uuid.UUID   `gorm:"type:uuid;index" json:"order_id"` // nullable for session-scoped actions
	SessionID      *uuid.UUID   `gorm:"type:uuid;index" json:"session_id"`
	ActorID        *uuid.UUID   `gorm:"type:uuid;index" json:"actor_id"`
	Actor          *User        `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action         string       `gorm:"type:varchar(50);not null;index" json:"action"`
	PreviousStatus *OrderStatus `gorm:"type:varchar(50)" json:"previous_status"`
	NewStatus      *OrderStatus `gorm:"type:varchar(50)" json:"new_status"`
	Note           string       `gorm:"type:text" json:"note"`
	Details        string       `gorm:"type:jsonb" json:"details"` // serialized structured payload
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
}
