package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryItem is a lot held in the operating company's bonded cellar,
// keyed by its wine reference code (LWIN).
type InventoryItem struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReferenceCode string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"reference_code"`
	ProductName   string         `gorm:"type:varchar(255);not null" json:"product_name"`
	Vintage       *string        `gorm:"type:varchar(10)" json:"vintage"`
	CaseConfig    int            `gorm:"type:int;not null;default:6" json:"case_config"`
	CasesOnHand   int            `gorm:"type:int;not null;default:0" json:"cases_on_hand"`
	CasesReserved int            `gorm:"type:int;not null;default:0" json:"cases_reserved"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// StockReservation pins cellar stock to an order between approval and
// cancellation/delivery. At most one active reservation exists per
// (order, inventory item) pair; releasing sets ReleasedAt.
type StockReservation struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderType       string     `gorm:"type:varchar(30);not null;default:'private_client_order'" json:"order_type"`
	InventoryItemID uuid.UUID  `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	ReferenceCode   string     `gorm:"type:varchar(20);not null" json:"reference_code"`
	ProductName     string     `gorm:"type:varchar(255)" json:"product_name"`
	Quantity        int        `gorm:"type:int;not null" json:"quantity"` // cases
	ReleaseReason   string     `gorm:"type:text" json:"release_reason,omitempty"`
	ReleasedAt      *time.Time `gorm:"index" json:"released_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
