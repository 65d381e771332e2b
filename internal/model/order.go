package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the aggregate root of a single private client sale. Totals are
// derived from line items plus the attached calculation variables and are
// rewritten atomically whenever the item set changes.
type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string      `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_number"` // PCO-<year>-<5-digit-seq>
	Status      OrderStatus `gorm:"type:varchar(50);not null;default:'draft';index" json:"status"`

	// Parties
	PartnerID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"partner_id"` // originating partner user
	Partner       *User        `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	DistributorID *uuid.UUID   `gorm:"type:uuid;index" json:"distributor_id"` // assigned at approval
	Distributor   *Distributor `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`
	ClientID      *uuid.UUID   `gorm:"type:uuid;index" json:"client_id"`
	Client        *Client      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ClientName    string       `gorm:"type:varchar(255)" json:"client_name"` // inline fallback when no client record
	ClientEmail   string       `gorm:"type:varchar(255)" json:"client_email"`
	ClientPhone   string       `gorm:"type:varchar(50)" json:"client_phone"`

	// Derived commercial totals
	ItemCount       int     `gorm:"type:int;not null;default:0" json:"item_count"`
	CaseCount       int     `gorm:"type:int;not null;default:0" json:"case_count"`
	Subtotal        float64 `gorm:"type:decimal(18,6);not null;default:0" json:"subtotal"`
	DutyAmount      float64 `gorm:"type:decimal(18,6);not null;default:0" json:"duty_amount"`
	VATAmount       float64 `gorm:"type:decimal(18,6);not null;default:0" json:"vat_amount"`
	LogisticsAmount float64 `gorm:"type:decimal(18,6);not null;default:0" json:"logistics_amount"`
	TotalAmount     float64 `gorm:"type:decimal(18,6);not null;default:0" json:"total_amount"`

	VariablesID *uuid.UUID            `gorm:"type:uuid" json:"variables_id"`
	Variables   *CalculationVariables `gorm:"foreignKey:VariablesID" json:"variables,omitempty"`

	// Written by the distributor verification transition: {distributorCode}-{orderNumber}
	PaymentReference *string `gorm:"type:varchar(60)" json:"payment_reference"`

	ScheduledDeliveryDate *time.Time `json:"scheduled_delivery_date"`
	CancellationReason    string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	// Workflow timestamp/actor pairs, each set exactly once.
	SubmittedAt *time.Time `json:"submitted_at"`
	SubmittedBy *uuid.UUID `gorm:"type:uuid" json:"submitted_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	ApprovedBy  *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	VerifiedAt  *time.Time `json:"verified_at"` // distributor verification decision
	VerifiedBy  *uuid.UUID `gorm:"type:uuid" json:"verified_by"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	ScheduledBy *uuid.UUID `gorm:"type:uuid" json:"scheduled_by"`
	DeliveredAt *time.Time `json:"delivered_at"`
	DeliveredBy *uuid.UUID `gorm:"type:uuid" json:"delivered_by"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CancelledBy *uuid.UUID `gorm:"type:uuid" json:"cancelled_by"`

	Items     []OrderLineItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// OrderLineItem is one wine line within an Order. Items are editable only
// while the order sits in draft or revision_requested; afterwards the admin
// correction paths are the only way in.
type OrderLineItem struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`

	ProductName string  `gorm:"type:varchar(255);not null" json:"product_name"`
	Producer    string  `gorm:"type:varchar(255)" json:"producer"`
	Vintage     *string `gorm:"type:varchar(10)" json:"vintage"`
	Region      string  `gorm:"type:varchar(255)" json:"region"`
	LWIN        string  `gorm:"type:varchar(20);index" json:"lwin"` // wine identifier / inventory reference code

	CaseConfig int     `gorm:"type:int;not null;default:6" json:"case_config"` // bottles per case
	Quantity   int     `gorm:"type:int;not null" json:"quantity"`              // cases
	UnitPrice  float64 `gorm:"type:decimal(18,6);not null" json:"unit_price"`  // per case
	LineTotal  float64 `gorm:"type:decimal(18,6);not null" json:"line_total"`

	StockStatus StockStatus `gorm:"type:varchar(40);not null;default:'pending'" json:"stock_status"`
	StockSource StockSource `gorm:"type:varchar(40);not null;default:'manual'" json:"stock_source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
