package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarginType enum constants
const (
	MarginPercentage = "percentage"
	MarginAbsolute   = "absolute"
)

// PricingSession status constants
const (
	SessionUploaded   = "UPLOADED"
	SessionMapped     = "MAPPED"
	SessionCalculated = "CALCULATED"
)

// CalculationVariables is a named, versioned rate/markup configuration.
// Rows are immutable once attached to a calculation; replacing a session's
// variables inserts a new version and resets the session.
type CalculationVariables struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(100);not null" json:"name"`
	Version int       `gorm:"type:int;not null;default:1" json:"version"`

	InputCurrency string  `gorm:"type:varchar(3);not null;default:'GBP'" json:"input_currency"`
	GBPToUSD      float64 `gorm:"type:decimal(12,6);not null;default:1.27" json:"gbp_to_usd"`
	EURToUSD      float64 `gorm:"type:decimal(12,6);not null;default:1.08" json:"eur_to_usd"`
	USDToAED      float64 `gorm:"type:decimal(12,6);not null;default:3.67" json:"usd_to_aed"`

	MarginType  string  `gorm:"type:varchar(20);not null;default:'percentage'" json:"margin_type"`
	MarginValue float64 `gorm:"type:decimal(12,6);not null;default:5" json:"margin_value"`

	FreightPerBottle      float64 `gorm:"type:decimal(12,6);not null;default:0" json:"freight_per_bottle"`
	SalesAdvisorMarginPct float64 `gorm:"type:decimal(12,6);not null;default:0" json:"sales_advisor_margin_pct"`
	ImportDutyPct         float64 `gorm:"type:decimal(12,6);not null;default:50" json:"import_duty_pct"`
	LocalCosts            float64 `gorm:"type:decimal(12,6);not null;default:0" json:"local_costs"`
	VATPct                float64 `gorm:"type:decimal(12,6);not null;default:5" json:"vat_pct"`

	CreatedAt time.Time `json:"created_at"`
}

// PricingSession holds an uploaded product list, the column mapping that
// feeds each semantic field, and the variables of the last calculation.
type PricingSession struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	Status   string    `gorm:"type:varchar(20);not null;default:'UPLOADED'" json:"status"`
	FileName string    `gorm:"type:varchar(255)" json:"file_name"`

	// Raw sheet rows as uploaded, serialized [][]string. Kept verbatim so a
	// mapping or variables change can regenerate every line item.
	RawRows string `gorm:"type:jsonb;not null" json:"-"`

	// Column mapping: semantic field -> zero-based column index.
	// Fields: product_name, unit_price, currency, case_config, vintage.
	ColumnMapping string `gorm:"type:jsonb" json:"column_mapping"`

	DefaultCaseConfig int    `gorm:"type:int;not null;default:6" json:"default_case_config"`
	DefaultCurrency   string `gorm:"type:varchar(3);not null;default:'GBP'" json:"default_currency"`

	VariablesID *uuid.UUID            `gorm:"type:uuid" json:"variables_id"`
	Variables   *CalculationVariables `gorm:"foreignKey:VariablesID" json:"variables,omitempty"`

	CreatedBy *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PricingLineItem is a calculated snapshot for one sheet row. The whole set
// is deleted and reinserted whenever the session's mapping or variables
// change; only a case-config edit recomputes a single row in place.
type PricingLineItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	RowIndex  int       `gorm:"type:int;not null" json:"row_index"`

	ProductName string  `gorm:"type:varchar(255);not null" json:"product_name"`
	Vintage     *string `gorm:"type:varchar(10)" json:"vintage"`
	CaseConfig  int     `gorm:"type:int;not null" json:"case_config"`
	Currency    string  `gorm:"type:varchar(3);not null" json:"currency"`
	UnitPrice   float64 `gorm:"type:decimal(18,6);not null" json:"unit_price"` // source price per case

	// B2B in-bond prices
	CaseUSD   float64 `gorm:"type:decimal(18,6);not null" json:"case_usd"`
	BottleUSD float64 `gorm:"type:decimal(18,6);not null" json:"bottle_usd"`
	CaseAED   float64 `gorm:"type:decimal(18,6);not null" json:"case_aed"`
	BottleAED float64 `gorm:"type:decimal(18,6);not null" json:"bottle_aed"`

	// D2C delivered prices
	DeliveredCaseUSD   float64 `gorm:"type:decimal(18,6);not null" json:"delivered_case_usd"`
	DeliveredBottleUSD float64 `gorm:"type:decimal(18,6);not null" json:"delivered_bottle_usd"`
	DeliveredCaseAED   float64 `gorm:"type:decimal(18,6);not null" json:"delivered_case_aed"`
	DeliveredBottleAED float64 `gorm:"type:decimal(18,6);not null" json:"delivered_bottle_aed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
