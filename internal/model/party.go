package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the end buyer of a private client order. ExternallyVerifiedAt is
// stamped once, the first time one of the client's orders is delivered.
type Client struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                 string         `gorm:"type:varchar(255);not null" json:"name"`
	Email                string         `gorm:"type:varchar(255)" json:"email"`
	Phone                string         `gorm:"type:varchar(50)" json:"phone"`
	Address              string         `gorm:"type:text" json:"address"`
	PartnerID            *uuid.UUID     `gorm:"type:uuid;index" json:"partner_id"` // introducing partner
	ExternallyVerifiedAt *time.Time     `json:"externally_verified_at"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// Distributor is a licensed local distributor. Code prefixes payment
// references ({code}-{orderNumber}).
type Distributor struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Code          string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	LicenseNumber string         `gorm:"type:varchar(100)" json:"license_number"`
	UserID        *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // login account acting for this distributor
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
