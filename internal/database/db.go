package database

import (
	"vinobridge/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Client{},
		&model.Distributor{},
		&model.Order{},
		&model.OrderLineItem{},
		&model.ActivityLog{},
		&model.CalculationVariables{},
		&model.PricingSession{},
		&model.PricingLineItem{},
		&model.InventoryItem{},
		&model.StockReservation{},
		&model.OrderEvent{},
		&model.Notification{},
		&model.Invoice{},
	)
	if err != nil {
		logrus.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}
