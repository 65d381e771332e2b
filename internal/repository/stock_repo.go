package repository

import (
	"context"
	"time"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockRepository interface {
	FindInventoryByCode(ctx context.Context, referenceCode string) (*model.InventoryItem, error)
	AdjustReserved(ctx context.Context, inventoryItemID uuid.UUID, delta int) error
	CreateReservation(ctx context.Context, res *model.StockReservation) error
	ActiveReservations(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error)
	ReleaseReservations(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) error
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) FindInventoryByCode(ctx context.Context, referenceCode string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).First(&item, "reference_code = ?", referenceCode).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepository) AdjustReserved(ctx context.Context, inventoryItemID uuid.UUID, delta int) error {
	return GetDB(ctx, r.db).Model(&model.InventoryItem{}).
		Where("id = ?", inventoryItemID).
		Update("cases_reserved", gorm.Expr("cases_reserved + ?", delta)).Error
}

func (r *stockRepository) CreateReservation(ctx context.Context, res *model.StockReservation) error {
	return GetDB(ctx, r.db).Create(res).Error
}

func (r *stockRepository) ActiveReservations(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	if err := GetDB(ctx, r.db).
		Where("order_id = ? AND released_at IS NULL", orderID).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *stockRepository) ReleaseReservations(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.StockReservation{}).
		Where("order_id = ? AND released_at IS NULL", orderID).
		Updates(map[string]interface{}{"released_at": at, "release_reason": reason}).Error
}
