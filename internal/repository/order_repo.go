package repository

import (
	"context"
	"strconv"
	"strings"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilter narrows the order list for the read views.
type OrderFilter struct {
	Status        model.OrderStatus
	PartnerID     *uuid.UUID
	DistributorID *uuid.UUID
	Page          int
	Limit         int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItem(ctx context.Context, item *model.OrderLineItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	UpdateItem(ctx context.Context, item *model.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*model.OrderLineItem, error)
	Save(ctx context.Context, order *model.Order) error
	// UpdateStatusIf performs the conditional status write that closes the
	// guard-check/write race: zero rows affected means the stored status no
	// longer matches the expected one.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next model.OrderStatus) (bool, error)
	UpdateItemsStockStatus(ctx context.Context, orderID uuid.UUID, status model.StockStatus) error
	NextSequence(ctx context.Context, year int) (int, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderLineItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.OrderLineItem{}, "id = ?", itemID).Error
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderLineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Partner").
		Preload("Distributor").
		Preload("Client").
		Preload("Variables").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*model.OrderLineItem, error) {
	var item model.OrderLineItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit("Items", "Partner", "Distributor", "Client", "Variables").Save(order).Error
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next model.OrderStatus) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) UpdateItemsStockStatus(ctx context.Context, orderID uuid.UUID, status model.StockStatus) error {
	return GetDB(ctx, r.db).Model(&model.OrderLineItem{}).
		Where("order_id = ?", orderID).
		Update("stock_status", status).Error
}

// NextSequence derives the next per-year order sequence by parsing the
// numeric suffix of the highest existing order number for that year.
func (r *orderRepository) NextSequence(ctx context.Context, year int) (int, error) {
	prefix := "PCO-" + strconv.Itoa(year) + "-"

	var maxNumber string
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Select("COALESCE(MAX(order_number), '')").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, err
	}
	if maxNumber == "" {
		return 1, nil
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(maxNumber, prefix))
	if err != nil {
		return 1, nil
	}
	return seq + 1, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != nil {
		db = db.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.DistributorID != nil {
		db = db.Where("distributor_id = ?", filter.DistributorID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.
		Preload("Items").
		Preload("Client").
		Preload("Distributor").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
