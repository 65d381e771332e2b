package repository

import (
	"context"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PricingRepository interface {
	CreateSession(ctx context.Context, session *model.PricingSession) error
	FindSession(ctx context.Context, id uuid.UUID) (*model.PricingSession, error)
	SaveSession(ctx context.Context, session *model.PricingSession) error
	ListSessions(ctx context.Context, page, limit int) ([]model.PricingSession, int64, error)

	CreateVariables(ctx context.Context, vars *model.CalculationVariables) error
	LatestVersion(ctx context.Context, name string) (int, error)

	// ReplaceLineItems deletes every calculated snapshot for the session and
	// inserts the regenerated set; recalculation is never an incremental
	// patch.
	ReplaceLineItems(ctx context.Context, sessionID uuid.UUID, items []model.PricingLineItem) error
	ListLineItems(ctx context.Context, sessionID uuid.UUID) ([]model.PricingLineItem, error)
	FindLineItem(ctx context.Context, id uuid.UUID) (*model.PricingLineItem, error)
	SaveLineItem(ctx context.Context, item *model.PricingLineItem) error
}

type pricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) CreateSession(ctx context.Context, session *model.PricingSession) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *pricingRepository) FindSession(ctx context.Context, id uuid.UUID) (*model.PricingSession, error) {
	var session model.PricingSession
	if err := GetDB(ctx, r.db).Preload("Variables").First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *pricingRepository) SaveSession(ctx context.Context, session *model.PricingSession) error {
	return GetDB(ctx, r.db).Omit("Variables").Save(session).Error
}

func (r *pricingRepository) ListSessions(ctx context.Context, page, limit int) ([]model.PricingSession, int64, error) {
	var sessions []model.PricingSession
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.PricingSession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Variables").Order("created_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *pricingRepository) CreateVariables(ctx context.Context, vars *model.CalculationVariables) error {
	return GetDB(ctx, r.db).Create(vars).Error
}

func (r *pricingRepository) LatestVersion(ctx context.Context, name string) (int, error) {
	var version int
	err := GetDB(ctx, r.db).Model(&model.CalculationVariables{}).
		Where("name = ?", name).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

func (r *pricingRepository) ReplaceLineItems(ctx context.Context, sessionID uuid.UUID, items []model.PricingLineItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Delete(&model.PricingLineItem{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *pricingRepository) ListLineItems(ctx context.Context, sessionID uuid.UUID) ([]model.PricingLineItem, error) {
	var items []model.PricingLineItem
	if err := GetDB(ctx, r.db).
		Where("session_id = ?", sessionID).
		Order("row_index ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *pricingRepository) FindLineItem(ctx context.Context, id uuid.UUID) (*model.PricingLineItem, error) {
	var item model.PricingLineItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *pricingRepository) SaveLineItem(ctx context.Context, item *model.PricingLineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}
