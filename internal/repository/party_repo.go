package repository

import (
	"context"
	"time"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartyRepository interface {
	CreateClient(ctx context.Context, client *model.Client) error
	FindClient(ctx context.Context, id uuid.UUID) (*model.Client, error)
	// MarkClientVerified stamps the external-verification timestamp only when
	// it is still absent; repeat calls are no-ops.
	MarkClientVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	FindDistributor(ctx context.Context, id uuid.UUID) (*model.Distributor, error)
	FindDistributorByUser(ctx context.Context, userID uuid.UUID) (*model.Distributor, error)
}

type partyRepository struct {
	db *gorm.DB
}

func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

func (r *partyRepository) CreateClient(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *partyRepository) FindClient(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *partyRepository) MarkClientVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Client{}).
		Where("id = ? AND externally_verified_at IS NULL", id).
		Update("externally_verified_at", at).Error
}

func (r *partyRepository) FindDistributor(ctx context.Context, id uuid.UUID) (*model.Distributor, error) {
	var d model.Distributor
	if err := GetDB(ctx, r.db).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *partyRepository) FindDistributorByUser(ctx context.Context, userID uuid.UUID) (*model.Distributor, error) {
	var d model.Distributor
	if err := GetDB(ctx, r.db).First(&d, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
