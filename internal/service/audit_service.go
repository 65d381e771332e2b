package service

import (
	"context"
	"errors"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"
	"vinobridge/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditService exposes the append-only activity trail.
type AuditService interface {
	OrderTimeline(ctx context.Context, orderID string) ([]model.ActivityLog, error)
	List(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error)
}

type auditService struct {
	activityRepo repository.ActivityRepository
	orderRepo    repository.OrderRepository
}

func NewAuditService(activityRepo repository.ActivityRepository, orderRepo repository.OrderRepository) AuditService {
	return &auditService{activityRepo: activityRepo, orderRepo: orderRepo}
}

func (s *auditService) OrderTimeline(ctx context.Context, orderID string) ([]model.ActivityLog, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperror.NotFound("order", orderID)
	}
	if _, err := s.orderRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order", orderID)
		}
		return nil, err
	}
	return s.activityRepo.ListByOrder(ctx, id)
}

func (s *auditService) List(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error) {
	return s.activityRepo.List(ctx, page, limit)
}
