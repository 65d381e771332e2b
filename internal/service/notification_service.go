package service

import (
	"context"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"
)

// NotificationService exposes the read side of the async pipeline: the
// recipient's in-app notifications and the invoices the dispatcher wrote.
type NotificationService interface {
	ListForActor(ctx context.Context, actor Actor, page, limit int) ([]model.Notification, int64, error)
	ListInvoices(ctx context.Context, page, limit int) ([]model.Invoice, int64, error)
}

type notificationService struct {
	eventRepo repository.EventRepository
}

func NewNotificationService(eventRepo repository.EventRepository) NotificationService {
	return &notificationService{eventRepo: eventRepo}
}

func (s *notificationService) ListForActor(ctx context.Context, actor Actor, page, limit int) ([]model.Notification, int64, error) {
	return s.eventRepo.ListNotifications(ctx, actor.ID, page, limit)
}

func (s *notificationService) ListInvoices(ctx context.Context, page, limit int) ([]model.Invoice, int64, error) {
	return s.eventRepo.ListInvoices(ctx, page, limit)
}
