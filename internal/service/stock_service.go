package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vinobridge/internal/model"
	"vinobridge/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationItem is one line the state machine asks the coordinator to
// hold against cellar stock.
type ReservationItem struct {
	ReferenceCode string
	ProductName   string
	QuantityCases int
	Source        model.StockSource
}

// StockReservationCoordinator pins and releases cellar inventory for an
// order. Both operations are idempotent: reserving twice never double
// counts, releasing an order holding nothing is a no-op.
type StockReservationCoordinator interface {
	Reserve(ctx context.Context, orderID uuid.UUID, orderType string, items []ReservationItem) error
	Release(ctx context.Context, orderID uuid.UUID, orderType string, reason string) error
}

type stockCoordinator struct {
	stockRepo repository.StockRepository
}

func NewStockReservationCoordinator(stockRepo repository.StockRepository) StockReservationCoordinator {
	return &stockCoordinator{stockRepo: stockRepo}
}

// Reserve holds cellar cases for every eligible line. Only cc_inventory
// sourced items with a resolvable reference code qualify; anything else is
// skipped silently; partner-sourced and manually sourced stock never
// touches the cellar.
func (c *stockCoordinator) Reserve(ctx context.Context, orderID uuid.UUID, orderType string, items []ReservationItem) error {
	existing, err := c.stockRepo.ActiveReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}
	held := make(map[string]bool, len(existing))
	for _, r := range existing {
		held[r.ReferenceCode] = true
	}

	for _, item := range items {
		if item.Source != model.SourceCCInventory || item.ReferenceCode == "" {
			continue
		}
		if held[item.ReferenceCode] {
			continue
		}

		inv, err := c.stockRepo.FindInventoryByCode(ctx, item.ReferenceCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Unresolvable code: not an error, the item just isn't eligible.
				continue
			}
			return fmt.Errorf("failed to resolve inventory %s: %w", item.ReferenceCode, err)
		}

		reservation := &model.StockReservation{
			OrderID:         orderID,
			OrderType:       orderType,
			InventoryItemID: inv.ID,
			ReferenceCode:   item.ReferenceCode,
			ProductName:     item.ProductName,
			Quantity:        item.QuantityCases,
		}
		if err := c.stockRepo.CreateReservation(ctx, reservation); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		if err := c.stockRepo.AdjustReserved(ctx, inv.ID, item.QuantityCases); err != nil {
			return fmt.Errorf("failed to adjust reserved stock: %w", err)
		}
	}

	return nil
}

// Release frees everything the order holds. Nothing held, nothing done.
func (c *stockCoordinator) Release(ctx context.Context, orderID uuid.UUID, orderType string, reason string) error {
	active, err := c.stockRepo.ActiveReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	for _, r := range active {
		if err := c.stockRepo.AdjustReserved(ctx, r.InventoryItemID, -r.Quantity); err != nil {
			return fmt.Errorf("failed to return reserved stock: %w", err)
		}
	}

	if err := c.stockRepo.ReleaseReservations(ctx, orderID, reason, time.Now()); err != nil {
		return fmt.Errorf("failed to release reservations: %w", err)
	}

	return nil
}
