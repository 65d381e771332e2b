package service

import (
	"context"
	"testing"
	"time"

	"vinobridge/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStockRepo struct {
	inventory    map[string]*model.InventoryItem
	reservations []model.StockReservation
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{inventory: map[string]*model.InventoryItem{}}
}

func (r *fakeStockRepo) addInventory(code string, onHand int) *model.InventoryItem {
	item := &model.InventoryItem{ID: uuid.New(), ReferenceCode: code, CasesOnHand: onHand}
	r.inventory[code] = item
	return item
}

func (r *fakeStockRepo) FindInventoryByCode(_ context.Context, code string) (*model.InventoryItem, error) {
	item, ok := r.inventory[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *fakeStockRepo) AdjustReserved(_ context.Context, id uuid.UUID, delta int) error {
	for _, item := range r.inventory {
		if item.ID == id {
			item.CasesReserved += delta
		}
	}
	return nil
}

func (r *fakeStockRepo) CreateReservation(_ context.Context, res *model.StockReservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	r.reservations = append(r.reservations, *res)
	return nil
}

func (r *fakeStockRepo) ActiveReservations(_ context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	var out []model.StockReservation
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.ReleasedAt == nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) ReleaseReservations(_ context.Context, orderID uuid.UUID, reason string, at time.Time) error {
	for i := range r.reservations {
		if r.reservations[i].OrderID == orderID && r.reservations[i].ReleasedAt == nil {
			released := at
			r.reservations[i].ReleasedAt = &released
			r.reservations[i].ReleaseReason = reason
		}
	}
	return nil
}

func TestReserveOnlyEligibleItems(t *testing.T) {
	repo := newFakeStockRepo()
	inv := repo.addInventory("1012316", 40)
	coord := NewStockReservationCoordinator(repo)
	orderID := uuid.New()

	err := coord.Reserve(context.Background(), orderID, orderTypePrivateClient, []ReservationItem{
		{ReferenceCode: "1012316", ProductName: "Opus One", QuantityCases: 3, Source: model.SourceCCInventory},
		{ReferenceCode: "9999999", ProductName: "Unknown Code", QuantityCases: 1, Source: model.SourceCCInventory},
		{ReferenceCode: "1012317", ProductName: "Air Freight", QuantityCases: 2, Source: model.SourcePartnerAirfreight},
		{ReferenceCode: "", ProductName: "No Code", QuantityCases: 1, Source: model.SourceCCInventory},
	})
	require.NoError(t, err)

	require.Len(t, repo.reservations, 1)
	assert.Equal(t, "1012316", repo.reservations[0].ReferenceCode)
	assert.Equal(t, 3, repo.reservations[0].Quantity)
	assert.Equal(t, 3, inv.CasesReserved)
}

func TestReserveIsIdempotent(t *testing.T) {
	repo := newFakeStockRepo()
	inv := repo.addInventory("1012316", 40)
	coord := NewStockReservationCoordinator(repo)
	orderID := uuid.New()

	items := []ReservationItem{
		{ReferenceCode: "1012316", ProductName: "Opus One", QuantityCases: 3, Source: model.SourceCCInventory},
	}
	require.NoError(t, coord.Reserve(context.Background(), orderID, orderTypePrivateClient, items))
	require.NoError(t, coord.Reserve(context.Background(), orderID, orderTypePrivateClient, items))

	assert.Len(t, repo.reservations, 1)
	assert.Equal(t, 3, inv.CasesReserved)
}

func TestReleaseReturnsCases(t *testing.T) {
	repo := newFakeStockRepo()
	inv := repo.addInventory("1012316", 40)
	coord := NewStockReservationCoordinator(repo)
	orderID := uuid.New()

	require.NoError(t, coord.Reserve(context.Background(), orderID, orderTypePrivateClient, []ReservationItem{
		{ReferenceCode: "1012316", ProductName: "Opus One", QuantityCases: 3, Source: model.SourceCCInventory},
	}))
	require.Equal(t, 3, inv.CasesReserved)

	require.NoError(t, coord.Release(context.Background(), orderID, orderTypePrivateClient, "order cancelled"))
	assert.Equal(t, 0, inv.CasesReserved)
	require.NotNil(t, repo.reservations[0].ReleasedAt)
	assert.Equal(t, "order cancelled", repo.reservations[0].ReleaseReason)

	// Releasing again finds nothing active and does nothing.
	require.NoError(t, coord.Release(context.Background(), orderID, orderTypePrivateClient, "again"))
	assert.Equal(t, 0, inv.CasesReserved)
	assert.Equal(t, "order cancelled", repo.reservations[0].ReleaseReason)
}
