package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sequenceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE orders (id TEXT PRIMARY KEY, order_number TEXT, deleted_at DATETIME)`).Error)
	return db
}

func seedOrderNumber(t *testing.T, db *gorm.DB, number string) {
	t.Helper()
	require.NoError(t, db.Exec(`INSERT INTO orders (id, order_number) VALUES (?, ?)`, uuid.NewString(), number).Error)
}

func TestNextSequenceFirstOrderOfYear(t *testing.T) {
	repo := NewOrderRepository(sequenceDB(t))

	seq, err := repo.NextSequence(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestNextSequenceFollowsHighestForYear(t *testing.T) {
	db := sequenceDB(t)
	repo := NewOrderRepository(db)

	seedOrderNumber(t, db, "PCO-2026-00001")
	seedOrderNumber(t, db, "PCO-2026-00007")
	seedOrderNumber(t, db, "PCO-2025-00042")

	seq, err := repo.NextSequence(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 8, seq)

	seq, err = repo.NextSequence(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 43, seq)
}
