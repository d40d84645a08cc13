package dish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	before := time.Now().UTC()
	names := []string{"Bisi Bele Bath", "Akki Rotti", "Mysore Pak", "Kesari Bath"}
	for _, n := range names {
		require.NoError(t, repo.Create(ctx, &Dish{CycleID: "c1", Name: n}))
	}
	after := time.Now().UTC()

	dishes, err := repo.ListByCycle(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, dishes, len(names))
	for i, d := range dishes {
		assert.Equal(t, names[i], d.Name)
		assert.False(t, d.CreatedAt.Before(before), "created_at is the real insert time")
		assert.False(t, d.CreatedAt.After(after), "created_at is the real insert time")
	}
}
