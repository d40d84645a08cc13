package zone

import (
	"context"
	"testing"

	"dotted/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateValidates(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepository())

	_, err := s.Create(ctx, CreateInput{Slug: "Bad Slug!", Name: "X", City: "Y"})
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = s.Create(ctx, CreateInput{Slug: "mission", Name: "Mission", City: "SF", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, core.ErrInvalid)

	z, err := s.Create(ctx, CreateInput{Slug: "mission", Name: "Mission", City: "SF", Timezone: "America/Los_Angeles"})
	require.NoError(t, err)
	assert.True(t, z.Active)
	assert.Equal(t, 3.0, z.RadiusKm)
	assert.Equal(t, "America/Los_Angeles", z.Location().String())

	_, err = s.Create(ctx, CreateInput{Slug: "mission", Name: "Other", City: "SF"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestJoinReplacesMembership(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepository())

	a, err := s.Create(ctx, CreateInput{Slug: "a", Name: "A", City: "C"})
	require.NoError(t, err)
	b, err := s.Create(ctx, CreateInput{Slug: "b", Name: "B", City: "C"})
	require.NoError(t, err)

	_, err = s.Join(ctx, "u1", a.ID)
	require.NoError(t, err)
	ok, err := s.IsMember(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Join(ctx, "u1", b.ID)
	require.NoError(t, err)
	ok, _ = s.IsMember(ctx, "u1", a.ID)
	assert.False(t, ok, "joining b leaves a")
	ok, _ = s.IsMember(ctx, "u1", b.ID)
	assert.True(t, ok)

	n, err := s.MemberCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Leave(ctx, "u1", b.ID))
	ok, _ = s.IsMember(ctx, "u1", b.ID)
	assert.False(t, ok)

	_, err = s.Join(ctx, "u1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
