package service

import (
	"context"
	"testing"

	"sherise/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplore_ListJoinsOwnersAndMarks(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExploreService(env.store, env.bus, env.catalog, env.profiles())
	ctx := context.Background()

	liked, err := svc.ToggleLike(ctx, 1, "3")
	require.NoError(t, err)
	assert.True(t, liked)
	saved, err := svc.ToggleSave(ctx, 1, "1")
	require.NoError(t, err)
	assert.True(t, saved)

	cards := svc.List(ctx, 1)
	require.Len(t, cards, 3)
	require.NotNil(t, cards[0].Owner)
	assert.Equal(t, "Asha Rao", cards[0].Owner.Name)
	assert.True(t, cards[0].Saved)
	assert.False(t, cards[0].Liked)
	assert.True(t, cards[2].Liked)

	for _, c := range svc.List(ctx, 2) {
		assert.False(t, c.Liked || c.Saved, "marks are per user")
	}

	liked, err = svc.ToggleLike(ctx, 1, "3")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = svc.ToggleSave(ctx, 1, "")
	assert.Equal(t, 400, models.StatusFor(err))
}
