package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	var got entry
	assert.ErrorIs(t, c.Get(ctx, "acme", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "acme", entry{Name: "Acme", Colors: []string{"#ff0000"}}, 0))
	require.NoError(t, c.Get(ctx, "acme", &got))
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"#ff0000"}, got.Colors)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "x"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got entry
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}
