package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryHealthCheckAll(t *testing.T) {
	r := NewRegistry()
	down := errors.New("connection refused")
	r.Register("storage", NewCheckFunc("memory", func(context.Context) error { return nil }))
	r.Register("drafts", NewCheckFunc("redis", func(context.Context) error { return down }))

	require.Equal(t, []string{"drafts", "storage"}, r.List())
	require.Equal(t, "redis", r.Get("drafts").Type())

	results := r.HealthCheckAll(context.Background())
	require.NoError(t, results["storage"])
	require.ErrorIs(t, results["drafts"], down)
	require.False(t, Healthy(results))

	r.Unregister("drafts")
	require.True(t, Healthy(r.HealthCheckAll(context.Background())))
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	r.Register("a", NewCheckFunc("memory", func(context.Context) error { return nil }))

	require.NoError(t, r.CloseAll())
	require.Empty(t, r.List())
	require.Nil(t, r.Get("a"))
}
