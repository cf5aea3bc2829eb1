package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/config"
)

func TestNewPostgresWithoutDSN(t *testing.T) {
	// No DSN yields a connection-less wrapper, not an error. Binaries that
	// need the pool must check PoolHandle before use.
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, pg)
	assert.Nil(t, pg.PoolHandle())
	assert.NotPanics(t, pg.Close)
}

func TestNewPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{
		DSN: "://not-a-dsn",
	}, zap.NewNop())
	require.Error(t, err)
}
