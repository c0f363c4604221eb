package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/infrastructure/storage"
	"ContentPipeline/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("DATABASE_DRIVER", storage.DriverSQLite)
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.Publishing.Telegram.Enabled = true
	cfg.Publishing.Telegram.BotToken = "123:abc"
	cfg.Publishing.Telegram.ChatID = "@pipeline"
	return cfg
}

func TestNewWiresStorageAndPlatforms(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, []domain.Platform{domain.PlatformTelegram}, a.Dispatcher().Platforms())

	due, err := storage.NewSourceRepository(a.db).FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, len(cfg.Sources))

	// a restart keeps one row per configured source
	again, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })
	due, err = storage.NewSourceRepository(again.db).FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, len(cfg.Sources))
}

func TestRunReturnsAfterCancel(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewRejectsBadCadence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Crawl = "every three hours"

	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
