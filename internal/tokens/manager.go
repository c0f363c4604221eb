// Package tokens keeps platform credentials and serializes their refresh.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// RefreshFunc exchanges a stale token for a fresh one.
type RefreshFunc func(ctx context.Context, stale domain.Token) (domain.Token, error)

// Manager reads tokens from a store and refreshes them at most once per
// platform at a time. A caller holding a token that another caller already
// replaced receives the replacement without a second refresh.
type Manager struct {
	store  ports.TokenStore
	group  singleflight.Group
	logger *slog.Logger
}

// NewManager wraps store.
func NewManager(store ports.TokenStore, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Seed stores token unless the platform already has one.
func (m *Manager) Seed(ctx context.Context, token domain.Token) error {
	if token.Empty() {
		return nil
	}
	_, err := m.store.Get(ctx, token.Platform)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return m.store.Put(ctx, token)
	default:
		return fmt.Errorf("seed %s token: %w", token.Platform, err)
	}
}

// Put replaces the stored token of token.Platform, for example after an
// authorization-code exchange.
func (m *Manager) Put(ctx context.Context, token domain.Token) error {
	if token.Empty() {
		return domain.ConfigurationError("%s token is empty", token.Platform)
	}
	if err := m.store.Put(ctx, token); err != nil {
		return fmt.Errorf("store %s token: %w", token.Platform, err)
	}
	return nil
}

// Current returns the stored token of platform.
func (m *Manager) Current(ctx context.Context, platform domain.Platform) (domain.Token, error) {
	token, err := m.store.Get(ctx, platform)
	if err != nil {
		return domain.Token{}, fmt.Errorf("load %s token: %w", platform, err)
	}
	return token, nil
}

// Refresh replaces stale via refresh, unless the stored token already differs
// from stale, in which case the stored one is returned.
func (m *Manager) Refresh(ctx context.Context, stale domain.Token, refresh RefreshFunc) (domain.Token, error) {
	v, err, shared := m.group.Do(string(stale.Platform), func() (any, error) {
		current, err := m.store.Get(ctx, stale.Platform)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Token{}, fmt.Errorf("load %s token: %w", stale.Platform, err)
		}
		if err == nil && !current.Empty() && current.AccessToken != stale.AccessToken {
			return current, nil
		}
		if current.Empty() {
			current = stale
		}

		fresh, err := refresh(ctx, current)
		if err != nil {
			return domain.Token{}, fmt.Errorf("refresh %s token: %w", stale.Platform, err)
		}
		fresh.Platform = stale.Platform
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = current.RefreshToken
		}
		if err := m.store.Put(ctx, fresh); err != nil {
			return domain.Token{}, fmt.Errorf("store %s token: %w", stale.Platform, err)
		}
		if m.logger != nil {
			m.logger.Info("token refreshed", "platform", stale.Platform, "expiry", fresh.Expiry)
		}
		return fresh, nil
	})
	if err != nil {
		return domain.Token{}, err
	}
	if shared && m.logger != nil {
		m.logger.Debug("token refresh shared", "platform", stale.Platform)
	}
	return v.(domain.Token), nil
}
