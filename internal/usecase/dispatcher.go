package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/logging"
	"ContentPipeline/internal/ports"
	"ContentPipeline/internal/tokens"
)

// Authorizer is implemented by publishers that support the OAuth authorization-code flow.
type Authorizer interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (domain.Token, error)
}

// Dispatcher publishes articles to platforms at most once per (content, platform).
type Dispatcher struct {
	postings   ports.PostingRepository
	tokens     *tokens.Manager
	publishers map[domain.Platform]ports.Publisher
	order      []domain.Platform
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher registers publishers in the given order. A later publisher
// for the same platform replaces the earlier one.
func NewDispatcher(postings ports.PostingRepository, manager *tokens.Manager, logger *slog.Logger, publishers ...ports.Publisher) *Dispatcher {
	d := &Dispatcher{
		postings:   postings,
		tokens:     manager,
		publishers: map[domain.Platform]ports.Publisher{},
		logger:     logger,
		now:        time.Now,
	}
	for _, p := range publishers {
		if p == nil {
			continue
		}
		if _, exists := d.publishers[p.Platform()]; !exists {
			d.order = append(d.order, p.Platform())
		}
		d.publishers[p.Platform()] = p
	}
	return d
}

// Platforms lists registered platforms in registration order.
func (d *Dispatcher) Platforms() []domain.Platform {
	return append([]domain.Platform(nil), d.order...)
}

// Publish posts content to platform. An existing history row short-circuits
// with OutcomeAlreadyPosted. A rejected token is refreshed once before posting.
// Nothing is recorded unless the platform accepted the post.
func (d *Dispatcher) Publish(ctx context.Context, platform domain.Platform, content domain.Content) (domain.PublishOutcome, error) {
	pub, ok := d.publishers[platform]
	if !ok {
		return domain.OutcomeFailed, domain.ConfigurationError("platform %s is not registered", platform)
	}
	if content.ID == 0 {
		return domain.OutcomeFailed, fmt.Errorf("publish to %s: content has no id", platform)
	}
	log := d.log().With("platform", platform, "content_id", content.ID)

	posted, err := d.postings.Exists(ctx, content.ID, platform)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("check posting history: %w", err)
	}
	if posted {
		log.Debug("content already posted")
		return domain.OutcomeAlreadyPosted, nil
	}

	token, err := d.token(ctx, pub)
	if err != nil {
		log.Warn("no usable token", "error", err)
		return domain.OutcomeFailed, err
	}

	result, err := pub.Publish(ctx, token, content)
	if err != nil {
		log.Warn("publish failed", "error", err)
		return domain.OutcomeFailed, fmt.Errorf("publish to %s: %w", platform, err)
	}

	inserted, err := d.postings.Record(ctx, domain.SocialPostingHistory{
		ContentID: content.ID,
		Platform:  platform,
		PostID:    result.PostID,
		PostURL:   result.URL,
		PostedAt:  d.now().UTC(),
	})
	if err != nil {
		log.Error("post accepted but history not recorded", "post_id", result.PostID, "error", err)
		return domain.OutcomePosted, fmt.Errorf("record posting history: %w", err)
	}
	if !inserted {
		log.Warn("posting history already recorded by a concurrent publish", "post_id", result.PostID)
		return domain.OutcomeAlreadyPosted, nil
	}

	log.Info("content posted", "post_id", result.PostID, "url", result.URL)
	return domain.OutcomePosted, nil
}

// PublishAll publishes content to every registered platform. A failure on one
// platform does not affect the others.
func (d *Dispatcher) PublishAll(ctx context.Context, content domain.Content) map[domain.Platform]domain.PublishOutcome {
	outcomes := make(map[domain.Platform]domain.PublishOutcome, len(d.order))
	for _, platform := range d.order {
		outcome, err := d.Publish(ctx, platform, content)
		if err != nil {
			d.log().Warn("platform publish failed", "platform", platform, "content_id", content.ID, "error", err)
		}
		outcomes[platform] = outcome
	}
	return outcomes
}

// AuthorizationURL returns the consent page of platform.
func (d *Dispatcher) AuthorizationURL(platform domain.Platform, state string) (string, error) {
	auth, err := d.authorizer(platform)
	if err != nil {
		return "", err
	}
	return auth.AuthorizationURL(state), nil
}

// ExchangeCode completes an authorization and stores the resulting token.
func (d *Dispatcher) ExchangeCode(ctx context.Context, platform domain.Platform, code string) (domain.Token, error) {
	auth, err := d.authorizer(platform)
	if err != nil {
		return domain.Token{}, err
	}
	token, err := auth.ExchangeCode(ctx, code)
	if err != nil {
		return domain.Token{}, fmt.Errorf("exchange %s code: %w", platform, err)
	}
	token.Platform = platform
	if err := d.tokens.Put(ctx, token); err != nil {
		return domain.Token{}, err
	}
	return token, nil
}

func (d *Dispatcher) authorizer(platform domain.Platform) (Authorizer, error) {
	pub, ok := d.publishers[platform]
	if !ok {
		return nil, domain.ConfigurationError("platform %s is not registered", platform)
	}
	auth, ok := pub.(Authorizer)
	if !ok {
		return nil, domain.ConfigurationError("platform %s does not support authorization codes", platform)
	}
	return auth, nil
}

// token returns a token that passed the platform probe, refreshing it once if needed.
func (d *Dispatcher) token(ctx context.Context, pub ports.Publisher) (domain.Token, error) {
	platform := pub.Platform()
	token, err := d.tokens.Current(ctx, platform)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Token{}, err
	}
	if err == nil {
		probeErr := pub.ValidateToken(ctx, token)
		if probeErr == nil {
			return token, nil
		}
		d.log().Info("token probe failed, refreshing", "platform", platform, "error", probeErr)
	} else {
		token = domain.Token{Platform: platform}
	}

	return d.tokens.Refresh(ctx, token, pub.RefreshToken)
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger == nil {
		return logging.Discard()
	}
	return d.logger
}
