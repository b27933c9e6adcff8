package restclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/eloverblik-exporter/cache"
	"github.com/angas/eloverblik-exporter/metrics"
	"github.com/angas/eloverblik-exporter/types/maybe"
	"golang.org/x/sync/singleflight"
)

// Authorizer returns the value of the Authorization header for a request.
type Authorizer interface {
	Authorization(ctx context.Context) (string, error)
}

// StaticBearer authorizes with a fixed credential, e.g. a refresh token.
type StaticBearer string

func (b StaticBearer) Authorization(_ context.Context) (string, error) {
	return "Bearer " + string(b), nil
}

type AccessToken string

// ExchangeFunc trades the configured refresh credential for a new access token.
type ExchangeFunc func(ctx context.Context) (AccessToken, error)

type TokenState int

const (
	TokenUncached TokenState = iota // no cache, every request exchanges
	TokenCold                       // cache without a valid entry
	TokenWarm                       // cached and unexpired
)

func (s TokenState) String() string {
	switch s {
	case TokenUncached:
		return "uncached"
	case TokenCold:
		return "cold"
	case TokenWarm:
		return "warm"
	default:
		return "unknown"
	}
}

type TokenManagerOptions struct {
	Service  string
	CacheKey string
	// Cache is optional. Without it a token is exchanged for every request.
	Cache cache.Cache[AccessToken]
	// Coalesce makes concurrent callers that find the cache cold share one
	// exchange. Off by default, in which case each of them exchanges and the
	// last write to the cache wins.
	Coalesce bool
}

// TokenManager owns the access token of one client. The token itself never
// leaves the manager, callers only get a header value.
type TokenManager struct {
	logger   *slog.Logger
	service  string
	key      string
	cache    cache.Cache[AccessToken]
	exchange ExchangeFunc
	group    *singleflight.Group
}

func NewTokenManager(logger *slog.Logger, exchange ExchangeFunc, opts TokenManagerOptions) *TokenManager {
	m := &TokenManager{
		logger:   logger,
		service:  opts.Service,
		key:      opts.CacheKey,
		cache:    opts.Cache,
		exchange: exchange,
	}
	if m.key == "" {
		m.key = opts.Service + "-access-token"
	}
	if opts.Coalesce {
		m.group = &singleflight.Group{}
	}
	return m
}

func (m *TokenManager) Authorization(ctx context.Context) (string, error) {
	token, err := m.token(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + string(token), nil
}

func (m *TokenManager) State() (TokenState, error) {
	if m.cache == nil {
		return TokenUncached, nil
	}
	expired, err := m.cache.HasExpired(m.key)
	if err != nil {
		return TokenCold, fmt.Errorf("checking cached token: %w", err)
	}
	if expired {
		return TokenCold, nil
	}
	return TokenWarm, nil
}

func (m *TokenManager) token(ctx context.Context) (AccessToken, error) {
	state, err := m.State()
	if err != nil {
		return "", err
	}

	switch state {
	case TokenUncached:
		return m.doExchange(ctx)

	case TokenWarm:
		cached, err := m.cache.Get(m.key)
		if err != nil {
			return "", fmt.Errorf("reading cached token: %w", err)
		}
		if token, ok := cached.Get(); ok {
			metrics.TokenCacheHitsTotal.WithLabelValues(m.service).Inc()
			return token, nil
		}
	}

	if m.group == nil {
		return m.refresh(ctx)
	}

	v, err, shared := m.group.Do(m.key, func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		m.logger.Debug("shared token refresh with concurrent caller")
	}
	return v.(AccessToken), nil
}

func (m *TokenManager) refresh(ctx context.Context) (AccessToken, error) {
	token, err := m.doExchange(ctx)
	if err != nil {
		return "", err
	}

	// The exchange response has no lifetime, so the cache's default TTL decides
	if err := m.cache.Put(m.key, token, maybe.None[time.Time]()); err != nil {
		return "", fmt.Errorf("caching access token: %w", err)
	}
	m.logger.Debug("access token refreshed and cached", slog.String("key", m.key))
	return token, nil
}

func (m *TokenManager) doExchange(ctx context.Context) (AccessToken, error) {
	token, err := m.exchange(ctx)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues(m.service, "failure").Inc()
		return "", fmt.Errorf("exchanging refresh token: %w", err)
	}
	metrics.TokenExchangesTotal.WithLabelValues(m.service, "success").Inc()
	return token, nil
}
