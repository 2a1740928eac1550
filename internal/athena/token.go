package athena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pafrisco/clinic-booking/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenTTL  = 5 * time.Minute
	defaultTokenSkew = time.Minute
)

// TokenCache shares an access token between processes. Implementations
// return ErrCacheMiss when nothing usable is stored. Delete removes the entry
// only while it still holds token.
type TokenCache interface {
	Get(ctx context.Context) (token string, expiresAt time.Time, err error)
	Set(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
}

// TokenProviderConfig configures the client-credentials exchange.
type TokenProviderConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Skew         time.Duration // refresh this long before expiry
	Timeout      time.Duration
	HTTPClient   *http.Client
	Cache        TokenCache // optional
	Logger       *logging.Logger
}

// TokenProvider hands out a cached bearer token and refreshes it lazily
// once it is within Skew of expiry (or half its lifetime for short-lived
// tokens). Concurrent refreshes collapse into a single request.
type TokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	skew         time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	cache        TokenCache
	logger       *logging.Logger
	now          func() time.Time

	mu        sync.RWMutex
	token     string
	refreshAt time.Time
	rejected  string

	group singleflight.Group
}

// NewTokenProvider validates cfg and builds a provider.
func NewTokenProvider(cfg TokenProviderConfig) (*TokenProvider, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("athena: TokenURL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("athena: ClientID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("athena: ClientSecret is required")
	}
	if cfg.Skew <= 0 {
		cfg.Skew = defaultTokenSkew
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &TokenProvider{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		skew:         cfg.Skew,
		timeout:      cfg.Timeout,
		httpClient:   cfg.HTTPClient,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// Token returns a valid bearer token, fetching a new one if needed.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	// The refresh runs detached from any single caller so that one caller
	// giving up does not fail everyone waiting on the same flight.
	ch := p.group.DoChan("token", func() (any, error) {
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return p.refresh(refreshCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &AuthError{Err: ctx.Err()}
	}
}

// Invalidate discards token after the API rejected it. The shared cache
// entry is removed too if it still holds the same token, and a rejected
// token read back from the cache is never reused.
func (p *TokenProvider) Invalidate(ctx context.Context, token string) {
	p.mu.Lock()
	if token == "" {
		token = p.token
	}
	if token == p.token {
		p.token = ""
		p.refreshAt = time.Time{}
	}
	p.rejected = token
	p.mu.Unlock()

	if p.cache == nil || token == "" {
		return
	}
	if err := p.cache.Delete(ctx, token); err != nil {
		p.logger.Warn("athena token cache delete failed", "error", err)
	}
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token != "" && p.now().Before(p.refreshAt) {
		return p.token, true
	}
	return "", false
}

func (p *TokenProvider) isRejected(token string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rejected != "" && p.rejected == token
}

// store keeps token until skew before expiry, clamped to half the remaining
// lifetime.
func (p *TokenProvider) store(token string, expiresAt time.Time) {
	skew := p.skew
	if half := expiresAt.Sub(p.now()) / 2; half < skew {
		skew = half
	}
	p.mu.Lock()
	p.token = token
	p.refreshAt = expiresAt.Add(-skew)
	p.mu.Unlock()
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "athena.token.refresh")
	defer span.End()

	if p.cache != nil {
		tok, exp, err := p.cache.Get(ctx)
		switch {
		case err == nil && tok != "" && !p.isRejected(tok) && p.now().Add(p.skew).Before(exp):
			span.SetAttributes(attribute.Bool("athena.token.shared_cache_hit", true))
			p.store(tok, exp)
			return tok, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			p.logger.Warn("athena token cache read failed", "error", err)
		}
	}

	tok, exp, err := p.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token fetch failed")
		return "", err
	}
	p.store(tok, exp)

	if p.cache != nil {
		if err := p.cache.Set(ctx, tok, exp); err != nil {
			p.logger.Warn("athena token cache write failed", "error", err)
		}
	}
	p.logger.Debug("athena token refreshed", "expires_at", exp)
	return tok, nil
}

func (p *TokenProvider) fetch(ctx context.Context) (string, time.Time, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", p.clientID)
	data.Set("client_secret", p.clientSecret)
	if p.scope != "" {
		data.Set("scope", p.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", time.Time{}, &AuthError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, &AuthError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", time.Time{}, &AuthError{StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, &AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, &AuthError{StatusCode: resp.StatusCode, Err: ErrMalformedResponse}
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(string(tr.ExpiresIn)); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	return tr.AccessToken, p.now().Add(ttl), nil
}
