package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // clinic timezone lookups in minimal containers

	"github.com/redis/go-redis/v9"

	"github.com/pafrisco/clinic-booking/internal/athena"
	appconfig "github.com/pafrisco/clinic-booking/internal/config"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, token cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildAthenaClient wires the token provider (with the shared Redis cache when
// available) and the sandbox resource client.
func BuildAthenaClient(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*athena.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	tokenCfg := athena.TokenProviderConfig{
		TokenURL:     cfg.AthenaTokenURL,
		ClientID:     cfg.AthenaClientID,
		ClientSecret: cfg.AthenaClientSecret,
		Scope:        cfg.AthenaScope,
		Skew:         cfg.TokenRefreshSkew,
		Timeout:      cfg.RemoteTimeout,
		Logger:       logger,
	}
	if redisClient != nil {
		tokenCfg.Cache = athena.NewRedisTokenCache(redisClient, cfg.AthenaClientID)
		logger.Info("athena token cache enabled", "backend", "redis")
	}
	tokens, err := athena.NewTokenProvider(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: token provider: %w", err)
	}

	client, err := athena.New(athena.Config{
		BaseURL:    cfg.AthenaBaseURL,
		PracticeID: cfg.AthenaPracticeID,
		Timeout:    cfg.RemoteTimeout,
		Logger:     logger,
	}, tokens)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: athena client: %w", err)
	}
	return client, nil
}

// ClinicLocation resolves the display timezone for confirmations, falling back
// to UTC when the name is unknown.
func ClinicLocation(name string, logger *logging.Logger) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if logger != nil {
			logger.Warn("unknown clinic timezone, using UTC", "timezone", name, "error", err)
		}
		return time.UTC
	}
	return loc
}
