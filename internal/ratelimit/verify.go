package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/stonebridge/membergate/internal/config"
)

const keyAccessVerify = "access:verify:%s"

// VerifyLimiter throttles access verification attempts per client address to
// slow credential enumeration. When disabled the constructor returns nil and
// every check passes.
type VerifyLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewVerifyLimiter(cfg config.Config) (*VerifyLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.VerifyRate <= 0 || limitCfg.VerifyBurst <= 0 {
		return nil, errors.New("verify rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   limitCfg.RedisDB,
	})

	return &VerifyLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.VerifyRate,
		burst:   limitCfg.VerifyBurst,
	}, nil
}

func (l *VerifyLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *VerifyLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAccessVerify, strings.TrimSpace(clientIP)), l.rate, l.burst)
}
