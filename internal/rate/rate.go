// Package rate stores the current USD to LBP exchange rate per merchant.
// Only the latest value is kept; Get falls back to a configured default for
// merchants that never set one.
package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cedarpos/backend/internal/money"
	"github.com/cedarpos/backend/internal/obs"
)

// Service reads and writes merchant exchange rates.
type Service struct {
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	CacheTTL    time.Duration
	DefaultRate float64
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func cacheKey(merchantID uuid.UUID) string {
	return "rate:" + merchantID.String()
}

// Get returns the merchant's current rate, preferring cache over DB and the
// configured default over an absent row.
func (s *Service) Get(ctx context.Context, merchantID uuid.UUID) (money.ExchangeRate, error) {
	if s.Redis != nil {
		data, err := s.Redis.Get(ctx, cacheKey(merchantID)).Bytes()
		if err == nil {
			var cached money.ExchangeRate
			if json.Unmarshal(data, &cached) == nil && cached.Validate() == nil {
				return cached, nil
			}
		}
	}

	var rate money.ExchangeRate
	err := s.Pool.QueryRow(ctx, `
		SELECT usd_to_lbp, updated_at
		FROM merchant_exchange_rates
		WHERE merchant_id = $1
	`, merchantID).Scan(&rate.USDToLBP, &rate.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		rate = money.ExchangeRate{USDToLBP: s.DefaultRate, AsOf: s.now()}
		err = nil
	}
	if err != nil {
		return money.ExchangeRate{}, fmt.Errorf("get exchange rate: %w", err)
	}
	if err := rate.Validate(); err != nil {
		return money.ExchangeRate{}, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(rate); err == nil {
			_ = s.Redis.Set(ctx, cacheKey(merchantID), data, s.CacheTTL).Err()
		}
	}
	return rate, nil
}

// Set upserts the merchant's rate and drops the cached value so the next read
// observes it.
func (s *Service) Set(ctx context.Context, merchantID uuid.UUID, usdToLBP float64) (money.ExchangeRate, error) {
	rate := money.ExchangeRate{USDToLBP: usdToLBP, AsOf: s.now()}
	if err := rate.Validate(); err != nil {
		return money.ExchangeRate{}, err
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO merchant_exchange_rates (merchant_id, usd_to_lbp, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (merchant_id)
		DO UPDATE SET usd_to_lbp = EXCLUDED.usd_to_lbp, updated_at = EXCLUDED.updated_at
	`, merchantID, rate.USDToLBP, rate.AsOf)
	if err != nil {
		return money.ExchangeRate{}, fmt.Errorf("set exchange rate: %w", err)
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, cacheKey(merchantID)).Err()
	}
	if obs.ExchangeRateUpdatesTotal != nil {
		obs.ExchangeRateUpdatesTotal.Inc()
	}
	return rate, nil
}
