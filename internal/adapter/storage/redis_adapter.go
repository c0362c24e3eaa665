package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	stockKeyPrefix = "stock:"
	scanBatch      = 100
)

// RedisAdapter stores the cart slot and the stock mirror.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID int64, amount int) error {
	return r.client.Set(ctx, stockKey(productID), amount, 0).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, productID int64) (*domain.Stock, error) {
	amount, err := r.client.Get(ctx, stockKey(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get stock %d: %w", productID, err)
	}
	return &domain.Stock{ID: productID, Amount: amount}, nil
}

// ListStock returns every mirrored stock entry ordered by product id.
func (r *RedisAdapter) ListStock(ctx context.Context) ([]domain.Stock, error) {
	var stocks []domain.Stock

	iter := r.client.Scan(ctx, 0, stockKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := strconv.ParseInt(strings.TrimPrefix(key, stockKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		stock, err := r.GetStock(ctx, id)
		if err != nil {
			return nil, err
		}
		if stock != nil {
			stocks = append(stocks, *stock)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan stock: %w", err)
	}

	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
	return stocks, nil
}

func stockKey(productID int64) string {
	return stockKeyPrefix + strconv.FormatInt(productID, 10)
}
