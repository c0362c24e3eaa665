package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/storefront/internal/core/domain"
)

var (
	ErrNotFound  = errors.New("catalog: not found")
	ErrMalformed = errors.New("catalog: malformed response")
)

const maxBodySize = 1 << 20

type Options struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 10 * time.Second
	}
	return o
}

// Client reads products and stock from the catalog backend. Concurrent
// identical requests share one round trip and repeated failures open a
// circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	group   singleflight.Group
	logger  *zap.Logger
}

func NewClient(baseURL string, opts Options, logger *zap.Logger) *Client {
	opts = opts.withDefaults()

	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: product %d", ErrMalformed, p.ID)
		}
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	if err := c.getJSON(ctx, "/products/"+strconv.FormatInt(id, 10), &p); err != nil {
		return domain.Product{}, err
	}
	if p.ID != id || !p.Valid() {
		return domain.Product{}, fmt.Errorf("%w: product %d", ErrMalformed, id)
	}
	return p, nil
}

func (c *Client) Stocks(ctx context.Context) ([]domain.Stock, error) {
	var stocks []domain.Stock
	if err := c.getJSON(ctx, "/stock", &stocks); err != nil {
		return nil, err
	}
	for _, s := range stocks {
		if s.ID <= 0 || s.Amount < 0 {
			return nil, fmt.Errorf("%w: stock %d", ErrMalformed, s.ID)
		}
	}
	return stocks, nil
}

func (c *Client) Stock(ctx context.Context, id int64) (domain.Stock, error) {
	var s domain.Stock
	if err := c.getJSON(ctx, "/stock/"+strconv.FormatInt(id, 10), &s); err != nil {
		return domain.Stock{}, err
	}
	if s.ID != id || s.Amount < 0 {
		return domain.Stock{}, fmt.Errorf("%w: stock %d", ErrMalformed, id)
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

// get returns as soon as the caller's ctx is done. The shared fetch runs
// detached from any single caller so one disconnect cannot fail the others,
// and is bounded by the http.Client timeout.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := c.group.DoChan(path, func() (any, error) {
		return c.breaker.Execute(func() ([]byte, error) {
			return c.fetch(context.WithoutCancel(ctx), path)
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("shared catalog lookup", zap.String("path", path))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}
