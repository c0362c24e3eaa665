package handler

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/port"
)

// CatalogHandler is the mock catalog backend. Products come from the
// repository, stock from the stock cache.
type CatalogHandler struct {
	products    port.CatalogRepository
	stock       port.StockCache
	latency     time.Duration
	failureRate float64
	random      func() float64
	logger      *zap.Logger
}

type CatalogOption func(*CatalogHandler)

// WithSimulatedLatency delays every response by d.
func WithSimulatedLatency(d time.Duration) CatalogOption {
	return func(h *CatalogHandler) { h.latency = d }
}

// WithSimulatedFailures fails the given fraction of requests with 503.
func WithSimulatedFailures(rate float64, random func() float64) CatalogOption {
	return func(h *CatalogHandler) {
		h.failureRate = rate
		if random != nil {
			h.random = random
		}
	}
}

func NewCatalogHandler(products port.CatalogRepository, stock port.StockCache, logger *zap.Logger, opts ...CatalogOption) *CatalogHandler {
	h := &CatalogHandler{
		products: products,
		stock:    stock,
		random:   rand.Float64,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *CatalogHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(h.simulate)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/stock", h.ListStock)
	r.Get("/stock/{id}", h.GetStock)
	return r
}

func (h *CatalogHandler) simulate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.latency > 0 {
			if err := sleep(r.Context(), h.latency); err != nil {
				return
			}
		}
		if h.failureRate > 0 && h.random() < h.failureRate {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "simulated failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if products == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if product == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.stock.ListStock(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if stock == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (h *CatalogHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	stock, err := h.stock.GetStock(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if stock == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock not found"})
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (h *CatalogHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog request failed",
		zap.String("path", r.URL.Path), zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
