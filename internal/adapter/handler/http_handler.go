package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// HTTPHandler serves the storefront API used by the product and cart pages.
type HTTPHandler struct {
	cart       *service.CartService
	storefront *service.Storefront
	logger     *zap.Logger
}

type AddItemHTTPRequest struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountHTTPRequest struct {
	Amount *int `json:"amount"`
}

type CartHTTPResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Cart         service.CartSummary  `json:"cart"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(cart *service.CartService, storefront *service.Storefront, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{cart: cart, storefront: storefront, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.UpdateAmount)
			r.Delete("/items/{productID}", h.RemoveItem)
			r.Post("/checkout", h.Checkout)
		})
	})
	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.storefront.Products(r.Context())
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
		writeJSON(w, statusFor(err), ErrorHTTPResponse{Message: "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storefront.Summary())
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.ProductID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "product_id must be positive"})
		return
	}

	h.mutate(w, r, func(ctx context.Context) error {
		return h.cart.AddProduct(ctx, req.ProductID)
	})
}

func (h *HTTPHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	h.mutate(w, r, func(ctx context.Context) error {
		return h.cart.UpdateProductAmount(ctx, productID, *req.Amount)
	})
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	h.mutate(w, r, func(ctx context.Context) error {
		return h.cart.RemoveProduct(ctx, productID)
	})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.cart.FinalizeOrder)
}

// mutate runs op with a notification recorder on the context and reports the
// raised notification together with the resulting cart.
func (h *HTTPHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context) error) {
	rec := &notify.Recorder{}
	ctx := notify.WithRecorder(r.Context(), rec)

	err := op(ctx)

	resp := CartHTTPResponse{
		Success: err == nil,
		Cart:    h.storefront.Summary(),
	}
	if n, ok := rec.Last(); ok {
		resp.Message = n.Message
		resp.Notification = &n
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		h.logger.Debug("cart mutation rejected", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrStockExceeded):
		return http.StatusConflict
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLookupFailure):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrPersistenceFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid product id"})
		return 0, false
	}
	return id, true
}
