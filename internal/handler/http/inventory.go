package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// InventoryHandler handles the administrative stock endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{service: svc, logger: logger}
}

// StockRequest is the JSON request body for restocking or decrementing a product.
type StockRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// StockResponse is the stock level of one product.
type StockResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	InStock   bool   `json:"in_stock"`
}

// GetStock handles GET /api/v1/inventory/{productId}
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetStock(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: StockResponse{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  product.Quantity,
		InStock:   product.InStock(),
	}})
}

// Restock handles POST /api/v1/inventory/{productId}/restock
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	change, err := h.service.Restock(r.Context(), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: change})
}

// Decrement handles POST /api/v1/inventory/{productId}/decrement
func (h *InventoryHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	change, err := h.service.Decrement(r.Context(), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: change})
}
