package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"productservice/internal/platform/observability"
	"productservice/internal/product"
	"productservice/internal/stock"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	publisher stock.Publisher
	products  product.Repository
	logger    observability.Logger
}

func NewHandler(publisher stock.Publisher, products product.Repository, logger observability.Logger) *Handler {
	return &Handler{
		publisher: publisher,
		products:  products,
		logger:    logger,
	}
}

type updateStockRequest struct {
	NewQuantity int `json:"NewQuantity"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// UpdateStockAsync publishes a stock update intent and answers 202 once the
// broker has it. Whether the product exists is decided later by the consumer.
func (h *Handler) UpdateStockAsync(w http.ResponseWriter, r *http.Request) {
	id, newQuantity, ok := parseStockUpdate(w, r)
	if !ok {
		return
	}

	if err := h.publisher.Publish(r.Context(), stock.Intent{ProductID: id, NewQuantity: newQuantity}); err != nil {
		h.logger.Error("Failed to accept stock update", zap.Int("product_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// UpdateStock applies the new quantity synchronously.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, newQuantity, ok := parseStockUpdate(w, r)
	if !ok {
		return
	}

	updated, err := h.products.ApplyStockUpdate(r.Context(), id, newQuantity)
	if err != nil {
		h.writeRepositoryError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.writeRepositoryError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) writeRepositoryError(w http.ResponseWriter, id int, err error) {
	if errors.Is(err, product.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Product storage request failed", zap.Int("product_id", id), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseStockUpdate(w http.ResponseWriter, r *http.Request) (id, newQuantity int, ok bool) {
	id, ok = parseProductID(w, r)
	if !ok {
		return 0, 0, false
	}

	var req updateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return 0, 0, false
	}
	if req.NewQuantity <= 0 {
		http.Error(w, "NewQuantity must be greater than zero", http.StatusBadRequest)
		return 0, 0, false
	}

	return id, req.NewQuantity, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
