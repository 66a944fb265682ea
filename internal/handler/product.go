package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/category"
	"github.com/dukerupert/larder/internal/expiry"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
)

type ProductHandler struct {
	products *store.ProductStore
	shopping *shopping.Service
	now      Clock
	broadcaster
	logger *slog.Logger
}

func NewProductHandler(ps *store.ProductStore, svc *shopping.Service, now Clock, hub *websocket.Hub, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: ps, shopping: svc, now: now, broadcaster: broadcaster{hub}, logger: logger}
}

// productResponse is a product with its freshness as of the request.
type productResponse struct {
	model.Product
	ExpiryDate string `json:"expiry_date"`
	expiry.Result
}

func (h *ProductHandler) respond(p model.Product, now time.Time) productResponse {
	return productResponse{
		Product:    p,
		ExpiryDate: p.ExpiryDate.Format(model.DateLayout),
		Result:     expiry.Evaluate(p.ExpiryDate, now),
	}
}

func (h *ProductHandler) respondAll(products []model.Product) []productResponse {
	now := h.now()
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, h.respond(p, now))
	}
	return out
}

type productRequest struct {
	Name            string `json:"name"`
	Brand           string `json:"brand"`
	Category        string `json:"category"`
	StorageLocation string `json:"storage_location"`
	ExpiryDate      string `json:"expiry_date"`
	Barcode         string `json:"barcode"`
	ImageURL        string `json:"image_url"`
	Notes           string `json:"notes"`
}

// toProduct validates the request. A missing category is guessed from the
// name; a missing location defaults to the fridge.
func (req productRequest) toProduct() (*model.Product, error) {
	p := &model.Product{
		Name:            strings.TrimSpace(req.Name),
		Brand:           strings.TrimSpace(req.Brand),
		Category:        model.Category(strings.ToLower(strings.TrimSpace(req.Category))),
		StorageLocation: model.StorageLocation(strings.ToLower(strings.TrimSpace(req.StorageLocation))),
		Barcode:         strings.TrimSpace(req.Barcode),
		ImageURL:        strings.TrimSpace(req.ImageURL),
		Notes:           req.Notes,
	}
	if p.Category == "" {
		p.Category = category.Classify(p.Name)
	}
	if p.StorageLocation == "" {
		p.StorageLocation = model.LocationFridge
	}
	if req.ExpiryDate != "" {
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(req.ExpiryDate))
		if err != nil {
			return nil, errors.New("expiry_date must be YYYY-MM-DD")
		}
		p.ExpiryDate = d
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// List handles GET /api/products[?status=expiring|expired]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := expiry.Today(h.now())

	var (
		products []model.Product
		err      error
	)
	switch r.URL.Query().Get("status") {
	case "":
		products, err = h.products.List(ctx)
	case "expiring":
		products, err = h.products.ListExpiringBetween(ctx, today, today.AddDate(0, 0, expiry.SoonThreshold))
	case "expired":
		products, err = h.products.ListExpiredBefore(ctx, today)
	default:
		writeError(w, http.StatusBadRequest, "status must be expiring or expired")
		return
	}
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, h.respondAll(products))
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, h.respond(*p, h.now()))
}

// GetByBarcode handles GET /api/products/barcode/{code}
func (h *ProductHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "barcode is required")
		return
	}
	p, err := h.products.GetByBarcode(r.Context(), code)
	if err != nil {
		h.logger.Error("get product by barcode", "barcode", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, h.respond(*p, h.now()))
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.toProduct()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.products.Create(r.Context(), p)
	if err != nil {
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityProduct, "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, h.respond(*created, h.now()))
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.toProduct()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.products.Update(r.Context(), id, p)
	if err != nil {
		h.logger.Error("update product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityProduct, "updated", id, nil))
	writeJSON(w, http.StatusOK, h.respond(*updated, h.now()))
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityProduct, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// AddToShopping handles POST /api/products/{id}/shopping
func (h *ProductHandler) AddToShopping(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, created, err := h.shopping.AddFromProduct(r.Context(), id)
	if errors.Is(err, shopping.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("add product to shopping list", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add to shopping list")
		return
	}

	writeShoppingResult(w, h.broadcaster, item, created)
}
