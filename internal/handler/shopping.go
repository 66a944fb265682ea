package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/websocket"
)

type ShoppingHandler struct {
	service *shopping.Service
	broadcaster
	logger *slog.Logger
}

func NewShoppingHandler(svc *shopping.Service, hub *websocket.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{service: svc, broadcaster: broadcaster{hub}, logger: logger}
}

type shoppingRequest struct {
	Name     string  `json:"name"`
	Quantity *string `json:"quantity"`
	Category *string `json:"category"`
}

func (req *shoppingRequest) quantity() *string {
	if req.Quantity == nil {
		return nil
	}
	q := strings.TrimSpace(*req.Quantity)
	if q == "" {
		return nil
	}
	return &q
}

// writeShoppingResult answers an add: 201 for a new item, 200 when the
// quantity was merged into an existing one.
func writeShoppingResult(w http.ResponseWriter, b broadcaster, item *model.ShoppingItem, created bool) {
	status, action := http.StatusOK, "merged"
	if created {
		status, action = http.StatusCreated, "created"
	}
	b.broadcast(websocket.NewMessage(websocket.EntityShopping, action, item.ID, nil))
	writeJSON(w, status, item)
}

// List handles GET /api/shopping
func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shopping items")
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/shopping
func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shoppingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, created, err := h.service.AddOrMerge(r.Context(), req.Name, req.quantity())
	if errors.Is(err, shopping.ErrBlankName) {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err != nil {
		h.logger.Error("add shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add shopping item")
		return
	}

	writeShoppingResult(w, h.broadcaster, item, created)
}

// Update handles PUT /api/shopping/{id}
func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req shoppingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var cat *model.Category
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		c, ok := model.ParseCategory(*req.Category)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		cat = &c
	}

	item, err := h.service.Update(r.Context(), id, req.Name, req.quantity(), cat)
	if errors.Is(err, shopping.ErrBlankName) {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if errors.Is(err, shopping.ErrDuplicateName) {
		writeError(w, http.StatusConflict, "item is already on the list")
		return
	}
	if err != nil {
		h.logger.Error("update shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update shopping item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "shopping item not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityShopping, "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

// Toggle handles POST /api/shopping/{id}/toggle
func (h *ShoppingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		h.logger.Error("toggle shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle shopping item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "shopping item not found")
		return
	}

	if item.ID != id {
		h.broadcast(websocket.NewMessage(websocket.EntityShopping, "deleted", id, nil))
		h.broadcast(websocket.NewMessage(websocket.EntityShopping, "updated", item.ID, nil))
		writeJSON(w, http.StatusOK, item)
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityShopping, "toggled", id,
		map[string]any{"purchased": item.Purchased}))
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/shopping/{id}
func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete shopping item")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityShopping, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ClearPurchased handles POST /api/shopping/clear-purchased
func (h *ShoppingHandler) ClearPurchased(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearPurchased(r.Context())
	if err != nil {
		h.logger.Error("clear purchased shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear purchased items")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityShopping, "cleared", 0, map[string]any{"count": n}))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Stores handles GET /api/shopping/{id}/stores
func (h *ShoppingHandler) Stores(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get shopping item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "shopping item not found")
		return
	}

	writeJSON(w, http.StatusOK, shopping.StoreLinks(item.Name))
}
