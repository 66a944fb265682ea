package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/openfoodfacts"
)

type LookupHandler struct {
	client *openfoodfacts.Client
	logger *slog.Logger
}

func NewLookupHandler(client *openfoodfacts.Client, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{client: client, logger: logger}
}

type lookupResponse struct {
	openfoodfacts.Product
	Category model.Category `json:"category"`
}

// Barcode handles GET /api/lookup/barcode/{code}
func (h *LookupHandler) Barcode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	p, err := h.client.Lookup(r.Context(), code)
	switch {
	case errors.Is(err, openfoodfacts.ErrBlankBarcode):
		writeError(w, http.StatusBadRequest, "barcode is required")
		return
	case errors.Is(err, openfoodfacts.ErrLookupFailed):
		h.logger.Warn("barcode lookup failed", "barcode", code, "error", err)
		writeError(w, http.StatusBadGateway, "product lookup failed")
		return
	case err != nil:
		h.logger.Error("barcode lookup", "barcode", code, "error", err)
		writeError(w, http.StatusInternalServerError, "product lookup failed")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, lookupResponse{Product: *p, Category: p.Category()})
}

// Search handles GET /api/lookup/search?q=
func (h *LookupHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	products, err := h.client.Search(r.Context(), q)
	if err != nil {
		h.logger.Warn("product search failed", "query", q, "error", err)
		writeError(w, http.StatusBadGateway, "product search failed")
		return
	}

	out := make([]lookupResponse, 0, len(products))
	for _, p := range products {
		out = append(out, lookupResponse{Product: p, Category: p.Category()})
	}
	writeJSON(w, http.StatusOK, out)
}
