package handler

import (
	"net/http"

	"github.com/dukerupert/larder/internal/category"
)

// Categories handles GET /api/categories?lang=
func Categories(w http.ResponseWriter, r *http.Request) {
	lang := category.ParseLang(r.URL.Query().Get("lang"))
	writeJSON(w, http.StatusOK, map[string]any{
		"lang":       lang,
		"categories": category.CategoryEntries(lang),
		"locations":  category.LocationEntries(lang),
	})
}
