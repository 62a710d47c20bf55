package httpapi

import (
	"net/http"

	"talentscout-engine/internal/fetchcache"
)

type HealthHandler struct {
	Cache *fetchcache.Cache
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"ok": true}
	if h.Cache != nil {
		body["cache_entries"] = h.Cache.Len()
	}
	WriteJSON(w, http.StatusOK, body)
}
