package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/secrets"
)

type SecretsHandler struct{}

type setTokenReq struct {
	Token string `json:"token"`
}

var knownSources = map[string]domain.Source{
	string(domain.SourceLinkedIn):     domain.SourceLinkedIn,
	string(domain.SourceGitHub):       domain.SourceGitHub,
	string(domain.SourceTwitter):      domain.SourceTwitter,
	string(domain.SourcePersonalSite): domain.SourcePersonalSite,
}

// SetTokenByPath stores a source API token in the OS keychain.
// Expects /api/secrets/{source}.
func (h SecretsHandler) SetTokenByPath(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/secrets/")
	src, ok := knownSources[name]
	if !ok {
		WriteError(w, r, http.StatusBadRequest, codeUnknownSource, "unknown source "+name)
		return
	}

	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, codeInvalidJSON, "invalid json")
		return
	}
	if err := secrets.SetToken(src, req.Token); err != nil {
		WriteError(w, r, http.StatusBadRequest, codeStoreFailed, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
