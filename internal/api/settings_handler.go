package api

import (
	"net/http"

	"github.com/omarluq/llm-router/internal/settings"
)

// SettingsHandler serves the /v1/settings routes.
type SettingsHandler struct {
	resolver *settings.Resolver
}

// NewSettingsHandler creates a SettingsHandler backed by resolver.
func NewSettingsHandler(resolver *settings.Resolver) *SettingsHandler {
	return &SettingsHandler{resolver: resolver}
}

// GetAll handles GET /v1/settings. An optional ?category= query narrows the
// result to one category.
func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	writeJSON(w, http.StatusOK, h.resolver.GetAll(r.Context(), category))
}

// Get handles GET /v1/settings/{key}, returning the full detail for one key.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	detail, err := h.resolver.Describe(r.Context(), key)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

type setSettingRequest struct {
	Value any `json:"value"`
}

type setSettingResponse struct {
	Key             string `json:"key"`
	Value           any    `json:"value"`
	RequiresRestart bool   `json:"requiresRestart"`
}

// Set handles PUT /v1/settings/{key}.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var payload setSettingRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	restart, err := h.resolver.Set(r.Context(), key, payload.Value)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setSettingResponse{
		Key:             key,
		Value:           payload.Value,
		RequiresRestart: restart,
	})
}

// BulkSet handles PUT /v1/settings. The body is a flat key/value object;
// each key is applied independently and per-key failures are reported
// alongside the successes.
func (h *SettingsHandler) BulkSet(w http.ResponseWriter, r *http.Request) {
	var entries map[string]any
	if !decodeJSONBody(w, r, &entries) {
		return
	}

	result := h.resolver.BulkSet(r.Context(), entries)

	status := http.StatusOK
	if len(result.Errors) > 0 && len(result.Updated) == 0 {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, result)
}

// Delete handles DELETE /v1/settings/{key}, reverting the key to its
// default. Deleting a key without an override succeeds.
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.resolver.Delete(r.Context(), key); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
