package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/omarluq/llm-router/internal/registry"
)

// ProvidersHandler serves the /v1/providers routes.
type ProvidersHandler struct {
	registry *registry.Registry
}

// NewProvidersHandler creates a ProvidersHandler backed by reg.
func NewProvidersHandler(reg *registry.Registry) *ProvidersHandler {
	return &ProvidersHandler{registry: reg}
}

// List handles GET /v1/providers. Optional ?type= and ?enabled= queries
// narrow the result.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter registry.Filter

	if typ := r.URL.Query().Get("type"); typ != "" {
		filter.Type = registry.Type(typ)
		if !filter.Type.Valid() {
			WriteError(w, http.StatusBadRequest, "invalid_request_error",
				"unknown provider type: "+typ)
			return
		}
	}

	if enabledStr := r.URL.Query().Get("enabled"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request_error",
				"enabled must be true or false")
			return
		}
		filter.Enabled = &enabled
	}

	providers, err := h.registry.List(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	masked := lo.Map(providers, func(p registry.Provider, _ int) registry.Provider {
		return p.Masked()
	})

	writeJSON(w, http.StatusOK, masked)
}

// Create handles POST /v1/providers.
func (h *ProvidersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var spec registry.CreateSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	provider, err := h.registry.Create(r.Context(), spec)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, provider.Masked())
}

// Get handles GET /v1/providers/{id}.
func (h *ProvidersHandler) Get(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provider.Masked())
}

// Update handles PUT /v1/providers/{id}.
func (h *ProvidersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var spec registry.UpdateSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	provider, err := h.registry.Update(r.Context(), r.PathValue("id"), spec)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provider.Masked())
}

// Delete handles DELETE /v1/providers/{id}. Deleting the active provider
// also clears the active-provider setting.
func (h *ProvidersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Enable handles POST /v1/providers/{id}/enable. Enabling an already
// enabled provider is a no-op success.
func (h *ProvidersHandler) Enable(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Enable(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provider.Masked())
}

// Disable handles POST /v1/providers/{id}/disable.
func (h *ProvidersHandler) Disable(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Disable(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provider.Masked())
}

// Test handles POST /v1/providers/{id}/test. Probe failures are data, not
// errors: the response is always 200 with a success flag once the provider
// is known to exist.
func (h *ProvidersHandler) Test(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.Test(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Reload handles POST /v1/providers/{id}/reload, returning the provider
// re-read from the store.
func (h *ProvidersHandler) Reload(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Reload(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provider.Masked())
}

type credentialsRequest struct {
	Token     string `json:"token"`
	Cookie    string `json:"cookie,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// SetCredentials handles POST /v1/providers/{id}/credentials, storing an
// opaque auth token and optional session cookie for the provider.
func (h *ProvidersHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	if payload.Token == "" && payload.Cookie == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request_error",
			"at least one of token or cookie is required")
		return
	}

	var expiresAt time.Time
	if payload.ExpiresAt > 0 {
		expiresAt = time.UnixMilli(payload.ExpiresAt)
	}

	err := h.registry.SetCredentials(r.Context(), r.PathValue("id"),
		payload.Token, payload.Cookie, expiresAt)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type activeProviderResponse struct {
	ActiveProvider string `json:"activeProvider"`
}

// Active handles GET /v1/providers/active, returning the resolved active
// provider id.
func (h *ProvidersHandler) Active(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, activeProviderResponse{
		ActiveProvider: h.registry.ActiveProviderID(r.Context()),
	})
}
