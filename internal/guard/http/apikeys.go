package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// APIKeysHandler manages the authenticated user's API keys.
type APIKeysHandler struct {
	APIKeyService *service.APIKeyService
}

type apiKeyCreateRequest struct {
	Name string `json:"name"`
}

type apiKeyCreateResponse struct {
	ID string `json:"id"`
	// Key is the full "publicID.secret" value, shown exactly once.
	Key  string `json:"key"`
	Name string `json:"name"`
}

type apiKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HandleCreate godoc
//
//	@Summary		Create API Key
//	@Description	Mints a new API key for the user. The full key value is returned once and
//	@Description	cannot be recovered afterwards; only its hash is stored.
//	@Tags			APIKeys
//	@Accept			json
//	@Produce		json
//	@Param			request	body		apiKeyCreateRequest		true	"name"
//	@Success		200		{object}	apiKeyCreateResponse	"id, key, name"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Failure		401		{object}	ErrorResponse			"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/apikeys [post].
func (h *APIKeysHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	var req apiKeyCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	key, full, err := h.APIKeyService.Mint(r.Context(), principal.UserID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpguard.WriteJSON(w, http.StatusOK, apiKeyCreateResponse{
		ID:   key.ID,
		Key:  full,
		Name: key.Name,
	})
}

// HandleList godoc
//
//	@Summary		List API Keys
//	@Description	Returns the user's API keys, newest first. Secrets are never included.
//	@Tags			APIKeys
//	@Produce		json
//	@Success		200	{array}		apiKeyResponse	"keys"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/apikeys [get].
func (h *APIKeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	keys, err := h.APIKeyService.List(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, apiKeyResponse{
			ID:         k.ID,
			Name:       k.Name,
			Revoked:    k.Revoked,
			LastUsedAt: k.LastUsedAt,
			CreatedAt:  k.CreatedAt,
		})
	}
	httpguard.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke godoc
//
//	@Summary		Revoke API Key
//	@Description	Disables one of the user's API keys permanently.
//	@Tags			APIKeys
//	@Produce		json
//	@Param			id	path		string			true	"API key ID"
//	@Success		200	{object}	logoutResponse	"status"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/apikeys/{id} [delete].
func (h *APIKeysHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	keyID := r.PathValue("id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "key id is required")
		return
	}

	if err := h.APIKeyService.Revoke(r.Context(), principal.UserID, keyID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "revoked"})
}
