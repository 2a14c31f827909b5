package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// BootstrapHandler serves POST /v1/bootstrap, the one-shot first-run
// setup. Guarded by the pre-shared bootstrap token, not by the guard
// pipeline: there are no users to authenticate yet.
type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

type bootstrapRoleDef struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type bootstrapRequest struct {
	Token         string             `json:"token"`
	AdminUsername string             `json:"admin_username"`
	AdminPassword string             `json:"admin_password"`
	TenantID      string             `json:"tenant_id,omitempty"`
	Roles         []bootstrapRoleDef `json:"roles"`
}

type bootstrapResponse struct {
	AdminUserID string `json:"admin_user_id"`
}

// ServeHTTP godoc
//
//	@Summary		Bootstrap
//	@Description	Seeds an empty instance with its role set and first admin account.
//	@Description	Requires the pre-shared bootstrap token and fails once any user exists.
//	@Tags			System
//	@Accept			json
//	@Produce		json
//	@Param			request	body		bootstrapRequest	true	"token, admin credentials, roles"
//	@Success		200		{object}	bootstrapResponse	"admin_user_id"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.AdminUsername == "" || req.AdminPassword == "" || len(req.Roles) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "admin credentials and roles are required")
		return
	}

	roles := make([]domain.Role, 0, len(req.Roles))
	for _, def := range req.Roles {
		roles = append(roles, domain.Role{Name: def.Name, Permissions: def.Permissions})
	}

	adminID, err := h.BootstrapService.Bootstrap(r.Context(), req.Token, service.BootstrapData{
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
		TenantID:      req.TenantID,
		Roles:         roles,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			writeError(w, http.StatusConflict, "already_bootstrapped", "system already bootstrapped")
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid_token", "bootstrap token rejected")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	httpguard.WriteJSON(w, http.StatusOK, bootstrapResponse{AdminUserID: adminID})
}
