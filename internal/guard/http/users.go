package http

import (
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// UsersHandler covers account administration and self-service password
// change.
type UsersHandler struct {
	UserService *service.UserService
}

type userCreateRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	TenantID string `json:"tenant_id,omitempty"`
	Active   bool   `json:"active"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleCreate godoc
//
//	@Summary		Create User
//	@Description	Registers a new active account holding the given roles.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		userCreateRequest	true	"username, password, roles"
//	@Success		200		{object}	userResponse		"id, username, active"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description, missing"
//	@Security		BearerAuth
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	user, err := h.UserService.Create(r.Context(), req.Username, req.Password, req.TenantID, req.Roles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpguard.WriteJSON(w, http.StatusOK, userResponse{
		ID:       user.ID,
		Username: user.Username,
		TenantID: user.TenantID,
		Active:   user.Active,
	})
}

// HandleSetActive godoc
//
//	@Summary		Activate / Deactivate User
//	@Description	Flips an account's active flag. Deactivation revokes every live session
//	@Description	and refresh token immediately.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"User ID"
//	@Param			request	body		setActiveRequest	true	"active"
//	@Success		200		{object}	logoutResponse		"status"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description, missing"
//	@Security		BearerAuth
//	@Router			/v1/users/{id}/active [post].
func (h *UsersHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}

	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.UserService.SetActive(r.Context(), userID, req.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "updated"})
}

// HandleChangePassword godoc
//
//	@Summary		Change Password
//	@Description	Sets a new password after verifying the current one, then revokes every
//	@Description	other session and refresh token the user holds.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		changePasswordRequest	true	"current_password, new_password"
//	@Success		200		{object}	logoutResponse			"status"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Failure		401		{object}	ErrorResponse			"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/password [post].
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "current and new passwords are required")
		return
	}

	if err := h.UserService.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "password_changed"})
}
