package http

import (
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// RolesHandler manages the role catalogue. Guarded by roles:read /
// roles:write permissions.
type RolesHandler struct {
	RolesService *service.RolesService
}

type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type roleCreateRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// HandleList godoc
//
//	@Summary		List Roles
//	@Description	Returns every role and its permissions.
//	@Tags			Roles
//	@Produce		json
//	@Success		200	{array}		roleResponse	"roles"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Failure		403	{object}	ErrorResponse	"error, error_description, missing"
//	@Security		BearerAuth
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RolesService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
		})
	}
	httpguard.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create Role
//	@Description	Registers a new role with the given permission list.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Param			request	body		roleCreateRequest	true	"name, permissions"
//	@Success		200		{object}	roleResponse		"id, name, permissions"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description, missing"
//	@Security		BearerAuth
//	@Router			/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	role, err := h.RolesService.Create(r.Context(), req.Name, req.Permissions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpguard.WriteJSON(w, http.StatusOK, roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: role.Permissions,
	})
}
