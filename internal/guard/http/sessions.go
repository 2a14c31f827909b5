package http

import (
	"net/http"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// SessionsHandler serves session introspection and revocation for the
// authenticated user.
type SessionsHandler struct {
	SessionService *service.SessionService
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info,omitempty"`
	Current    bool      `json:"current"`
	Revoked    bool      `json:"revoked"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// HandleList godoc
//
//	@Summary		List Sessions
//	@Description	Returns the user's sessions, newest first, with the calling session marked.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{array}		sessionResponse	"sessions"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	sessions, err := h.SessionService.List(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			DeviceInfo: s.DeviceInfo,
			Current:    s.ID == principal.SessionID,
			Revoked:    s.Revoked,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
		})
	}
	httpguard.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke godoc
//
//	@Summary		Revoke Session
//	@Description	Revokes one of the user's sessions by ID, killing its refresh tokens too.
//	@Tags			Sessions
//	@Produce		json
//	@Param			id	path		string			true	"Session ID"
//	@Success		200	{object}	logoutResponse	"status"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}

	if err := h.SessionService.Revoke(r.Context(), principal.UserID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "revoked"})
}
