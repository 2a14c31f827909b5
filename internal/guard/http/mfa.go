package http

import (
	"net/http"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// MFAHandler serves TOTP enrollment, activation and teardown for the
// authenticated user.
type MFAHandler struct {
	MFAService *service.MFAService
}

type mfaEnrollResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qr_code"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

type mfaActivateRequest struct {
	Code string `json:"code"`
}

type mfaActivateResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// HandleEnroll godoc
//
//	@Summary		Enroll TOTP
//	@Description	Generates a TOTP secret for the user. MFA stays off until the secret is
//	@Description	confirmed via /v1/mfa/activate.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	mfaEnrollResponse	"secret, qr_code, issuer, account"
//	@Failure		401	{object}	ErrorResponse		"error, error_description"
//	@Failure		409	{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	enrollment, err := h.MFAService.Enroll(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpguard.WriteJSON(w, http.StatusOK, mfaEnrollResponse{
		Secret:  enrollment.Secret,
		QRCode:  enrollment.QRCode,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleActivate godoc
//
//	@Summary		Activate TOTP
//	@Description	Confirms the enrolled secret with a valid code and switches MFA on.
//	@Description	Returns the backup codes exactly once.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfaActivateRequest	true	"code"
//	@Success		200		{object}	mfaActivateResponse	"backup_codes"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/mfa/activate [post].
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	var req mfaActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	codes, err := h.MFAService.Activate(r.Context(), principal.UserID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, mfaActivateResponse{BackupCodes: codes})
}

// HandleDisable godoc
//
//	@Summary		Disable MFA
//	@Description	Switches MFA off. Requires a currently valid TOTP or backup code.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfaActivateRequest	true	"code"
//	@Success		200		{object}	logoutResponse		"status"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpguard.PrincipalFromContext(r.Context())

	var req mfaActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFAService.Disable(r.Context(), principal.UserID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "mfa_disabled"})
}
