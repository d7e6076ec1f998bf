package handler

import (
	"net/http"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/middleware"
)

// AccountHandler serves endpoints that act on the authenticated account.
// Every route sits behind middleware.Guard.
type AccountHandler struct {
	engine *jobAuth.Engine
}

func NewAccountHandler(engine *jobAuth.Engine) *AccountHandler {
	return &AccountHandler{engine: engine}
}

func accountID(r *http.Request) (string, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.Subject == "" {
		return "", false
	}
	return p.Subject, true
}

// withAccount decodes the body into a fresh T and passes it with the
// caller's account ID to fn.
func withAccount[T any](fn func(w http.ResponseWriter, r *http.Request, id string, req *T)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := accountID(r)
		if !ok {
			writeError(w, jobAuth.ErrTokenInvalid)
			return
		}
		var req T
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		fn(w, r, id, &req)
	}
}

type proofResponse struct {
	Proof string `json:"proof"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /change-password.
func (h *AccountHandler) ChangePassword() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *changePasswordRequest) {
		if err := h.engine.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "password_changed"})
	})
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SetPassword handles POST /set-password for SSO accounts.
func (h *AccountHandler) SetPassword() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *setPasswordRequest) {
		if err := h.engine.SetPasswordForSSOUser(r.Context(), id, req.NewPassword, req.ConfirmPassword); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "password_set"})
	})
}

type changeEmailRequest struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
	OTPProof        string `json:"otp_proof"`
}

// ChangeEmail handles POST /change-email for password accounts.
func (h *AccountHandler) ChangeEmail() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *changeEmailRequest) {
		if err := h.engine.ChangeEmail(r.Context(), id, req.CurrentPassword, req.NewEmail, req.OTPProof); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "email_changed"})
	})
}

// VerifySSOOwnership handles POST /verify-sso-ownership.
func (h *AccountHandler) VerifySSOOwnership() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *idTokenRequest) {
		proof, err := h.engine.VerifySSOOwnership(r.Context(), id, req.IDToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, proofResponse{Proof: proof})
	})
}

type newEmailOwnershipRequest struct {
	NewEmail string `json:"new_email"`
	IDToken  string `json:"id_token"`
}

// VerifyNewEmailOwnership handles POST /verify-new-email-ownership.
func (h *AccountHandler) VerifyNewEmailOwnership() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *newEmailOwnershipRequest) {
		proof, err := h.engine.VerifyNewEmailOwnership(r.Context(), id, req.NewEmail, req.IDToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, proofResponse{Proof: proof})
	})
}

type changeEmailSSORequest struct {
	OldProof string `json:"old_proof"`
	NewProof string `json:"new_proof"`
}

// ChangeEmailSSO handles POST /change-email-sso.
func (h *AccountHandler) ChangeEmailSSO() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *changeEmailSSORequest) {
		if err := h.engine.ChangeEmailSSO(r.Context(), id, req.OldProof, req.NewProof); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "email_changed"})
	})
}

type sendOTPRequest struct {
	NewEmail string `json:"new_email"`
}

// SendOTP handles POST /send-otp.
func (h *AccountHandler) SendOTP() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *sendOTPRequest) {
		if err := h.engine.SendOTP(r.Context(), id, req.NewEmail); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "sent"})
	})
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

// VerifyOTP handles POST /verify-otp.
func (h *AccountHandler) VerifyOTP() http.HandlerFunc {
	return withAccount(func(w http.ResponseWriter, r *http.Request, id string, req *verifyOTPRequest) {
		proof, err := h.engine.VerifyOTP(r.Context(), id, req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, proofResponse{Proof: proof})
	})
}
