package handler

import (
	"log/slog"
	"net/http"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/middleware"
)

// AuthHandler serves the public session endpoints.
type AuthHandler struct {
	engine  *jobAuth.Engine
	cookies jobAuth.SessionConfig
	logger  *slog.Logger
}

func NewAuthHandler(engine *jobAuth.Engine, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{engine: engine, cookies: engine.Config().Session, logger: logger}
}

type sessionResponse struct {
	AccountID        string     `json:"account_id"`
	Roles            []string   `json:"roles"`
	AccessToken      string     `json:"access_token"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
	Created          bool       `json:"created,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// writeSession sets both cookies and returns the access token in the body
// for clients without a cookie jar.
func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, sess *jobAuth.Session) {
	middleware.SetSessionCookies(w, h.cookies, sess)

	resp := sessionResponse{
		AccountID:       sess.AccountID,
		Roles:           sess.Roles,
		AccessToken:     sess.AccessToken,
		AccessExpiresAt: sess.AccessExpiresAt,
		Created:         sess.Created,
	}
	if sess.RefreshToken != "" {
		exp := sess.RefreshExpiresAt
		resp.RefreshExpiresAt = &exp
	}
	writeJSON(w, status, resp)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type registerResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.engine.Register(r.Context(), jobAuth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{AccountID: account.ID, Email: account.Email})
}

type activationResponse struct {
	AccountID        string `json:"account_id,omitempty"`
	AlreadyActivated bool   `json:"already_activated"`
}

// Activate handles GET /activate?token=.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Activate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activationResponse{AccountID: res.AccountID, AlreadyActivated: res.AlreadyActivated})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendActivation handles POST /resend-activation.
func (h *AuthHandler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	already, err := h.engine.ResendActivation(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activationResponse{AlreadyActivated: already})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /login. Credentials come from Basic auth when present,
// otherwise from the JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		email, password = req.Email, req.Password
	}

	sess, err := h.engine.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

type idTokenRequest struct {
	IDToken string `json:"id_token"`
}

// SSOLogin handles POST /oauth2/login. New accounts answer 201.
func (h *AuthHandler) SSOLogin(w http.ResponseWriter, r *http.Request) {
	var req idTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.engine.SSOLogin(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if sess.Created {
		status = http.StatusCreated
	}
	h.writeSession(w, status, sess)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /refresh. The refresh cookie wins over the body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.RefreshToken(r, h.cookies)
	if !ok {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		token = req.RefreshToken
	}

	sess, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// CheckSession handles GET /check-session and slides the access token.
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.AccessToken(r, h.cookies.AccessCookieName)
	if !ok {
		writeError(w, jobAuth.ErrTokenInvalid)
		return
	}

	sess, err := h.engine.CheckSession(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// Logout handles POST /logout. It always clears the cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.AccessToken(r, h.cookies.AccessCookieName)
	refresh, _ := middleware.RefreshToken(r, h.cookies)

	if err := h.engine.Logout(r.Context(), access, refresh); err != nil {
		h.logger.WarnContext(r.Context(), "logout failed", slog.String("error", err.Error()))
	}

	middleware.ClearSessionCookies(w, h.cookies)
	writeJSON(w, http.StatusOK, statusResponse{Status: "logged_out"})
}

// ForgotPassword handles POST /forgot-password. The answer does not depend
// on whether the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.engine.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "password_reset"})
}
