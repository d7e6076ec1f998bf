package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	jobAuth "github.com/MrEthical07/jobAuth"
)

const maxBodyBytes = 1 << 20

// errorResponse is the single error body of every endpoint.
type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

type errorMapping struct {
	target   error
	status   int
	code     string
	category string
	action   string
}

// errorTable is walked in order; the first errors.Is match wins.
var errorTable = []errorMapping{
	{jobAuth.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "system", "Wait and retry after the specified time."},
	{jobAuth.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependency_unavailable", "system", "Retry later."},
	{jobAuth.ErrEngineNotReady, http.StatusInternalServerError, "internal_error", "system", ""},

	{jobAuth.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "validation", "Check the email address."},
	{jobAuth.ErrPasswordPolicy, http.StatusBadRequest, "password_policy", "validation", "Choose a password between 8 and 1024 bytes."},
	{jobAuth.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch", "validation", "Enter the same password twice."},
	{jobAuth.ErrEmailMismatch, http.StatusBadRequest, "email_mismatch", "validation", "Sign in with the account that owns this email."},
	{jobAuth.ErrNotSsoUser, http.StatusBadRequest, "not_sso_user", "validation", "Use change password instead."},

	{jobAuth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "auth", "Check your email and password."},
	{jobAuth.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "auth", "Request a new link or sign in again."},
	{jobAuth.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "auth", "Sign in again."},
	{jobAuth.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid", "auth", "Sign in again."},
	{jobAuth.ErrOTPInvalid, http.StatusUnauthorized, "otp_invalid", "auth", "Request a new code."},
	{jobAuth.ErrIdentityRejected, http.StatusUnauthorized, "identity_rejected", "auth", "Sign in with Google again."},
	{jobAuth.ErrAccountNotFound, http.StatusUnauthorized, "account_not_found", "auth", "Sign in again."},

	{jobAuth.ErrAccountNotActivated, http.StatusForbidden, "account_not_activated", "auth", "Open the activation link sent by email."},
	{jobAuth.ErrAccountDisabled, http.StatusForbidden, "account_disabled", "auth", "Contact support."},
	{jobAuth.ErrForbiddenForSsoUser, http.StatusForbidden, "forbidden_for_sso_user", "auth", "Set a password first."},

	{jobAuth.ErrEmailAlreadyInUse, http.StatusConflict, "email_in_use", "conflict", "Use another email or sign in."},
	{jobAuth.ErrProviderConflict, http.StatusConflict, "provider_conflict", "conflict", "Sign in with your password."},
	{jobAuth.ErrVersionConflict, http.StatusConflict, "version_conflict", "conflict", "Retry the request."},
}

var errBadRequest = errors.New("malformed request body")

// writeError maps err to a status and the unified error body. Rate limit
// errors also set Retry-After.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Code:     "internal_error",
		Message:  "internal server error",
		Category: "system",
	}
	status := http.StatusInternalServerError

	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
		resp = errorResponse{Code: "bad_request", Message: errBadRequest.Error(), Category: "validation"}
	} else {
		for _, m := range errorTable {
			if errors.Is(err, m.target) {
				status = m.status
				resp = errorResponse{Code: m.code, Message: m.target.Error(), Category: m.category, Action: m.action}
				break
			}
		}
	}

	if retry, ok := jobAuth.RetryAfter(err); ok {
		secs := int(math.Ceil(retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		resp.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
