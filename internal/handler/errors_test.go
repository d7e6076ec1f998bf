package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{jobAuth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{jobAuth.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{jobAuth.ErrPasswordPolicy, http.StatusBadRequest, "password_policy"},
		{jobAuth.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
		{jobAuth.ErrAccountNotActivated, http.StatusForbidden, "account_not_activated"},
		{jobAuth.ErrForbiddenForSsoUser, http.StatusForbidden, "forbidden_for_sso_user"},
		{jobAuth.ErrNotSsoUser, http.StatusBadRequest, "not_sso_user"},
		{jobAuth.ErrEmailAlreadyInUse, http.StatusConflict, "email_in_use"},
		{jobAuth.ErrProviderConflict, http.StatusConflict, "provider_conflict"},
		{fmt.Errorf("%w: redis down", jobAuth.ErrDependencyUnavailable), http.StatusServiceUnavailable, "dependency_unavailable"},
		{fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Category)
			assert.Empty(t, rec.Header().Get("Retry-After"))
		})
	}
}

func TestWriteErrorRetryAfterRoundsUp(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &jobAuth.RateLimitError{RetryAfter: 1200 * time.Millisecond, Scope: "login"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.RetryAfter)
	assert.Equal(t, "rate_limited", body.Code)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: dial tcp 10.0.0.5:6379: connection refused", jobAuth.ErrDependencyUnavailable))

	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
