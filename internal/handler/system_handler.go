package handler

import (
	"context"
	"net/http"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/middleware"
)

type verifyTokenResponse struct {
	Valid             bool      `json:"valid"`
	Subject           string    `json:"subject"`
	Roles             []string  `json:"roles"`
	ExpiresAt         time.Time `json:"expires_at"`
	RevocationChecked bool      `json:"revocation_checked"`
}

// VerifyToken handles GET /system/verify-token behind
// middleware.RequireServiceToken.
func VerifyToken(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.ServiceTokenFromContext(r.Context())
	if !ok {
		writeError(w, jobAuth.ErrTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, verifyTokenResponse{
		Valid:     res.Valid,
		Subject:   res.Subject,
		Roles:     res.Roles,
		ExpiresAt: res.ExpiresAt,
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
	Store  string `json:"store"`
}

// Health handles GET /healthz.
func Health(engine *jobAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		h := engine.Health(ctx)
		resp := healthResponse{Status: "ok", Cache: probe(h.CacheErr), Store: probe(h.StoreErr)}
		status := http.StatusOK
		if !h.OK() {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func probe(err error) string {
	if err != nil {
		return "unavailable"
	}
	return "ok"
}
