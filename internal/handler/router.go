// Package handler exposes the jobAuth engine over HTTP with chi.
package handler

import (
	"log/slog"
	"net/http"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/internal/observability"
	"github.com/MrEthical07/jobAuth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps holds what NewRouter wires together.
type RouterDeps struct {
	Engine *jobAuth.Engine
	Logger *slog.Logger
	// RateLimiter throttles every auth route per client IP when set.
	RateLimiter *IPRateLimiter
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the full route tree.
//
// Middleware order: RequestID, RealIP, Recover, RequestLogger, request
// context. Auth routes add the IP limiter; account routes add Guard.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.Recover(logger))
	r.Use(observability.RequestLogger(logger))
	r.Use(requestContext)

	auth := NewAuthHandler(deps.Engine, logger)
	account := NewAccountHandler(deps.Engine)

	r.Get("/healthz", Health(deps.Engine))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.With(middleware.RequireServiceToken(deps.Engine)).Get("/system/verify-token", VerifyToken)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}

		r.Post("/register", auth.Register)
		r.Get("/activate", auth.Activate)
		r.Post("/resend-activation", auth.ResendActivation)
		r.Post("/login", auth.Login)
		r.Post("/oauth2/login", auth.SSOLogin)
		r.Post("/refresh", auth.Refresh)
		r.Get("/check-session", auth.CheckSession)
		r.Post("/logout", auth.Logout)
		r.Post("/forgot-password", auth.ForgotPassword)
		r.Post("/reset-password", auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(deps.Engine))

			r.Post("/change-password", account.ChangePassword())
			r.Post("/set-password", account.SetPassword())
			r.Post("/change-email", account.ChangeEmail())
			r.Post("/verify-sso-ownership", account.VerifySSOOwnership())
			r.Post("/verify-new-email-ownership", account.VerifyNewEmailOwnership())
			r.Post("/change-email-sso", account.ChangeEmailSSO())
			r.Post("/send-otp", account.SendOTP())
			r.Post("/verify-otp", account.VerifyOTP())
		})
	})

	return r
}

// requestContext copies request metadata into the context so the engine can
// stamp audit events with it.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := jobAuth.WithClientIP(r.Context(), clientIP(r))
		ctx = jobAuth.WithUserAgent(ctx, r.UserAgent())
		ctx = jobAuth.WithRequestID(ctx, chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
