package jobAuth

import "github.com/MrEthical07/jobAuth/internal/security"

// SecurityReport summarizes the effective security settings of the engine.
type SecurityReport = security.Report

// SecurityReport returns the posture report for the engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Password: security.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinBytes:    cfg.Password.MinBytes,
		},
		RefreshRotation:       cfg.Session.RotateRefreshTokens,
		RevocationFailClosed:  cfg.Revocation.FailClosed,
		LoginGuardFailOpen:    cfg.Login.FailOpen,
		MaxLoginAttempts:      cfg.Login.MaxAttempts,
		LoginWindow:           cfg.Login.Window,
		EmailChangeRequireOTP: cfg.EmailChange.RequireOTP,
		CookiesSecure:         cfg.Session.CookieSecure,
		AuditEnabled:          cfg.Audit.Enabled,
	})
}
