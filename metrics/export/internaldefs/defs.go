package internaldefs

import (
	jobAuth "github.com/MrEthical07/jobAuth"
)

// CounterDef maps a counter to its exported name.
type CounterDef struct {
	ID   jobAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps a latency histogram to its exported name.
type HistogramDef struct {
	ID   jobAuth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: jobAuth.MetricLoginSuccess, Name: "jobauth_login_success_total", Help: "Successful password logins."},
	{ID: jobAuth.MetricLoginFailure, Name: "jobauth_login_failure_total", Help: "Failed password logins."},
	{ID: jobAuth.MetricLoginRateLimited, Name: "jobauth_login_rate_limited_total", Help: "Logins rejected by the brute-force guard."},
	{ID: jobAuth.MetricLoginNotActivated, Name: "jobauth_login_not_activated_total", Help: "Logins rejected because the account is not activated."},
	{ID: jobAuth.MetricPasswordRehashed, Name: "jobauth_password_rehashed_total", Help: "Password hashes upgraded to current argon2 parameters at login."},
	{ID: jobAuth.MetricRefreshSuccess, Name: "jobauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: jobAuth.MetricRefreshFailure, Name: "jobauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: jobAuth.MetricVerifyFailure, Name: "jobauth_verify_failure_total", Help: "Access tokens rejected by Verify."},
	{ID: jobAuth.MetricRevocationReadFailed, Name: "jobauth_revocation_read_failed_total", Help: "Revocation registry reads that failed."},
	{ID: jobAuth.MetricRevocationWriteFailed, Name: "jobauth_revocation_write_failed_total", Help: "Revocation registry writes that failed."},
	{ID: jobAuth.MetricLogout, Name: "jobauth_logout_total", Help: "Logout operations."},
	{ID: jobAuth.MetricRegisterSuccess, Name: "jobauth_register_success_total", Help: "Successful registrations."},
	{ID: jobAuth.MetricRegisterDuplicate, Name: "jobauth_register_duplicate_total", Help: "Registrations rejected for an email already in use."},
	{ID: jobAuth.MetricRegisterFailure, Name: "jobauth_register_failure_total", Help: "Registrations that failed for other reasons."},
	{ID: jobAuth.MetricActivationSuccess, Name: "jobauth_activation_success_total", Help: "Accounts activated."},
	{ID: jobAuth.MetricActivationFailure, Name: "jobauth_activation_failure_total", Help: "Failed activation attempts."},
	{ID: jobAuth.MetricActivationResent, Name: "jobauth_activation_resent_total", Help: "Activation mails resent."},
	{ID: jobAuth.MetricActivationResendThrottled, Name: "jobauth_activation_resend_throttled_total", Help: "Resend requests rejected by the cooldown."},
	{ID: jobAuth.MetricPasswordResetRequest, Name: "jobauth_password_reset_request_total", Help: "Forgot-password requests."},
	{ID: jobAuth.MetricPasswordResetSuccess, Name: "jobauth_password_reset_success_total", Help: "Successful password resets."},
	{ID: jobAuth.MetricPasswordResetFailure, Name: "jobauth_password_reset_failure_total", Help: "Failed password resets."},
	{ID: jobAuth.MetricPasswordChangeSuccess, Name: "jobauth_password_change_success_total", Help: "Successful password changes."},
	{ID: jobAuth.MetricPasswordChangeInvalidOld, Name: "jobauth_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: jobAuth.MetricSSOLoginSuccess, Name: "jobauth_sso_login_success_total", Help: "Successful SSO logins."},
	{ID: jobAuth.MetricSSOLoginFailure, Name: "jobauth_sso_login_failure_total", Help: "Failed SSO logins."},
	{ID: jobAuth.MetricSSOAccountCreated, Name: "jobauth_sso_account_created_total", Help: "Accounts created through SSO."},
	{ID: jobAuth.MetricSSOProviderConflict, Name: "jobauth_sso_provider_conflict_total", Help: "SSO logins hitting a local account."},
	{ID: jobAuth.MetricSSOPasswordSet, Name: "jobauth_sso_password_set_total", Help: "SSO accounts converted to password login."},
	{ID: jobAuth.MetricEmailChangeSuccess, Name: "jobauth_email_change_success_total", Help: "Successful email changes."},
	{ID: jobAuth.MetricEmailChangeFailure, Name: "jobauth_email_change_failure_total", Help: "Failed email changes."},
	{ID: jobAuth.MetricOTPSent, Name: "jobauth_otp_sent_total", Help: "One-time codes sent."},
	{ID: jobAuth.MetricOTPFailure, Name: "jobauth_otp_failure_total", Help: "Failed one-time code verifications."},
	{ID: jobAuth.MetricRateLimitHit, Name: "jobauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: jobAuth.MetricServiceTokenVerified, Name: "jobauth_service_token_verified_total", Help: "Inter-service token verifications."},
	{ID: jobAuth.MetricMailerFailure, Name: "jobauth_mailer_failure_total", Help: "Mail deliveries that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: jobAuth.MetricVerifyLatency, Name: "jobauth_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
