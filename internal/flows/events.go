package flows

// Audit event types emitted by the flows.
const (
	EventLoginSuccess         = "login_success"
	EventLoginFailure         = "login_failure"
	EventLoginRateLimited     = "login_rate_limited"
	EventRefreshSuccess       = "refresh_success"
	EventRefreshInvalid       = "refresh_invalid"
	EventLogout               = "logout"
	EventRegister             = "account_registered"
	EventRegisterFailure      = "account_registration_failure"
	EventActivation           = "account_activation"
	EventActivationResend     = "activation_resend"
	EventPasswordResetRequest = "password_reset_request"
	EventPasswordResetConfirm = "password_reset_confirm"
	EventPasswordChange       = "password_change"
	EventSSOLogin             = "sso_login"
	EventSSOPasswordSet       = "sso_password_set"
	EventSSOOwnershipVerified = "sso_ownership_verified"
	EventEmailChange          = "email_change"
	EventOTPSent              = "otp_sent"
	EventOTPVerify            = "otp_verify"
	EventRateLimitTriggered   = "rate_limit_triggered"
	EventServiceTokenVerified = "service_token_verified"
)
