package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinBytes    int
}

type Report struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Argon2                PasswordReport
	RefreshRotation       bool
	RevocationFailClosed  bool
	LoginGuardFailOpen    bool
	LoginGuardActive      bool
	EmailChangeRequireOTP bool
	CookiesSecure         bool
	AuditEnabled          bool
	Warnings              []string
}

type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Password              PasswordReport
	RefreshRotation       bool
	RevocationFailClosed  bool
	LoginGuardFailOpen    bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	EmailChangeRequireOTP bool
	CookiesSecure         bool
	AuditEnabled          bool
}

// BuildReport derives a Report and flags settings that weaken the defaults.
func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		Argon2:                input.Password,
		RefreshRotation:       input.RefreshRotation,
		RevocationFailClosed:  input.RevocationFailClosed,
		LoginGuardFailOpen:    input.LoginGuardFailOpen,
		LoginGuardActive:      input.MaxLoginAttempts > 0 && input.LoginWindow > 0,
		EmailChangeRequireOTP: input.EmailChangeRequireOTP,
		CookiesSecure:         input.CookiesSecure,
		AuditEnabled:          input.AuditEnabled,
	}

	if input.LoginGuardFailOpen {
		r.Warnings = append(r.Warnings, "login guard admits attempts while the cache is unreachable")
	}
	if !input.CookiesSecure {
		r.Warnings = append(r.Warnings, "session cookies are sent without the Secure attribute")
	}
	if !input.EmailChangeRequireOTP {
		r.Warnings = append(r.Warnings, "email change does not require proof of the new address")
	}
	if input.Password.Memory < 19*1024 {
		r.Warnings = append(r.Warnings, "argon2id memory is below 19 MiB")
	}
	if input.Password.MinBytes < 8 {
		r.Warnings = append(r.Warnings, "minimum password length is below 8 bytes")
	}
	if input.SigningAlgorithm == "hs256" {
		r.Warnings = append(r.Warnings, "tokens are signed with a shared secret")
	}
	return r
}
