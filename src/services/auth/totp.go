package auth

import (
	"github.com/pquerna/otp/totp"
)

// TOTPAuthenticator generates and checks time-based one-time codes.
type TOTPAuthenticator struct {
	issuer string
}

func NewTOTPAuthenticator(issuer string) *TOTPAuthenticator {
	return &TOTPAuthenticator{issuer: issuer}
}

// GenerateSecret creates a fresh secret and the otpauth provisioning URI.
// The label is the account identifier, the issuer the fixed application
// name. Nothing is persisted here.
func (t *TOTPAuthenticator) GenerateSecret(account string) (secret, provisioningURI string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode checks a code against a secret at the current time step.
func (t *TOTPAuthenticator) VerifyCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
