package models

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TwoFactorLoginRequest exchanges a pending token plus TOTP code for a
// session token.
type TwoFactorLoginRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// TwoFactorEnableRequest carries the not-yet-stored secret and the current
// code proving possession.
type TwoFactorEnableRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}
