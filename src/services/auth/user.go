package auth

import "context"

// User is an account. TOTPSecret is empty until two-factor login has been
// enabled through the setup/enable flow.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	TOTPSecret   string
}

// TOTPEnabled reports whether two-factor login is active for this account.
func (u *User) TOTPEnabled() bool {
	return u.TOTPSecret != ""
}

// UserRepository is the persistence boundary for accounts. FindByEmail
// returns (nil, nil) on a miss; Insert returns apperrors.ConflictError when
// the email is already registered.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
	UpdateTOTPSecret(ctx context.Context, userID, secret string) error
}
