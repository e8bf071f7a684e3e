package auth

import (
	"context"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is the outcome of a successful password check. Either Token is
// set (TOTP disabled) or TwoFARequired is true and TempToken carries the
// pending token for the verification step.
type LoginResult struct {
	Token         string
	TwoFARequired bool
	TempToken     string
}

// TOTPSetup is a freshly generated, not yet persisted two-factor secret with
// its provisioning URI.
type TOTPSetup struct {
	Secret          string
	ProvisioningURI string
}

type AuthService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyTwoFactorLogin(ctx context.Context, tempToken, code string) (string, error)
	SetupTwoFactor(ctx context.Context, email string) (*TOTPSetup, error)
	EnableTwoFactor(ctx context.Context, email, secret, code string) error
	DisableTwoFactor(ctx context.Context, email string) error
}

type authService struct {
	logger log.Logger
	users  UserRepository
	tokens *TokenManager
	totp   *TOTPAuthenticator
}

func NewAuthService(logger log.Logger, users UserRepository, tokens *TokenManager, totp *TOTPAuthenticator) AuthService {
	return &authService{
		logger: logger,
		users:  users,
		tokens: tokens,
		totp:   totp,
	}
}

// Register creates a new account with a hashed password.
func (s *authService) Register(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return apperrors.NewValidationError("missing email or password")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.NewConflictError("user", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return err
	}

	s.logger.InfoWithExtra(ctx, "User registered", map[string]any{"UserId": user.ID})
	return nil
}

// Login verifies credentials. Unknown user and wrong password produce the
// same generic message so the endpoint cannot be used to enumerate accounts.
// Accounts with TOTP enabled get a pending token instead of a session.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("missing credentials")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.NewAuthError("invalid credentials")
	}

	if user.TOTPEnabled() {
		tempToken, err := s.tokens.IssuePending(user.Email)
		if err != nil {
			return nil, err
		}
		s.logger.InfoWithExtra(ctx, "Password verified, 2FA pending", map[string]any{"UserId": user.ID})
		return &LoginResult{TwoFARequired: true, TempToken: tempToken}, nil
	}

	token, err := s.tokens.IssueSession(user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token}, nil
}

// VerifyTwoFactorLogin exchanges a pending token plus a valid TOTP code for
// a full session token.
func (s *authService) VerifyTwoFactorLogin(ctx context.Context, tempToken, code string) (string, error) {
	if tempToken == "" || code == "" {
		return "", apperrors.NewValidationError("missing token or code")
	}

	claims, err := s.tokens.Parse(tempToken)
	if err != nil {
		return "", err
	}
	if !claims.TwoFAPending {
		return "", apperrors.NewAuthError("invalid token type")
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperrors.NewNotFoundError("user", claims.Subject)
	}

	if !s.totp.VerifyCode(user.TOTPSecret, code) {
		s.logger.WarnWithExtra(ctx, "2FA code rejected", map[string]any{"UserId": user.ID})
		return "", apperrors.NewAuthError("invalid 2FA code")
	}

	s.logger.InfoWithExtra(ctx, "2FA login completed", map[string]any{"UserId": user.ID})
	return s.tokens.IssueSession(user.Email)
}

// SetupTwoFactor generates a fresh secret and provisioning URI for an
// authenticated user. The secret is only persisted by EnableTwoFactor.
func (s *authService) SetupTwoFactor(ctx context.Context, email string) (*TOTPSetup, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", email)
	}

	secret, uri, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: secret, ProvisioningURI: uri}, nil
}

// EnableTwoFactor verifies the code against the provided, not yet stored
// secret and persists it on success. Only then is TOTP considered enabled.
func (s *authService) EnableTwoFactor(ctx context.Context, email, secret, code string) error {
	if secret == "" || code == "" {
		return apperrors.NewValidationError("missing secret or code")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NewNotFoundError("user", email)
	}

	if !s.totp.VerifyCode(secret, code) {
		return apperrors.NewValidationError("invalid code")
	}

	if err := s.users.UpdateTOTPSecret(ctx, user.ID, secret); err != nil {
		return err
	}

	s.logger.InfoWithExtra(ctx, "2FA enabled", map[string]any{"UserId": user.ID})
	return nil
}

// DisableTwoFactor clears the stored secret unconditionally. No re-proof of
// possession is required.
func (s *authService) DisableTwoFactor(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NewNotFoundError("user", email)
	}

	if err := s.users.UpdateTOTPSecret(ctx, user.ID, ""); err != nil {
		return err
	}

	s.logger.InfoWithExtra(ctx, "2FA disabled", map[string]any{"UserId": user.ID})
	return nil
}
