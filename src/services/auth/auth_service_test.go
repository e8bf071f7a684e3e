package auth

import (
	"context"
	"testing"
	"time"

	"go-order-api/src/apperrors"
	"go-order-api/src/infrastructure/log"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepository struct {
	byEmail map[string]*User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{byEmail: map[string]*User{}}
}

func (r *fakeUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepository) Insert(_ context.Context, user *User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return apperrors.NewConflictError("user", user.Email)
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepository) UpdateTOTPSecret(_ context.Context, userID, secret string) error {
	for _, user := range r.byEmail {
		if user.ID == userID {
			user.TOTPSecret = secret
			return nil
		}
	}
	return apperrors.NewNotFoundError("user", userID)
}

type authFixture struct {
	service AuthService
	users   *fakeUserRepository
	tokens  *TokenManager
	totp    *TOTPAuthenticator
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  newFakeUserRepository(),
		tokens: NewTokenManager("test-secret", "OrderDeskApp", time.Hour, 5*time.Minute),
		totp:   NewTOTPAuthenticator("OrderDeskApp"),
	}
	f.service = NewAuthService(log.NewLogger(), f.users, f.tokens, f.totp)
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *User {
	t.Helper()
	require.NoError(t, f.service.Register(context.Background(), email, password))
	return f.users.byEmail[email]
}

// enableTOTP stores a known secret directly, as EnableTwoFactor would.
func (f *authFixture) enableTOTP(t *testing.T, email string) string {
	t.Helper()
	secret, _, err := f.totp.GenerateSecret(email)
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateTOTPSecret(context.Background(), f.users.byEmail[email].ID, secret))
	return secret
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestRegister(t *testing.T) {
	t.Run("stores a bcrypt hash, never the password", func(t *testing.T) {
		f := newAuthFixture()
		user := f.register(t, "bob@example.com", "s3cret")

		assert.NotEqual(t, "s3cret", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
		assert.False(t, user.TOTPEnabled())
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newAuthFixture()
		assert.True(t, apperrors.IsValidationError(f.service.Register(context.Background(), "", "pw")))
		assert.True(t, apperrors.IsValidationError(f.service.Register(context.Background(), "a@b.c", "")))
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")

		err := f.service.Register(context.Background(), "bob@example.com", "other")
		assert.True(t, apperrors.IsConflictError(err))
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials yield a session token", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")

		result, err := f.service.Login(context.Background(), "bob@example.com", "s3cret")
		require.NoError(t, err)
		assert.False(t, result.TwoFARequired)

		claims, err := f.tokens.Parse(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", claims.Subject)
		assert.False(t, claims.TwoFAPending)
	})

	t.Run("unknown user and wrong password fail identically", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")

		_, unknownErr := f.service.Login(context.Background(), "nobody@example.com", "s3cret")
		_, wrongErr := f.service.Login(context.Background(), "bob@example.com", "wrong")

		assert.True(t, apperrors.IsAuthError(unknownErr))
		assert.True(t, apperrors.IsAuthError(wrongErr))
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})

	t.Run("totp-enabled account gets a pending token only", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")
		f.enableTOTP(t, "bob@example.com")

		result, err := f.service.Login(context.Background(), "bob@example.com", "s3cret")
		require.NoError(t, err)
		assert.True(t, result.TwoFARequired)
		assert.Empty(t, result.Token)

		claims, err := f.tokens.Parse(result.TempToken)
		require.NoError(t, err)
		assert.True(t, claims.TwoFAPending)
	})
}

func TestVerifyTwoFactorLogin(t *testing.T) {
	t.Run("pending token plus valid code yields a session", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")
		secret := f.enableTOTP(t, "bob@example.com")

		result, err := f.service.Login(context.Background(), "bob@example.com", "s3cret")
		require.NoError(t, err)

		token, err := f.service.VerifyTwoFactorLogin(context.Background(), result.TempToken, currentCode(t, secret))
		require.NoError(t, err)

		claims, err := f.tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", claims.Subject)
		assert.False(t, claims.TwoFAPending)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")
		f.enableTOTP(t, "bob@example.com")

		result, err := f.service.Login(context.Background(), "bob@example.com", "s3cret")
		require.NoError(t, err)

		_, err = f.service.VerifyTwoFactorLogin(context.Background(), result.TempToken, "000000")
		assert.True(t, apperrors.IsAuthError(err))
	})

	t.Run("session token cannot stand in for a pending token", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")
		secret := f.enableTOTP(t, "bob@example.com")

		session, err := f.tokens.IssueSession("bob@example.com")
		require.NoError(t, err)

		_, err = f.service.VerifyTwoFactorLogin(context.Background(), session, currentCode(t, secret))
		assert.True(t, apperrors.IsAuthError(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.VerifyTwoFactorLogin(context.Background(), "", "123456")
		assert.True(t, apperrors.IsValidationError(err))
	})
}

func TestTwoFactorLifecycle(t *testing.T) {
	t.Run("setup persists nothing", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")

		setup, err := f.service.SetupTwoFactor(context.Background(), "bob@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, setup.Secret)
		assert.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
		assert.False(t, f.users.byEmail["bob@example.com"].TOTPEnabled())
	})

	t.Run("enable requires a valid code for the provided secret", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")

		setup, err := f.service.SetupTwoFactor(context.Background(), "bob@example.com")
		require.NoError(t, err)

		err = f.service.EnableTwoFactor(context.Background(), "bob@example.com", setup.Secret, "000000")
		assert.True(t, apperrors.IsValidationError(err))
		assert.False(t, f.users.byEmail["bob@example.com"].TOTPEnabled())

		err = f.service.EnableTwoFactor(context.Background(), "bob@example.com", setup.Secret, currentCode(t, setup.Secret))
		require.NoError(t, err)
		assert.True(t, f.users.byEmail["bob@example.com"].TOTPEnabled())
		assert.Equal(t, setup.Secret, f.users.byEmail["bob@example.com"].TOTPSecret)
	})

	t.Run("disable clears the secret", func(t *testing.T) {
		f := newAuthFixture()
		f.register(t, "bob@example.com", "s3cret")
		f.enableTOTP(t, "bob@example.com")

		require.NoError(t, f.service.DisableTwoFactor(context.Background(), "bob@example.com"))
		assert.False(t, f.users.byEmail["bob@example.com"].TOTPEnabled())

		// Subsequent logins fall back to single-factor.
		result, err := f.service.Login(context.Background(), "bob@example.com", "s3cret")
		require.NoError(t, err)
		assert.False(t, result.TwoFARequired)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.SetupTwoFactor(context.Background(), "nobody@example.com")
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}
