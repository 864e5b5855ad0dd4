package services_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wingyshop/internal/models"
	"wingyshop/internal/services"
	"wingyshop/pkg/wingycoin"
)

func TestAuthService_Signup(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Signup", mock.Anything, "go1@example.com", "secret1", "go1").Return("ext-1", nil).Once()

	session, err := f.auth.Signup(ctx(), services.SignupInput{Email: "go1@example.com", Password: "secret1", Username: "Go1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "go1", session.User.Username)
	require.NotNil(t, session.User.WingyCoinUserID)
	assert.Equal(t, "ext-1", *session.User.WingyCoinUserID)
	assert.Equal(t, "0.00", session.User.Balance)

	stored, err := f.store.GetUserByUsername("go1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, stored.ID)

	identity, err := f.auth.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, identity.UserID)
	assert.Equal(t, "go1", identity.Username)
	f.gateway.AssertExpectations(t)
}

func TestAuthService_SignupRejectsUsernames(t *testing.T) {
	tests := []struct {
		name     string
		username string
	}{
		{"too short", "go"},
		{"contains gmail", "mygmail1"},
		{"contains com", "dotCOMer"},
		{"not alphanumeric", "go_pher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.auth.Signup(ctx(), services.SignupInput{Email: "a@example.com", Password: "secret1", Username: tt.username})

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "username", verr.Field)
			f.gateway.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_SignupGatewayRejection(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Signup", mock.Anything, "a@example.com", "secret1", "gopher").
		Return("", &wingycoin.GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: "User already registered"}).Once()

	_, err := f.auth.Signup(ctx(), services.SignupInput{Email: "a@example.com", Password: "secret1", Username: "gopher"})
	var gwErr *wingycoin.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "User already registered", gwErr.Message)

	_, err = f.store.GetUserByUsername("gopher")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthService_SignupReusesLocalUser(t *testing.T) {
	f := newFixture(t)
	existing := f.user(t, "gopher", "12.00")
	f.gateway.On("Signup", mock.Anything, existing.Email, "secret1", "gopher").Return("ext-9", nil).Once()

	session, err := f.auth.Signup(ctx(), services.SignupInput{Email: existing.Email, Password: "secret1", Username: "gopher"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, session.User.ID)
	assert.Equal(t, "ext-9", *session.User.WingyCoinUserID)
	assert.Equal(t, "12.00", session.User.Balance)
}

func TestAuthService_SignupUsernameTakenByAnotherEmail(t *testing.T) {
	f := newFixture(t)
	f.user(t, "gopher", "")

	_, err := f.auth.Signup(ctx(), services.SignupInput{Email: "other@example.com", Password: "secret1", Username: "gopher"})
	assert.ErrorIs(t, err, models.ErrConflict)
	f.gateway.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_LoginCreatesUserFromEmail(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Login", mock.Anything, "john.doe@example.com", "pw").
		Return(&wingycoin.User{ID: "ext-1", Email: "john.doe@example.com", Wingy: decimal.RequireFromString("3.5"), CompletedAds: 7}, nil).Once()
	f.gateway.On("Login", mock.Anything, "john.doe@other.io", "pw").
		Return(&wingycoin.User{ID: "ext-2", Email: "john.doe@other.io"}, nil).Once()

	first, err := f.auth.Login(ctx(), services.LoginInput{Email: "john.doe@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "johndoe", first.User.Username)
	assert.Equal(t, "ext-1", *first.User.WingyCoinUserID)
	assert.True(t, first.User.WingyBalance.Equal(decimal.RequireFromString("3.5")))
	assert.Equal(t, 7, first.User.CompletedAds)

	second, err := f.auth.Login(ctx(), services.LoginInput{Email: "john.doe@other.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "johndoe2", second.User.Username)
	assert.NotEqual(t, first.User.ID, second.User.ID)
}

func TestAuthService_LoginDerivedUsernameIsAcceptable(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Login", mock.Anything, "jo@gmail.com", "pw").
		Return(&wingycoin.User{ID: "ext-1", Email: "jo@gmail.com"}, nil).Once()

	session, err := f.auth.Login(ctx(), services.LoginInput{Email: "jo@gmail.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "userjo", session.User.Username)
}

func TestAuthService_LoginLinksExistingUser(t *testing.T) {
	f := newFixture(t)
	existing := f.user(t, "gopher", "")
	f.gateway.On("Login", mock.Anything, existing.Email, "pw").
		Return(&wingycoin.User{ID: "ext-1", Email: existing.Email}, nil).Once()

	session, err := f.auth.Login(ctx(), services.LoginInput{Email: existing.Email, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, session.User.ID)
	assert.Equal(t, "gopher", session.User.Username)
	assert.Equal(t, "ext-1", *session.User.WingyCoinUserID)

	// An external id, once set, is never replaced.
	f.gateway.ExpectedCalls = nil
	f.gateway.On("Login", mock.Anything, existing.Email, "pw").
		Return(&wingycoin.User{ID: "ext-other", Email: existing.Email}, nil).Once()
	session, err = f.auth.Login(ctx(), services.LoginInput{Email: existing.Email, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", *session.User.WingyCoinUserID)
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Login", mock.Anything, "a@example.com", "wrong").
		Return(nil, &wingycoin.GatewayError{Op: "login", StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}).Once()
	f.gateway.On("Login", mock.Anything, "a@example.com", "pw").
		Return(nil, &wingycoin.GatewayError{Op: "login", Message: "connection refused"}).Once()

	_, err := f.auth.Login(ctx(), services.LoginInput{Email: "a@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx(), services.LoginInput{Email: "a@example.com", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	var gwErr *wingycoin.GatewayError
	assert.False(t, errors.As(err, &gwErr))

	_, err = f.auth.Login(ctx(), services.LoginInput{Email: "not-an-email", Password: "pw"})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuthService_ValidateToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1, "username": "x", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another_secret"))
	require.NoError(t, err)
	_, err = f.auth.ValidateToken(other)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1, "username": "x", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = f.auth.ValidateToken(expired)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestAuthService_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	user := f.user(t, "gopher", "")

	assert.NoError(t, f.auth.RequireAdmin(admin.ID))
	assert.ErrorIs(t, f.auth.RequireAdmin(user.ID), models.ErrForbidden)
	assert.ErrorIs(t, f.auth.RequireAdmin(999), models.ErrForbidden)
}
