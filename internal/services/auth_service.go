package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
	"wingyshop/internal/validation"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/metrics"
)

// SignupInput is the body of a registration request.
type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,username"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed token together with the local user it was issued for.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Identity is the local user a token was issued for.
type Identity struct {
	UserID   uint
	Username string
}

// AuthService bridges Wingy Coin accounts to local users and session tokens.
type AuthService struct {
	users     repositories.UserRepository
	gateway   BalanceGateway
	validate  *validator.Validate
	jwtSecret []byte
	tokenTTL  time.Duration
	log       logger.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repositories.UserRepository, gateway BalanceGateway, jwtSecret string, tokenTTL time.Duration, log logger.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		gateway:   gateway,
		validate:  validation.New(),
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Signup creates the account upstream, then creates or reuses the local user linked to it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	username := strings.ToLower(in.Username)

	if existing, err := s.users.GetUserByUsername(username); err == nil && !strings.EqualFold(existing.Email, in.Email) {
		return nil, fmt.Errorf("username '%s' already taken: %w", username, models.ErrConflict)
	}

	wingyID, err := s.gateway.Signup(ctx, in.Email, in.Password, username)
	metrics.RecordGatewayCall("signup", err)
	if err != nil {
		s.log.Warn("wingy coin signup rejected", map[string]interface{}{"email": in.Email, "error": err})
		return nil, fmt.Errorf("signup: %w", err)
	}

	user, err := s.users.GetUserByEmail(in.Email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		user = &models.User{
			Username:        username,
			Email:           in.Email,
			Password:        models.ExternalPassword,
			WingyCoinUserID: &wingyID,
		}
		if err := s.users.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		if err := s.link(user, wingyID); err != nil {
			return nil, err
		}
	}

	s.log.Info("user registered", map[string]interface{}{"user_id": user.ID, "username": user.Username})
	return s.session(user)
}

// Login checks credentials upstream and resolves, or lazily creates, the local user by email.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	account, err := s.gateway.Login(ctx, in.Email, in.Password)
	metrics.RecordGatewayCall("login", err)
	if err != nil {
		if isCredentialFailure(err) {
			return nil, models.ErrInvalidCredentials
		}
		s.log.Error("wingy coin login failed", map[string]interface{}{"email": in.Email, "error": err})
		// Not wrapped: anything other than bad credentials is a server error to the caller.
		return nil, fmt.Errorf("wingy coin login failed: %v", err)
	}

	email := account.Email
	if email == "" {
		email = in.Email
	}

	user, err := s.users.GetUserByEmail(email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		username, err := s.availableUsername(usernameFromEmail(email))
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Username:        username,
			Email:           email,
			Password:        models.ExternalPassword,
			WingyCoinUserID: &account.ID,
		}
		if err := s.users.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		if err := s.link(user, account.ID); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateUserWingyBalance(user.ID, account.Wingy, account.CompletedAds); err != nil {
		return nil, fmt.Errorf("failed to mirror balance: %w", err)
	}
	user.WingyBalance = account.Wingy
	user.CompletedAds = account.CompletedAds

	return s.session(user)
}

// link sets the external id only when the user has none.
func (s *AuthService) link(user *models.User, wingyID string) error {
	if user.HasWingyCoinID() || wingyID == "" {
		return nil
	}
	if err := s.users.UpdateUserWingyCoinID(user.ID, wingyID); err != nil {
		return fmt.Errorf("failed to link wingy coin account: %w", err)
	}
	user.WingyCoinUserID = &wingyID
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Token: tokenString, User: user}, nil
}

// ValidateToken parses and validates a session token.
func (s *AuthService) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, models.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", models.ErrUnauthenticated)
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return nil, fmt.Errorf("token has no user id: %w", models.ErrUnauthenticated)
	}
	username, _ := claims["username"].(string)
	return &Identity{UserID: uint(id), Username: username}, nil
}

// RequireAdmin fails with ErrForbidden unless userID belongs to an admin.
func (s *AuthService) RequireAdmin(userID uint) error {
	user, err := s.users.GetUser(userID)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("admin access required: %w", models.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return fmt.Errorf("admin access required: %w", models.ErrForbidden)
	}
	return nil
}

// usernameFromEmail turns the local part of an email into an acceptable username.
func usernameFromEmail(email string) string {
	local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, local)
	for {
		stripped := strings.NewReplacer("gmail", "", "com", "").Replace(name)
		if stripped == name {
			break
		}
		name = stripped
	}
	if len(name) < 3 {
		name = "user" + name
	}
	return name
}

// availableUsername returns base, or base with the lowest numeric suffix not yet taken.
func (s *AuthService) availableUsername(base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		_, err := s.users.GetUserByUsername(candidate)
		if errors.Is(err, models.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to look up username: %w", err)
		}
		candidate = base + strconv.Itoa(n)
	}
}
