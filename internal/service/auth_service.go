package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"listings/internal/auth"
	apperrors "listings/internal/errors"
	"listings/internal/model"
	"listings/internal/repository"
)

// DefaultRole is attached to every newly registered user.
const DefaultRole = "User"

// Display name and password bounds checked before the credential store is
// involved. The message strings are part of the wire contract.
const (
	displayNameMinLen = 4
	displayNameMaxLen = 16
	passwordMaxLen    = 32

	msgDisplayNameTooShort = "Display name has to be 4 characters or longer"
	msgDisplayNameTooLong  = "Display name has to be 4 to 16 characters long"
	msgPasswordTooLong     = "Password has to be 8 to 32 characters long"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords
	// alike; the message deliberately does not distinguish the two.
	ErrInvalidCredentials = errors.New("Invalid email or password.")
	// ErrInvalidRefreshToken is returned when a refresh token does not match
	// the stored one for the email.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// RegisterResult reports the outcome of a registration attempt. Field errors
// and aggregated store errors are data, not Go errors; only unexpected store
// failures surface as errors from Register.
type RegisterResult struct {
	Success          bool
	DisplayNameError string
	PasswordError    string
	Error            string
}

// LoginResult carries the identity and tokens issued by a successful login or
// refresh exchange. RefreshToken is empty unless remember-me was requested.
type LoginResult struct {
	Email        string
	UserName     string
	Token        string
	RefreshToken string
}

// AuthService implements the authentication flows.
type AuthService interface {
	Register(ctx context.Context, displayName, email, password string) (*RegisterResult, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error)
	Refresh(ctx context.Context, email, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, email, tokenID string, expiresIn time.Duration) error
	IsDisplayNameAvailable(ctx context.Context, name string) (bool, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
}

type authService struct {
	users         repository.UserRepository
	roles         repository.RoleRepository
	refreshTokens repository.RefreshTokenRepository
	jwtService    *auth.JWTService
	tokenStore    auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	refreshTokens repository.RefreshTokenRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) AuthService {
	return &authService{
		users:         users,
		roles:         roles,
		refreshTokens: refreshTokens,
		jwtService:    jwtService,
		tokenStore:    tokenStore,
	}
}

// Register validates the submitted fields, creates the user through the
// credential store and attaches the default role. Store rejections are
// aggregated into the result's Error field.
func (s *authService) Register(ctx context.Context, displayName, email, password string) (*RegisterResult, error) {
	if utf8.RuneCountInString(displayName) < displayNameMinLen {
		return &RegisterResult{DisplayNameError: msgDisplayNameTooShort}, nil
	}
	if utf8.RuneCountInString(displayName) > displayNameMaxLen {
		return &RegisterResult{DisplayNameError: msgDisplayNameTooLong}, nil
	}
	if utf8.RuneCountInString(password) > passwordMaxLen {
		return &RegisterResult{PasswordError: msgPasswordTooLong}, nil
	}

	user := &model.User{
		DisplayName: displayName,
		Email:       email,
	}

	if err := s.users.Create(ctx, user, password); err != nil {
		var credErr *apperrors.CredentialError
		if errors.As(err, &credErr) {
			return &RegisterResult{Error: credErr.Error()}, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.assignRole(ctx, user, DefaultRole); err != nil {
		return nil, fmt.Errorf("assign role %q: %w", DefaultRole, err)
	}

	return &RegisterResult{Success: true}, nil
}

// assignRole ensures the role exists and attaches it to the user. Both store
// calls are idempotent, so a missing role never fails the assignment.
func (s *authService) assignRole(ctx context.Context, user *model.User, name string) error {
	role, err := s.roles.Ensure(ctx, name)
	if err != nil {
		return err
	}
	return s.roles.AddUser(ctx, user, role)
}

// Login verifies the credentials and issues a bearer token. With rememberMe
// set it also issues a refresh token, rotating any existing one for the email.
func (s *authService) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	result := &LoginResult{
		Email:    user.Email,
		UserName: user.DisplayName,
		Token:    token,
	}

	if rememberMe {
		refreshToken, err := s.rotateRefreshToken(ctx, user.Email)
		if err != nil {
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
		result.RefreshToken = refreshToken
	}

	return result, nil
}

// rotateRefreshToken persists a fresh random token for the email, replacing
// any previous one. Two concurrent rotations both succeed; last write wins.
func (s *authService) rotateRefreshToken(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	if err := s.refreshTokens.Upsert(ctx, email, token); err != nil {
		return "", err
	}
	return token, nil
}

// Refresh exchanges a stored refresh token for a new bearer token. The
// refresh token is rotated on every successful exchange.
func (s *authService) Refresh(ctx context.Context, email, refreshToken string) (*LoginResult, error) {
	record, err := s.refreshTokens.FindByEmail(ctx, email)
	if err != nil || record.Token != refreshToken {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	token, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	rotated, err := s.rotateRefreshToken(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &LoginResult{
		Email:        user.Email,
		UserName:     user.DisplayName,
		Token:        token,
		RefreshToken: rotated,
	}, nil
}

// Logout drops the caller's refresh token and revokes the presenting bearer
// token until its natural expiry.
func (s *authService) Logout(ctx context.Context, email, tokenID string, expiresIn time.Duration) error {
	if err := s.refreshTokens.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return s.tokenStore.BlacklistAccessToken(ctx, tokenID, expiresIn)
}

// IsDisplayNameAvailable reports whether no user holds the display name.
func (s *authService) IsDisplayNameAvailable(ctx context.Context, name string) (bool, error) {
	_, err := s.users.FindByDisplayName(ctx, name)
	return available(err)
}

// IsEmailAvailable reports whether no user holds the email.
func (s *authService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	_, err := s.users.FindByEmail(ctx, email)
	return available(err)
}

func available(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	return false, err
}
