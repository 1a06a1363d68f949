package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"listings/internal/auth"
	apperrors "listings/internal/errors"
	"listings/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User, password string) error {
	args := m.Called(ctx, user, password)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByDisplayName(ctx context.Context, name string) (*model.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockRoleRepository is a mock implementation of RoleRepository.
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Ensure(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleRepository) AddUser(ctx context.Context, user *model.User, role *model.Role) error {
	args := m.Called(ctx, user, role)
	return args.Error(0)
}

// MockRefreshTokenRepository is a mock implementation of RefreshTokenRepository.
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) FindByEmail(ctx context.Context, email string) (*model.RefreshToken, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Upsert(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteByEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type authServiceMocks struct {
	users         *MockUserRepository
	roles         *MockRoleRepository
	refreshTokens *MockRefreshTokenRepository
	tokenStore    *MockTokenStore
}

func newAuthService(t *testing.T) (AuthService, *authServiceMocks) {
	t.Helper()
	m := &authServiceMocks{
		users:         new(MockUserRepository),
		roles:         new(MockRoleRepository),
		refreshTokens: new(MockRefreshTokenRepository),
		tokenStore:    new(MockTokenStore),
	}
	svc := NewAuthService(m.users, m.roles, m.refreshTokens, auth.NewJWTService("test-secret"), m.tokenStore)
	return svc, m
}

func (m *authServiceMocks) assertExpectations(t *testing.T) {
	m.users.AssertExpectations(t)
	m.roles.AssertExpectations(t)
	m.refreshTokens.AssertExpectations(t)
	m.tokenStore.AssertExpectations(t)
}

func TestAuthService_Register(t *testing.T) {
	userRole := &model.Role{ID: "role-1", Name: DefaultRole}

	tests := []struct {
		name        string
		displayName string
		email       string
		password    string
		setupMocks  func(*authServiceMocks)
		expected    RegisterResult
	}{
		{
			name:        "successful registration",
			displayName: "newuser",
			email:       "new@example.com",
			password:    "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User"), "Secret123").Return(nil)
				m.roles.On("Ensure", mock.Anything, DefaultRole).Return(userRole, nil)
				m.roles.On("AddUser", mock.Anything, mock.AnythingOfType("*model.User"), userRole).Return(nil)
			},
			expected: RegisterResult{Success: true},
		},
		{
			name:        "display name at lower bound",
			displayName: "abcd",
			email:       "abcd@example.com",
			password:    "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User"), "Secret123").Return(nil)
				m.roles.On("Ensure", mock.Anything, DefaultRole).Return(userRole, nil)
				m.roles.On("AddUser", mock.Anything, mock.AnythingOfType("*model.User"), userRole).Return(nil)
			},
			expected: RegisterResult{Success: true},
		},
		{
			name:        "display name at upper bound",
			displayName: strings.Repeat("a", 16),
			email:       "long@example.com",
			password:    "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User"), "Secret123").Return(nil)
				m.roles.On("Ensure", mock.Anything, DefaultRole).Return(userRole, nil)
				m.roles.On("AddUser", mock.Anything, mock.AnythingOfType("*model.User"), userRole).Return(nil)
			},
			expected: RegisterResult{Success: true},
		},
		{
			name:        "display name too short",
			displayName: "abc",
			email:       "abc@example.com",
			password:    "Secret123",
			setupMocks:  func(m *authServiceMocks) {},
			expected:    RegisterResult{DisplayNameError: msgDisplayNameTooShort},
		},
		{
			name:        "display name too long",
			displayName: strings.Repeat("a", 17),
			email:       "toolong@example.com",
			password:    "Secret123",
			setupMocks:  func(m *authServiceMocks) {},
			expected:    RegisterResult{DisplayNameError: msgDisplayNameTooLong},
		},
		{
			name:        "password too long trumps valid display name",
			displayName: "validname",
			email:       "valid@example.com",
			password:    strings.Repeat("x", 33),
			setupMocks:  func(m *authServiceMocks) {},
			expected:    RegisterResult{PasswordError: msgPasswordTooLong},
		},
		{
			name:        "duplicate email reported inline",
			displayName: "newuser",
			email:       "taken@example.com",
			password:    "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User"), "Secret123").
					Return(apperrors.NewCredentialError("Email 'taken@example.com' is already taken."))
			},
			expected: RegisterResult{Error: "Email 'taken@example.com' is already taken."},
		},
		{
			name:        "policy violations aggregated",
			displayName: "newuser",
			email:       "weak@example.com",
			password:    "weakpass",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User"), "weakpass").
					Return(apperrors.NewCredentialError(
						"Passwords must have at least one digit ('0'-'9').",
						"Passwords must have at least one uppercase ('A'-'Z').",
					))
			},
			expected: RegisterResult{
				Error: "Passwords must have at least one digit ('0'-'9'). : Passwords must have at least one uppercase ('A'-'Z').",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks := newAuthService(t)
			tt.setupMocks(mocks)

			result, err := svc.Register(context.Background(), tt.displayName, tt.email, tt.password)

			assert.NoError(t, err)
			assert.Equal(t, &tt.expected, result)
			mocks.assertExpectations(t)
		})
	}
}

func TestAuthService_Register_AggregatedErrorHasNoTrailingSeparator(t *testing.T) {
	svc, mocks := newAuthService(t)
	mocks.users.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.NewCredentialError("first", "second", "third"))

	result, err := svc.Register(context.Background(), "newuser", "a@b.com", "Secret123")

	assert.NoError(t, err)
	assert.Equal(t, "first : second : third", result.Error)
	assert.False(t, strings.HasSuffix(result.Error, " : "))
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Secret123"), 10)
	assert.NoError(t, err)
	user := &model.User{
		ID:           "user-1",
		DisplayName:  "somebody",
		Email:        "user@example.com",
		PasswordHash: string(hashed),
	}

	tests := []struct {
		name        string
		email       string
		password    string
		rememberMe  bool
		setupMocks  func(*authServiceMocks)
		expectedErr error
	}{
		{
			name:     "successful login without remember me",
			email:    "user@example.com",
			password: "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
			},
		},
		{
			name:       "remember me issues refresh token",
			email:      "user@example.com",
			password:   "Secret123",
			rememberMe: true,
			setupMocks: func(m *authServiceMocks) {
				m.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
				m.refreshTokens.On("Upsert", mock.Anything, "user@example.com", mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "Secret123",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedErr: ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "user@example.com",
			password: "WrongPass1",
			setupMocks: func(m *authServiceMocks) {
				m.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
			},
			expectedErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks := newAuthService(t)
			tt.setupMocks(mocks)

			result, err := svc.Login(context.Background(), tt.email, tt.password, tt.rememberMe)

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, user.Email, result.Email)
				assert.Equal(t, user.DisplayName, result.UserName)
				assert.NotEmpty(t, result.Token)
				if tt.rememberMe {
					assert.NotEmpty(t, result.RefreshToken)
				} else {
					assert.Empty(t, result.RefreshToken)
				}
			}
			mocks.assertExpectations(t)
		})
	}
}

// The failure message must not reveal whether the email exists.
func TestAuthService_Login_UniformFailureMessage(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Secret123"), 10)
	user := &model.User{ID: "user-1", Email: "user@example.com", PasswordHash: string(hashed)}

	svc, mocks := newAuthService(t)
	mocks.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
	mocks.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "Secret123", false)
	_, errWrongPass := svc.Login(context.Background(), "user@example.com", "WrongPass1", false)

	assert.EqualError(t, errUnknown, "Invalid email or password.")
	assert.EqualError(t, errWrongPass, "Invalid email or password.")
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestAuthService_Login_RememberMeRotatesToken(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Secret123"), 10)
	user := &model.User{ID: "user-1", DisplayName: "somebody", Email: "user@example.com", PasswordHash: string(hashed)}

	svc, mocks := newAuthService(t)
	mocks.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

	var issued []string
	mocks.refreshTokens.On("Upsert", mock.Anything, "user@example.com", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			issued = append(issued, args.String(2))
		}).
		Return(nil)

	first, err := svc.Login(context.Background(), "user@example.com", "Secret123", true)
	assert.NoError(t, err)
	second, err := svc.Login(context.Background(), "user@example.com", "Secret123", true)
	assert.NoError(t, err)

	// Every rotation persists a fresh value for the same email key.
	assert.Len(t, issued, 2)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, []string{first.RefreshToken, second.RefreshToken}, issued)
}

func TestAuthService_Refresh(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Secret123"), 10)
	user := &model.User{ID: "user-1", DisplayName: "somebody", Email: "user@example.com", PasswordHash: string(hashed)}
	stored := &model.RefreshToken{Email: "user@example.com", Token: "stored-token"}

	tests := []struct {
		name        string
		email       string
		token       string
		setupMocks  func(*authServiceMocks)
		expectedErr error
	}{
		{
			name:  "valid token exchanged and rotated",
			email: "user@example.com",
			token: "stored-token",
			setupMocks: func(m *authServiceMocks) {
				m.refreshTokens.On("FindByEmail", mock.Anything, "user@example.com").Return(stored, nil)
				m.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
				m.refreshTokens.On("Upsert", mock.Anything, "user@example.com", mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:  "mismatched token",
			email: "user@example.com",
			token: "some-other-token",
			setupMocks: func(m *authServiceMocks) {
				m.refreshTokens.On("FindByEmail", mock.Anything, "user@example.com").Return(stored, nil)
			},
			expectedErr: ErrInvalidRefreshToken,
		},
		{
			name:  "no stored token",
			email: "fresh@example.com",
			token: "anything",
			setupMocks: func(m *authServiceMocks) {
				m.refreshTokens.On("FindByEmail", mock.Anything, "fresh@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedErr: ErrInvalidRefreshToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks := newAuthService(t)
			tt.setupMocks(mocks)

			result, err := svc.Refresh(context.Background(), tt.email, tt.token)

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, result.Token)
				assert.NotEmpty(t, result.RefreshToken)
				assert.NotEqual(t, tt.token, result.RefreshToken)
			}
			mocks.assertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, mocks := newAuthService(t)
	mocks.refreshTokens.On("DeleteByEmail", mock.Anything, "user@example.com").Return(nil)
	mocks.tokenStore.On("BlacklistAccessToken", mock.Anything, "jti-1", 10*time.Minute).Return(nil)

	err := svc.Logout(context.Background(), "user@example.com", "jti-1", 10*time.Minute)

	assert.NoError(t, err)
	mocks.assertExpectations(t)
}

func TestAuthService_AvailabilityChecks(t *testing.T) {
	existing := &model.User{ID: "user-1", DisplayName: "somebody", Email: "user@example.com"}

	svc, mocks := newAuthService(t)
	mocks.users.On("FindByDisplayName", mock.Anything, "somebody").Return(existing, nil)
	mocks.users.On("FindByDisplayName", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)
	mocks.users.On("FindByEmail", mock.Anything, "user@example.com").Return(existing, nil)
	mocks.users.On("FindByEmail", mock.Anything, "fresh@example.com").Return(nil, gorm.ErrRecordNotFound)

	available, err := svc.IsDisplayNameAvailable(context.Background(), "somebody")
	assert.NoError(t, err)
	assert.False(t, available)

	available, err = svc.IsDisplayNameAvailable(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.True(t, available)

	available, err = svc.IsEmailAvailable(context.Background(), "user@example.com")
	assert.NoError(t, err)
	assert.False(t, available)

	available, err = svc.IsEmailAvailable(context.Background(), "fresh@example.com")
	assert.NoError(t, err)
	assert.True(t, available)

	// Lookups only; no writes may happen on availability checks.
	mocks.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	mocks.assertExpectations(t)
}
