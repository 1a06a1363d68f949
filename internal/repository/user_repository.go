package repository

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "listings/internal/errors"
	"listings/internal/model"
)

const bcryptCost = 10

// Password policy descriptions, matching what clients already display.
const (
	descPasswordTooShort = "Passwords must be at least 8 characters."
	descPasswordNoDigit  = "Passwords must have at least one digit ('0'-'9')."
	descPasswordNoLower  = "Passwords must have at least one lowercase ('a'-'z')."
	descPasswordNoUpper  = "Passwords must have at least one uppercase ('A'-'Z')."
)

// UserRepository is the credential store. Create owns password hashing and
// policy enforcement; plaintext passwords never reach the users table.
type UserRepository interface {
	Create(ctx context.Context, user *model.User, password string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByDisplayName(ctx context.Context, name string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed credential store.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create validates the password against the policy, checks email and display
// name uniqueness, hashes the password and inserts the user. All violated
// rules are reported together as a single CredentialError.
func (r *userRepository) Create(ctx context.Context, user *model.User, password string) error {
	descriptions := validatePassword(password)

	if _, err := r.FindByEmail(ctx, user.Email); err == nil {
		descriptions = append(descriptions, fmt.Sprintf("Email '%s' is already taken.", user.Email))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check email uniqueness: %w", err)
	}

	if _, err := r.FindByDisplayName(ctx, user.DisplayName); err == nil {
		descriptions = append(descriptions, fmt.Sprintf("Username '%s' is already taken.", user.DisplayName))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check display name uniqueness: %w", err)
	}

	if len(descriptions) > 0 {
		return apperrors.NewCredentialError(descriptions...)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		// A concurrent registration can slip past the pre-checks; the unique
		// indexes are the source of truth.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			_, emailErr := r.FindByEmail(ctx, user.Email)
			_, nameErr := r.FindByDisplayName(ctx, user.DisplayName)
			return apperrors.NewCredentialError(duplicateDescriptions(emailErr == nil, nameErr == nil, user.Email, user.DisplayName)...)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// duplicateDescriptions names the unique constraint that fired. A re-check of
// both columns decides; when neither row is visible anymore (the conflicting
// registration was deleted in between) the email is reported as the likely
// cause.
func duplicateDescriptions(emailTaken, nameTaken bool, email, name string) []string {
	var descriptions []string
	if emailTaken {
		descriptions = append(descriptions, fmt.Sprintf("Email '%s' is already taken.", email))
	}
	if nameTaken {
		descriptions = append(descriptions, fmt.Sprintf("Username '%s' is already taken.", name))
	}
	if len(descriptions) == 0 {
		descriptions = append(descriptions, fmt.Sprintf("Email '%s' is already taken.", email))
	}
	return descriptions
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByDisplayName(ctx context.Context, name string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("display_name = ?", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// validatePassword returns a description per violated policy rule.
func validatePassword(password string) []string {
	var descriptions []string
	if len(password) < 8 {
		descriptions = append(descriptions, descPasswordTooShort)
	}

	var hasDigit, hasLower, hasUpper bool
	for _, c := range password {
		switch {
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsUpper(c):
			hasUpper = true
		}
	}
	if !hasDigit {
		descriptions = append(descriptions, descPasswordNoDigit)
	}
	if !hasLower {
		descriptions = append(descriptions, descPasswordNoLower)
	}
	if !hasUpper {
		descriptions = append(descriptions, descPasswordNoUpper)
	}
	return descriptions
}
