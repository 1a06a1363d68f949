package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"listings/internal/model"
)

// RefreshTokenRepository persists the single refresh token kept per email.
type RefreshTokenRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.RefreshToken, error)
	Upsert(ctx context.Context, email, token string) error
	DeleteByEmail(ctx context.Context, email string) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository builds a GORM-backed refresh token store.
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) FindByEmail(ctx context.Context, email string) (*model.RefreshToken, error) {
	var record model.RefreshToken
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert overwrites the token for the email in place, or inserts the first
// record. The old token value is invalid as soon as this returns.
func (r *refreshTokenRepository) Upsert(ctx context.Context, email, token string) error {
	existing, err := r.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := model.RefreshToken{Email: email, Token: token}
		return r.db.WithContext(ctx).Create(&record).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(existing).Update("token", token).Error
}

func (r *refreshTokenRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&model.RefreshToken{}).Error
}
