package model

import "time"

// RefreshToken is the single long-lived credential kept per email. Logins with
// remember-me overwrite the token value in place rather than appending rows,
// so at most one token is ever valid for an account.
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Token     string    `json:"token" gorm:"type:char(36);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
