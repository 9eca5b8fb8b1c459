package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// User is a lab member able to open a session. Buyers may execute
// fulfillment actions; requesters only submit and answer requests.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:64;not null" json:"-"`
	IsBuyer      bool   `gorm:"not null;default:false" json:"is_buyer"`
}

func (User) TableName() string { return "users" }

// HashPassword derives the stored credential form.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return u.PasswordHash == HashPassword(password)
}
