package domain

import (
	"errors"
	"strings"
	"time"
)

type User struct {
	ID              string
	Email           string
	PasswordHash    string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(id, email, passwordHash string) (*User, error) {
	if id == "" || email == "" || passwordHash == "" {
		return nil, errors.New("invalid user data")
	}
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) MarkEmailVerified() {
	if u.IsEmailVerified {
		return
	}
	u.IsEmailVerified = true
	u.UpdatedAt = time.Now().UTC()
}

func (u *User) ChangePassword(passwordHash string) {
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
}
