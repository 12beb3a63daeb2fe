package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a user in the system
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"firstName" db:"first_name"`
	LastName  string    `json:"lastName" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password_hash"` // Never return password in JSON
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the public identity attached to tasks and member listings.
type UserSummary struct {
	ID        string `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

// Summary projects the user down to its public identity.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

// UserRegisterRequest represents the request payload for user registration
type UserRegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	FirstName string `json:"firstName" validate:"required,min=3"`
	LastName  string `json:"lastName" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=24"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserLoginResponse represents the response payload for user login
type UserLoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// UserPatch carries the optional fields of PATCH /api/users/me.
type UserPatch struct {
	Username  *string `json:"username" validate:"omitnil,min=3"`
	FirstName *string `json:"firstName" validate:"omitnil,min=3"`
	LastName  *string `json:"lastName" validate:"omitnil,min=3"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Password  *string `json:"password" validate:"omitnil,min=6,max=24"`
}

// TokenClaims is the verified token payload. Only the user id is bound to the caller.
type TokenClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}
