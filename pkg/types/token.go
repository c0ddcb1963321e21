package types

import "time"

// AuthToken is the database half of an issued access token. The signed JWT
// carries the row ID as its jti claim; a token is live only while its row
// exists and has not expired, so logout is a row delete.
type AuthToken struct {
	ID         string     `db:"id" json:"-"`
	UserID     string     `db:"user_id" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	LastUsedAt *time.Time `db:"last_used_at" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"-"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyResetTokenInput struct {
	Token string `json:"token" validate:"required"`
}

type ResetPasswordInput struct {
	Token                string `json:"token" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type AccessTokenResponse struct {
	Type      string    `json:"type"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
