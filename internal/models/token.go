package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenDetails holds the token pair returned to the client after login/refresh.
type TokenDetails struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	AccessUUID   string `json:"-"` // jti access токена, наружу не отдается
	AtExpires    int64  `json:"-"`
	RtExpires    int64  `json:"-"`
}

// RefreshToken is a stored refresh token row.
// Сам токен не хранится, только его SHA-256 хеш.
type RefreshToken struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiredAt time.Time  `db:"expired_at" json:"expired_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent *string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Active reports whether the token can still be exchanged for a new pair.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiredAt.After(now)
}
