package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims представляет стандартные поля JWT и пользовательские данные,
// которые мы включаем в access токен.
type Claims struct {
	UserID              uuid.UUID `json:"user_id"`
	Role                string    `json:"role"`
	jwt.RegisteredClaims           // Встраиваем стандартные поля: Issuer, Subject, ExpiresAt, IssuedAt, ID (JTI)
}

// EmailTokenClaims are the claims of tokens embedded into mail links
// (email confirmation and password reset). Subject содержит email.
type EmailTokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Значение Scope для почтовых токенов.
const EmailTokenScope = "email"
