package models

// Машиночитаемые коды ошибок, возвращаемые в теле ответа вместе с HTTP статусом.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeWrongCredentials = "WRONG_CREDENTIALS"
	ErrCodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	ErrCodeDuplicateUser    = "DUPLICATE_USER"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeDuplicateContact = "DUPLICATE_CONTACT"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeContactNotFound  = "CONTACT_NOT_FOUND"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse - стандартная структура для информационных ответов.
type MessageResponse struct {
	Message string `json:"message"`
}
