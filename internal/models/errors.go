package models

import "errors"

// Application-wide standard errors
var (
	// User & Authentication Errors
	ErrUserNotFound          = errors.New("user not found")
	ErrUserAlreadyExists     = errors.New("user with this username already exists")
	ErrEmailAlreadyExists    = errors.New("user with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailNotVerified      = errors.New("email not confirmed")
	ErrEmailAlreadyConfirmed = errors.New("email is already confirmed")
	ErrUnauthorized          = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden             = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid    = errors.New("token is invalid")
	ErrTokenMalformed  = errors.New("token is malformed")
	ErrTokenExpired    = errors.New("token has expired")
	ErrTokenRevoked    = errors.New("token has been revoked")
	ErrTokenNotFound   = errors.New("token not found in storage")
	ErrEmailTokenScope = errors.New("token is not an email token")

	// Contact Errors
	ErrContactNotFound      = errors.New("contact not found")
	ErrContactEmailConflict = errors.New("contact with this email already exists")
	ErrContactPhoneConflict = errors.New("contact with this phone already exists")

	// Cache Errors
	ErrCacheMiss = errors.New("cache miss")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
