package service

import "context"

// Mailer defines the interface for outgoing transactional mail.
type Mailer interface {
	// SendVerificationEmail sends the address-confirmation letter with the
	// given email token embedded in the confirmation link.
	SendVerificationEmail(ctx context.Context, to, username, token string) error
	// SendPasswordResetEmail sends the password-reset letter.
	SendPasswordResetEmail(ctx context.Context, to, username, token string) error
}
