package interfaces

import (
	"context"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// ContactRepository defines the interface for contact data persistence (PostgreSQL).
// Все операции ограничены владельцем: контакт чужого пользователя недоступен.
type ContactRepository interface {
	// CreateContact inserts a new contact for its owner.
	// Returns models.ErrContactEmailConflict or models.ErrContactPhoneConflict
	// when the owner already has a contact with the same email/phone.
	CreateContact(ctx context.Context, contact *models.Contact) error

	// GetContactByID retrieves a contact owned by userID.
	// Returns models.ErrContactNotFound if absent or owned by someone else.
	GetContactByID(ctx context.Context, userID, contactID uuid.UUID) (*models.Contact, error)

	// ListContacts returns the owner's contacts ordered by creation time.
	ListContacts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contact, error)

	// SearchContacts matches query case-insensitively against first name,
	// last name and email of the owner's contacts.
	SearchContacts(ctx context.Context, userID uuid.UUID, query string, limit, offset int) ([]models.Contact, error)

	// ListUpcomingBirthdays returns the owner's contacts whose birthday
	// (month and day, year ignored) falls within the next days days.
	ListUpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error)

	// UpdateContact performs a full update of contact fields.
	// Returns models.ErrContactNotFound if absent or owned by someone else.
	UpdateContact(ctx context.Context, contact *models.Contact) error

	// DeleteContact removes the contact.
	// Returns models.ErrContactNotFound if absent or owned by someone else.
	DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error
}
