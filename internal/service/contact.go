package service

import (
	"context"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// ContactService defines the interface for the contact book logic.
// Every operation is scoped to the owning user.
type ContactService interface {
	CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetContact(ctx context.Context, userID, contactID uuid.UUID) (*models.Contact, error)
	ListContacts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contact, error)
	SearchContacts(ctx context.Context, userID uuid.UUID, query string, limit, offset int) ([]models.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error
}
