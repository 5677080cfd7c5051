package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Окно поиска ближайших дней рождения
	birthdayWindowDays = 7

	defaultListLimit = 10
	maxListLimit     = 500

	maxNameLength           = 50
	maxContactEmailLength   = 100
	maxAdditionalDataLength = 255
)

// Телефон: опциональный +, затем 10-15 цифр
var phoneRegexp = regexp.MustCompile(`^\+?\d{10,15}$`)

// Compile-time check to ensure contactServiceImpl implements ContactService
var _ ContactService = (*contactServiceImpl)(nil)

type contactServiceImpl struct {
	contactRepo interfaces.ContactRepository
	logger      *zap.Logger
}

// NewContactService creates a new instance of contactServiceImpl.
func NewContactService(contactRepo interfaces.ContactRepository, logger *zap.Logger) ContactService {
	return &contactServiceImpl{
		contactRepo: contactRepo,
		logger:      logger.Named("ContactService"),
	}
}

// CreateContact validates and stores a new contact for its owner.
func (s *contactServiceImpl) CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	log := s.logger.With(zap.String("userID", contact.UserID.String()))

	if err := validateContact(contact); err != nil {
		log.Warn("Contact validation failed on create", zap.Error(err))
		return nil, err
	}

	if err := s.contactRepo.CreateContact(ctx, contact); err != nil {
		return nil, err
	}

	log.Info("Contact created", zap.String("contactID", contact.ID.String()))
	return contact, nil
}

// GetContact returns a single contact of the owner.
func (s *contactServiceImpl) GetContact(ctx context.Context, userID, contactID uuid.UUID) (*models.Contact, error) {
	return s.contactRepo.GetContactByID(ctx, userID, contactID)
}

// ListContacts returns a page of the owner's contacts.
func (s *contactServiceImpl) ListContacts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contact, error) {
	limit, offset = normalizePage(limit, offset)
	return s.contactRepo.ListContacts(ctx, userID, limit, offset)
}

// SearchContacts finds the owner's contacts by a case-insensitive substring of
// the first name, last name or email.
func (s *contactServiceImpl) SearchContacts(ctx context.Context, userID uuid.UUID, query string, limit, offset int) ([]models.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		// Пустой запрос эквивалентен обычному списку
		return s.ListContacts(ctx, userID, limit, offset)
	}
	limit, offset = normalizePage(limit, offset)
	return s.contactRepo.SearchContacts(ctx, userID, query, limit, offset)
}

// UpcomingBirthdays returns contacts whose birthday occurs within the next
// seven days, matched by month and day only.
func (s *contactServiceImpl) UpcomingBirthdays(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	return s.contactRepo.ListUpcomingBirthdays(ctx, userID, birthdayWindowDays)
}

// UpdateContact validates and overwrites all fields of an existing contact.
func (s *contactServiceImpl) UpdateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	log := s.logger.With(zap.String("userID", contact.UserID.String()), zap.String("contactID", contact.ID.String()))

	if err := validateContact(contact); err != nil {
		log.Warn("Contact validation failed on update", zap.Error(err))
		return nil, err
	}

	if err := s.contactRepo.UpdateContact(ctx, contact); err != nil {
		return nil, err
	}

	log.Info("Contact updated")
	return contact, nil
}

// DeleteContact removes the owner's contact.
func (s *contactServiceImpl) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	if err := s.contactRepo.DeleteContact(ctx, userID, contactID); err != nil {
		return err
	}
	s.logger.Info("Contact deleted", zap.String("userID", userID.String()), zap.String("contactID", contactID.String()))
	return nil
}

// validateContact normalizes and checks all user-supplied contact fields.
func validateContact(contact *models.Contact) error {
	contact.FirstName = strings.TrimSpace(contact.FirstName)
	contact.LastName = strings.TrimSpace(contact.LastName)

	if contact.FirstName == "" || len(contact.FirstName) > maxNameLength {
		return fmt.Errorf("first name must be 1..%d characters: %w", maxNameLength, models.ErrInvalidInput)
	}
	if contact.LastName == "" || len(contact.LastName) > maxNameLength {
		return fmt.Errorf("last name must be 1..%d characters: %w", maxNameLength, models.ErrInvalidInput)
	}

	if contact.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*contact.Email))
		if email == "" {
			contact.Email = nil
		} else {
			if len(email) > maxContactEmailLength {
				return fmt.Errorf("email must be at most %d characters: %w", maxContactEmailLength, models.ErrInvalidInput)
			}
			if _, err := mail.ParseAddress(email); err != nil {
				return fmt.Errorf("invalid email format: %w", models.ErrInvalidInput)
			}
			contact.Email = &email
		}
	}

	if contact.Phone != nil {
		phone := strings.TrimSpace(*contact.Phone)
		if phone == "" {
			contact.Phone = nil
		} else {
			if !phoneRegexp.MatchString(phone) {
				return fmt.Errorf("phone must match %s: %w", phoneRegexp.String(), models.ErrInvalidInput)
			}
			contact.Phone = &phone
		}
	}

	if contact.AdditionalData != nil {
		data := strings.TrimSpace(*contact.AdditionalData)
		if data == "" {
			contact.AdditionalData = nil
		} else {
			if len(data) > maxAdditionalDataLength {
				return fmt.Errorf("additional data must be at most %d characters: %w", maxAdditionalDataLength, models.ErrInvalidInput)
			}
			contact.AdditionalData = &data
		}
	}

	return nil
}

// normalizePage clamps limit and offset to the allowed ranges.
func normalizePage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
