package database

import (
	"context"
	"errors"
	"fmt"

	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, additional_data, created_at, updated_at`

	createContactQuery = `
        INSERT INTO contacts (user_id, first_name, last_name, email, phone, birthday, additional_data)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	getContactByIDQuery = `
        SELECT ` + contactColumns + `
        FROM contacts
        WHERE id = $1 AND user_id = $2
    `
	listContactsQuery = `
        SELECT ` + contactColumns + `
        FROM contacts
        WHERE user_id = $1
        ORDER BY created_at, id
        LIMIT $2 OFFSET $3
    `
	searchContactsQuery = `
        SELECT ` + contactColumns + `
        FROM contacts
        WHERE user_id = $1
          AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
        ORDER BY created_at, id
        LIMIT $3 OFFSET $4
    `
	// Ближайшая годовщина дня рождения: birthday + полные годы (или полные годы + 1,
	// если дата в этом году уже прошла). Сложение интервала лет сдвигает 29 февраля
	// на 28 февраля в невисокосные годы.
	upcomingBirthdaysQuery = `
        SELECT ` + contactColumns + `
        FROM (
            SELECT c.*,
                   (c.birthday + make_interval(years =>
                       CASE
                           WHEN (c.birthday + make_interval(years => date_part('year', age(CURRENT_DATE, c.birthday))::int))::date < CURRENT_DATE
                           THEN date_part('year', age(CURRENT_DATE, c.birthday))::int + 1
                           ELSE date_part('year', age(CURRENT_DATE, c.birthday))::int
                       END))::date AS next_birthday
            FROM contacts c
            WHERE c.user_id = $1
              AND c.birthday IS NOT NULL
        ) sub
        WHERE next_birthday BETWEEN CURRENT_DATE AND CURRENT_DATE + $2::int
        ORDER BY next_birthday, last_name, first_name
    `
	updateContactQuery = `
        UPDATE contacts
        SET first_name = $1, last_name = $2, email = $3, phone = $4, birthday = $5,
            additional_data = $6, updated_at = CURRENT_TIMESTAMP
        WHERE id = $7 AND user_id = $8
        RETURNING updated_at
    `
	deleteContactQuery = `DELETE FROM contacts WHERE id = $1 AND user_id = $2`
)

// Compile-time check to ensure pgContactRepository implements ContactRepository
var _ interfaces.ContactRepository = (*pgContactRepository)(nil)

type pgContactRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgContactRepository creates a new PostgreSQL-backed ContactRepository.
func NewPgContactRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ContactRepository {
	return &pgContactRepository{
		db:     db,
		logger: logger.Named("PgContactRepo"),
	}
}

// CreateContact inserts a new contact owned by contact.UserID.
func (r *pgContactRepository) CreateContact(ctx context.Context, contact *models.Contact) error {
	log := r.logger.With(zap.String("userID", contact.UserID.String()))

	err := r.db.QueryRow(ctx, createContactQuery,
		contact.UserID, contact.FirstName, contact.LastName,
		contact.Email, contact.Phone, contact.Birthday, contact.AdditionalData,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // 23505 is unique_violation
			log.Warn("Attempted to create duplicate contact", zap.String("constraint", pgErr.ConstraintName))
			return mapContactConstraintError(pgErr)
		}
		log.Error("Failed to create contact in postgres", zap.Error(err))
		return fmt.Errorf("failed to create contact in postgres: %w", err)
	}

	log.Info("Contact created successfully", zap.String("contactID", contact.ID.String()))
	return nil
}

// GetContactByID retrieves a single contact, scoped to its owner.
func (r *pgContactRepository) GetContactByID(ctx context.Context, userID, contactID uuid.UUID) (*models.Contact, error) {
	log := r.logger.With(zap.String("userID", userID.String()), zap.String("contactID", contactID.String()))

	var contact models.Contact
	err := pgxscan.Get(ctx, r.db, &contact, getContactByIDQuery, contactID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug("Contact not found")
			return nil, models.ErrContactNotFound
		}
		log.Error("Error getting contact by id", zap.Error(err))
		return nil, fmt.Errorf("failed to get contact %s: %w", contactID, err)
	}
	return &contact, nil
}

// ListContacts returns a page of the owner's contacts.
func (r *pgContactRepository) ListContacts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contact, error) {
	log := r.logger.With(zap.String("userID", userID.String()), zap.Int("limit", limit), zap.Int("offset", offset))

	contacts := make([]models.Contact, 0)
	err := pgxscan.Select(ctx, r.db, &contacts, listContactsQuery, userID, limit, offset)
	if err != nil {
		log.Error("Error listing contacts", zap.Error(err))
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// SearchContacts returns the owner's contacts whose first name, last name or
// email contains the query substring (case-insensitive).
func (r *pgContactRepository) SearchContacts(ctx context.Context, userID uuid.UUID, query string, limit, offset int) ([]models.Contact, error) {
	log := r.logger.With(zap.String("userID", userID.String()), zap.String("query", query))

	pattern := "%" + query + "%"
	contacts := make([]models.Contact, 0)
	err := pgxscan.Select(ctx, r.db, &contacts, searchContactsQuery, userID, pattern, limit, offset)
	if err != nil {
		log.Error("Error searching contacts", zap.Error(err))
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	return contacts, nil
}

// ListUpcomingBirthdays returns the owner's contacts whose birthday occurs
// within the next `days` days, today included.
func (r *pgContactRepository) ListUpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error) {
	log := r.logger.With(zap.String("userID", userID.String()), zap.Int("days", days))

	contacts := make([]models.Contact, 0)
	err := pgxscan.Select(ctx, r.db, &contacts, upcomingBirthdaysQuery, userID, days)
	if err != nil {
		log.Error("Error listing upcoming birthdays", zap.Error(err))
		return nil, fmt.Errorf("failed to list upcoming birthdays: %w", err)
	}
	return contacts, nil
}

// UpdateContact overwrites all mutable fields of the contact, scoped to its owner.
func (r *pgContactRepository) UpdateContact(ctx context.Context, contact *models.Contact) error {
	log := r.logger.With(zap.String("userID", contact.UserID.String()), zap.String("contactID", contact.ID.String()))

	err := r.db.QueryRow(ctx, updateContactQuery,
		contact.FirstName, contact.LastName, contact.Email, contact.Phone,
		contact.Birthday, contact.AdditionalData, contact.ID, contact.UserID,
	).Scan(&contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug("Contact not found for update")
			return models.ErrContactNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.Warn("Attempted to update contact into duplicate", zap.String("constraint", pgErr.ConstraintName))
			return mapContactConstraintError(pgErr)
		}
		log.Error("Failed to update contact in postgres", zap.Error(err))
		return fmt.Errorf("failed to update contact %s: %w", contact.ID, err)
	}

	log.Info("Contact updated successfully")
	return nil
}

// DeleteContact removes the contact, scoped to its owner.
func (r *pgContactRepository) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	log := r.logger.With(zap.String("userID", userID.String()), zap.String("contactID", contactID.String()))

	cmdTag, err := r.db.Exec(ctx, deleteContactQuery, contactID, userID)
	if err != nil {
		log.Error("Failed to delete contact in postgres", zap.Error(err))
		return fmt.Errorf("failed to delete contact %s: %w", contactID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Debug("Contact not found for delete")
		return models.ErrContactNotFound
	}

	log.Info("Contact deleted successfully")
	return nil
}

// mapContactConstraintError переводит нарушение уникальности в доменную ошибку.
func mapContactConstraintError(pgErr *pgconn.PgError) error {
	switch pgErr.ConstraintName {
	case "contacts_user_id_email_key":
		return models.ErrContactEmailConflict
	case "contacts_user_id_phone_key":
		return models.ErrContactPhoneConflict
	default:
		// Неизвестный constraint, считаем конфликтом по email
		return models.ErrContactEmailConflict
	}
}
