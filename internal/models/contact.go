package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact represents a single entry in a user's address book.
type Contact struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"-"` // Владелец не отдается наружу
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Birthday       *time.Time `db:"birthday" json:"birthday,omitempty"`
	AdditionalData *string    `db:"additional_data" json:"additional_data,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the display name composed from first and last name.
// Хранится только раздельно, полное имя всегда вычисляется.
func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}
