package handler

import (
	"testing"
	"time"

	"contacts-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestContactRequestToModel(t *testing.T) {
	// 1. Дата рождения парсится из YYYY-MM-DD
	req := &contactRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     strPtr("alice@example.com"),
		Birthday:  strPtr("1990-05-17"),
	}
	contact, err := req.toModel()
	require.NoError(t, err)
	require.NotNil(t, contact.Birthday)
	assert.Equal(t, time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC), *contact.Birthday)
	assert.Equal(t, "Alice", contact.FirstName)
	require.NotNil(t, contact.Email)
	assert.Equal(t, "alice@example.com", *contact.Email)

	// 2. Отсутствующая или пустая дата дает nil
	req.Birthday = nil
	contact, err = req.toModel()
	require.NoError(t, err)
	assert.Nil(t, contact.Birthday)

	req.Birthday = strPtr("")
	contact, err = req.toModel()
	require.NoError(t, err)
	assert.Nil(t, contact.Birthday)

	// 3. Неверный формат даты
	req.Birthday = strPtr("17.05.1990")
	_, err = req.toModel()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestToContactResponse(t *testing.T) {
	birthday := time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC)
	contact := &models.Contact{
		ID:        uuid.New(),
		FirstName: "Alice",
		LastName:  "Smith",
		Birthday:  &birthday,
	}

	resp := toContactResponse(contact)

	// Полное имя вычисляется, дата форматируется без времени
	assert.Equal(t, contact.ID.String(), resp.ID)
	assert.Equal(t, "Alice Smith", resp.FullName)
	require.NotNil(t, resp.Birthday)
	assert.Equal(t, "1990-05-17", *resp.Birthday)

	// Без даты рождения поле остается nil
	contact.Birthday = nil
	resp = toContactResponse(contact)
	assert.Nil(t, resp.Birthday)
}
