package handler

import (
	"fmt"
	"time"

	"contacts-server/internal/models"
)

// Даты рождения принимаются и отдаются без времени.
const birthdayLayout = "2006-01-02"

type registerRequest struct {
	Username string `json:"username" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=30"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type requestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=30"`
}

type contactRequest struct {
	FirstName      string  `json:"first_name" binding:"required,max=50"`
	LastName       string  `json:"last_name" binding:"required,max=50"`
	Email          *string `json:"email" binding:"omitempty,max=100"`
	Phone          *string `json:"phone"`
	Birthday       *string `json:"birthday"`
	AdditionalData *string `json:"additional_data" binding:"omitempty,max=255"`
}

// toModel converts the request body into a contact owned by the caller.
// Birthday парсится из строки формата YYYY-MM-DD.
func (r *contactRequest) toModel() (*models.Contact, error) {
	contact := &models.Contact{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		AdditionalData: r.AdditionalData,
	}
	if r.Birthday != nil && *r.Birthday != "" {
		birthday, err := time.Parse(birthdayLayout, *r.Birthday)
		if err != nil {
			return nil, fmt.Errorf("birthday must be in YYYY-MM-DD format: %w", models.ErrInvalidInput)
		}
		contact.Birthday = &birthday
	}
	return contact, nil
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type userResponse struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	IsVerified bool    `json:"is_verified"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		AvatarURL:  user.AvatarURL,
	}
}

type contactResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Birthday       *string   `json:"birthday,omitempty"`
	AdditionalData *string   `json:"additional_data,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toContactResponse(contact *models.Contact) contactResponse {
	resp := contactResponse{
		ID:             contact.ID.String(),
		FirstName:      contact.FirstName,
		LastName:       contact.LastName,
		FullName:       contact.FullName(),
		Email:          contact.Email,
		Phone:          contact.Phone,
		AdditionalData: contact.AdditionalData,
		CreatedAt:      contact.CreatedAt,
		UpdatedAt:      contact.UpdatedAt,
	}
	if contact.Birthday != nil {
		birthday := contact.Birthday.Format(birthdayLayout)
		resp.Birthday = &birthday
	}
	return resp
}

func toContactResponses(contacts []models.Contact) []contactResponse {
	responses := make([]contactResponse, 0, len(contacts))
	for i := range contacts {
		responses = append(responses, toContactResponse(&contacts[i]))
	}
	return responses
}
