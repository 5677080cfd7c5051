package handler

import (
	"net/http"

	"contacts-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) listContacts(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid query parameters: " + err.Error()})
		return
	}

	contacts, err := h.contactService.ListContacts(c.Request.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (h *Handler) searchContacts(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid query parameters: " + err.Error()})
		return
	}

	contacts, err := h.contactService.SearchContacts(c.Request.Context(), userID, c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (h *Handler) upcomingBirthdays(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	contacts, err := h.contactService.UpcomingBirthdays(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (h *Handler) getContact(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zap.L().Warn("Invalid contact ID format", zap.String("contactID", c.Param("id")), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid contact ID format"})
		return
	}

	contact, err := h.contactService.GetContact(c.Request.Context(), userID, contactID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContactResponse(contact))
}

func (h *Handler) createContact(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	contact, err := req.toModel()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	contact.UserID = userID

	created, err := h.contactService.CreateContact(c.Request.Context(), contact)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toContactResponse(created))
}

func (h *Handler) updateContact(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zap.L().Warn("Invalid contact ID format", zap.String("contactID", c.Param("id")), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid contact ID format"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	contact, err := req.toModel()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	contact.ID = contactID
	contact.UserID = userID

	updated, err := h.contactService.UpdateContact(c.Request.Context(), contact)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContactResponse(updated))
}

func (h *Handler) deleteContact(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zap.L().Warn("Invalid contact ID format", zap.String("contactID", c.Param("id")), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid contact ID format"})
		return
	}

	if err := h.contactService.DeleteContact(c.Request.Context(), userID, contactID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
