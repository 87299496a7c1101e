package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentiful/server/internal/models"
)

func (h *Handler) GetTenant(c *gin.Context) {
	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}

	tenant, err := h.Users.GetTenant(c.Request.Context(), cognitoID)
	if err != nil {
		h.respondError(c, "Error retrieving tenant", err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// CreateTenant registers the signed in user. The cognitoId in the body may be
// omitted and defaults to the token subject.
func (h *Handler) CreateTenant(c *gin.Context) {
	const op = "Error creating tenant"

	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}
	if body.CognitoID == "" {
		body.CognitoID, _ = currentUser(c)
	}
	if !requireSelf(c, body.CognitoID) {
		return
	}

	tenant, err := h.Users.CreateTenant(c.Request.Context(), models.Tenant{
		CognitoID:   body.CognitoID,
		Name:        body.Name,
		Email:       body.Email,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func (h *Handler) UpdateTenant(c *gin.Context) {
	const op = "Error updating tenant"

	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}

	tenant, err := h.Users.UpdateTenant(c.Request.Context(), cognitoID, body.Name, body.Email, body.PhoneNumber)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *Handler) GetCurrentResidences(c *gin.Context) {
	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}

	properties, err := h.Users.CurrentResidences(c.Request.Context(), cognitoID)
	if err != nil {
		h.respondError(c, "Error retrieving current residences", err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

func (h *Handler) AddFavorite(c *gin.Context) {
	h.changeFavorite(c, "Error adding favorite", h.Users.AddFavorite)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	h.changeFavorite(c, "Error removing favorite", h.Users.RemoveFavorite)
}

func (h *Handler) changeFavorite(c *gin.Context, op string, change func(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error)) {
	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}
	propertyID, err := pathID(c, "propertyId")
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	tenant, err := change(c.Request.Context(), cognitoID, propertyID)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *Handler) GetManager(c *gin.Context) {
	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}

	manager, err := h.Users.GetManager(c.Request.Context(), cognitoID)
	if err != nil {
		h.respondError(c, "Error retrieving manager", err)
		return
	}
	c.JSON(http.StatusOK, manager)
}

func (h *Handler) CreateManager(c *gin.Context) {
	const op = "Error creating manager"

	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}
	if body.CognitoID == "" {
		body.CognitoID, _ = currentUser(c)
	}
	if !requireSelf(c, body.CognitoID) {
		return
	}

	manager, err := h.Users.CreateManager(c.Request.Context(), models.Manager{
		CognitoID:   body.CognitoID,
		Name:        body.Name,
		Email:       body.Email,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, manager)
}

func (h *Handler) UpdateManager(c *gin.Context) {
	const op = "Error updating manager"

	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}

	manager, err := h.Users.UpdateManager(c.Request.Context(), cognitoID, body.Name, body.Email, body.PhoneNumber)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, manager)
}

func (h *Handler) GetManagerProperties(c *gin.Context) {
	cognitoID := c.Param("cognitoId")
	if !requireSelf(c, cognitoID) {
		return
	}

	properties, err := h.Properties.ManagerProperties(c.Request.Context(), cognitoID)
	if err != nil {
		h.respondError(c, "Error retrieving manager properties", err)
		return
	}
	c.JSON(http.StatusOK, properties)
}
