package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentiful/server/internal/models"
)

// GetLeases lists the caller's leases as tenant or the leases on the caller's
// properties as manager
func (h *Handler) GetLeases(c *gin.Context) {
	userID, role := currentUser(c)
	leases, err := h.Leases.ListLeases(c.Request.Context(), userID, role)
	if err != nil {
		h.respondError(c, "Error retrieving leases", err)
		return
	}
	c.JSON(http.StatusOK, leases)
}

func (h *Handler) GetLeasePayments(c *gin.Context) {
	const op = "Error retrieving lease payments"

	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	payments, err := h.Leases.LeasePayments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// CreateApplication files a pending application on behalf of the signed in tenant
func (h *Handler) CreateApplication(c *gin.Context) {
	const op = "Error creating application"

	var body applicationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}

	userID, _ := currentUser(c)
	app, err := h.Leases.CreateApplication(c.Request.Context(), models.Application{
		PropertyID:      body.PropertyID,
		TenantCognitoID: userID,
		Name:            body.Name,
		Email:           body.Email,
		PhoneNumber:     body.PhoneNumber,
		Message:         body.Message,
	})
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListApplications accepts optional userId and userType query parameters. They
// default to the token identity and may not name another user.
func (h *Handler) ListApplications(c *gin.Context) {
	userID, role := currentUser(c)
	if q := c.Query("userId"); q != "" && q != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Access Denied"})
		return
	}
	if q := c.Query("userType"); q != "" && q != role {
		c.JSON(http.StatusForbidden, gin.H{"message": "Access Denied"})
		return
	}

	apps, err := h.Leases.ListApplications(c.Request.Context(), userID, role)
	if err != nil {
		h.respondError(c, "Error retrieving applications", err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *Handler) UpdateApplicationStatus(c *gin.Context) {
	const op = "Error updating application status"

	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}

	userID, _ := currentUser(c)
	status := models.ApplicationStatus(body.Status)
	app, err := h.Leases.UpdateApplicationStatus(c.Request.Context(), id, userID, status)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	// the new lease changes availableFrom results
	if status == models.ApplicationApproved {
		h.invalidateSearch(c.Request.Context())
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) invalidateSearch(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.InvalidateProperties(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate search cache")
	}
}
