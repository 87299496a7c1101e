package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentiful/server/internal/cache"
	"rentiful/server/internal/database"
	"rentiful/server/internal/filter"
	"rentiful/server/internal/geometry"
	"rentiful/server/internal/listing"
	"rentiful/server/internal/models"
	"rentiful/server/internal/storage"
)

type PropertyStore interface {
	SearchProperties(ctx context.Context, f filter.Filter) ([]models.Property, error)
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	PropertyLeases(ctx context.Context, propertyID int64) ([]models.Lease, error)
	ManagerProperties(ctx context.Context, cognitoID string) ([]models.Property, error)
}

type UserStore interface {
	GetTenant(ctx context.Context, cognitoID string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant models.Tenant) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, cognitoID, name, email, phone string) (*models.Tenant, error)
	AddFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error)
	RemoveFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error)
	CurrentResidences(ctx context.Context, cognitoID string) ([]models.Property, error)
	GetManager(ctx context.Context, cognitoID string) (*models.Manager, error)
	CreateManager(ctx context.Context, manager models.Manager) (*models.Manager, error)
	UpdateManager(ctx context.Context, cognitoID, name, email, phone string) (*models.Manager, error)
}

type LeaseStore interface {
	ListLeases(ctx context.Context, cognitoID, role string) ([]models.Lease, error)
	LeasePayments(ctx context.Context, leaseID int64) ([]models.Payment, error)
	CreateApplication(ctx context.Context, app models.Application) (*models.Application, error)
	ListApplications(ctx context.Context, cognitoID, role string) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id int64, managerCognitoID string, status models.ApplicationStatus) (*models.Application, error)
}

type ListingService interface {
	CreateProperty(ctx context.Context, in listing.CreateInput) (*models.Property, error)
}

// BackfillTrigger queues locations that are still missing coordinates
type BackfillTrigger interface {
	RunOnce(ctx context.Context) (int, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps groups what the handlers need. Cache and Backfill are optional.
type Deps struct {
	Properties     PropertyStore
	Users          UserStore
	Leases         LeaseStore
	Listings       ListingService
	Cache          cache.Cache
	Backfill       BackfillTrigger
	Pinger         HealthChecker
	MaxUploadBytes int64
}

type Handler struct {
	Deps
	logger *logrus.Logger
}

var errBadRequest = errors.New("bad request")

func NewHandler(deps Deps, logger *logrus.Logger) *Handler {
	return &Handler{Deps: deps, logger: logger}
}

// respondError logs err and writes {"message": "<op>: <err>"} with the status
// matching the error kind
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrConflict), errors.Is(err, database.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, database.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, filter.ErrInvalidFilter), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"status":    status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"message": fmt.Sprintf("%s: %s", op, err.Error())})
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Errorf("invalid %s %q", name, c.Param(name)))
	}
	return id, nil
}

// requireSelf makes sure a user only touches their own record
func requireSelf(c *gin.Context, cognitoID string) bool {
	if userID, _ := currentUser(c); userID != cognitoID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Access Denied"})
		return false
	}
	return true
}

// GetProperties answers a filtered search. Results are cached by the
// canonical filter and dropped whenever a listing is created.
func (h *Handler) GetProperties(c *gin.Context) {
	const op = "Error retrieving properties"

	f, err := filter.Parse(c.Request.URL.Query())
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	key := f.CacheKey()
	if h.Cache != nil {
		if data, ok := h.Cache.Get(c.Request.Context(), key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}
	}

	properties, err := h.Properties.SearchProperties(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	data, err := json.Marshal(properties)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(c.Request.Context(), key, data)
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// GetPropertiesGeoJSON runs the same search as GetProperties and returns the
// results as a GeoJSON feature collection for the map.
func (h *Handler) GetPropertiesGeoJSON(c *gin.Context) {
	const op = "Error retrieving properties"

	f, err := filter.Parse(c.Request.URL.Query())
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	properties, err := h.Properties.SearchProperties(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, geometry.PropertyFeatures(properties))
}

func (h *Handler) GetProperty(c *gin.Context) {
	const op = "Error retrieving property"

	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	property, err := h.Properties.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (h *Handler) GetPropertyLeases(c *gin.Context) {
	const op = "Error retrieving property leases"

	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	leases, err := h.Properties.PropertyLeases(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, leases)
}

// CreateProperty accepts the multipart listing form with its photos
func (h *Handler) CreateProperty(c *gin.Context) {
	const op = "Error creating property"

	var form createPropertyForm
	if err := c.ShouldBind(&form); err != nil {
		h.respondError(c, op, badRequest(err))
		return
	}

	userID, _ := currentUser(c)
	if form.ManagerCognitoID == "" {
		form.ManagerCognitoID = userID
	}
	if form.ManagerCognitoID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Access Denied"})
		return
	}

	var photos []storage.Object
	if mf, err := c.MultipartForm(); err == nil {
		for _, fh := range mf.File["photos"] {
			if !isImage(fh) {
				h.respondError(c, op, badRequest(fmt.Errorf("%s is not an image", fh.Filename)))
				return
			}
			if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
				h.respondError(c, op, badRequest(fmt.Errorf("%s exceeds %d bytes", fh.Filename, h.MaxUploadBytes)))
				return
			}
			file, err := fh.Open()
			if err != nil {
				h.respondError(c, op, badRequest(err))
				return
			}
			defer file.Close()
			photos = append(photos, storage.Object{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        file,
			})
		}
	}

	property, err := h.Listings.CreateProperty(c.Request.Context(), listing.CreateInput{
		Address:  form.address(),
		Property: form.property(),
		Photos:   photos,
	})
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// UpdateCoordinates queues a geocode backfill run for locations still at (0,0)
func (h *Handler) UpdateCoordinates(c *gin.Context) {
	const op = "Error updating coordinates"

	if h.Backfill == nil {
		h.respondError(c, op, errors.New("coordinate backfill is not configured"))
		return
	}

	queued, err := h.Backfill.RunOnce(c.Request.Context())
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "Coordinates update process started",
		"queued": queued,
	})
}

func (h *Handler) Health(c *gin.Context) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(c.Request.Context()); err != nil {
			h.logger.WithError(err).Error("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
