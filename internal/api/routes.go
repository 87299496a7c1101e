package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentiful/server/internal/models"
)

type RouterOptions struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter builds the engine with the middleware chain every route shares
func NewRouter(h *Handler, auth *Authenticator, metrics *Metrics, opts RouterOptions, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger), metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "X-Cache"},
		AllowCredentials: false,
	}))
	if opts.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = opts.MaxUploadBytes
	}

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	SetupRoutes(router, h, auth)
	return router
}

func SetupRoutes(router *gin.Engine, h *Handler, auth *Authenticator) {
	manager := auth.RequireRole(models.RoleManager)
	tenant := auth.RequireRole(models.RoleTenant)
	anyUser := auth.RequireRole(models.RoleManager, models.RoleTenant)

	properties := router.Group("/properties")
	{
		properties.GET("", h.GetProperties)
		properties.GET("/geojson", h.GetPropertiesGeoJSON)
		properties.GET("/:id", h.GetProperty)
		properties.GET("/:id/leases", anyUser, h.GetPropertyLeases)
		properties.POST("", manager, h.CreateProperty)
	}

	tenants := router.Group("/tenants", tenant)
	{
		tenants.POST("", h.CreateTenant)
		tenants.GET("/:cognitoId", h.GetTenant)
		tenants.PUT("/:cognitoId", h.UpdateTenant)
		tenants.GET("/:cognitoId/current-residences", h.GetCurrentResidences)
		tenants.POST("/:cognitoId/favorites/:propertyId", h.AddFavorite)
		tenants.DELETE("/:cognitoId/favorites/:propertyId", h.RemoveFavorite)
	}

	managers := router.Group("/managers", manager)
	{
		managers.POST("", h.CreateManager)
		managers.GET("/:cognitoId", h.GetManager)
		managers.PUT("/:cognitoId", h.UpdateManager)
		managers.GET("/:cognitoId/properties", h.GetManagerProperties)
	}

	leases := router.Group("/leases", anyUser)
	{
		leases.GET("", h.GetLeases)
		leases.GET("/:id/payments", h.GetLeasePayments)
	}

	applications := router.Group("/applications")
	{
		applications.POST("", tenant, h.CreateApplication)
		applications.GET("", anyUser, h.ListApplications)
		applications.PUT("/:id/status", manager, h.UpdateApplicationStatus)
	}

	admin := router.Group("/admin", manager)
	{
		admin.POST("/update-coordinates", h.UpdateCoordinates)
	}
}
