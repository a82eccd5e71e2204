package handlers

import (
	"resin_tracker/internal/logger"
	"resin_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Latest-lot KPI stream (HTTP upgrade), same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdentity)
	{
		h.registerLotRoutes(api)
		h.registerReadingRoutes(api)
	}
}

func (h *Handler) registerLotRoutes(api *gin.RouterGroup) {
	api.GET("/lots", h.getAllLots)

	workshops := api.Group("/workshops")
	{
		workshops.GET("", h.listWorkshops)
		workshops.GET("/:name/lots", h.getLots)
		workshops.GET("/:name/lots/latest", h.getLatestLot)
		workshops.GET("/:name/lots/export", h.exportLots)
		workshops.GET("/:name/lots/breakdown", h.getBreakdown)
	}
}

func (h *Handler) registerReadingRoutes(api *gin.RouterGroup) {
	readings := api.Group("/readings")
	{
		readings.GET("", h.getReadings)
		readings.POST("/import", h.importReadings)
		// Body example: {"url":"http://historian/export.csv"}; empty uses source.url
		readings.POST("/fetch", h.fetchReadings)
	}
}
