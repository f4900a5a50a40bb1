package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"roadsheet/internal/handler"
	"roadsheet/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ShiftHandler     *handler.ShiftHandler
	CourseHandler    *handler.CourseHandler
	TaximeterHandler *handler.TaximeterHandler
	ExpenseHandler   *handler.ExpenseHandler
	DefaultsHandler  *handler.DefaultsHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application

	// AuthSecret enables the bearer-token boundary; empty disables it
	// (local development).
	AuthSecret string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.Default())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	if deps.AuthSecret != "" {
		v1.Use(middleware.Auth(deps.AuthSecret))
	}
	{
		// Shift lifecycle.
		shifts := v1.Group("/shifts")
		{
			shifts.POST("", deps.ShiftHandler.Open)
			shifts.GET("", deps.ShiftHandler.GetAll)
			shifts.GET("/:id", deps.ShiftHandler.Get)
			shifts.POST("/:id/close", deps.ShiftHandler.Close)
			shifts.POST("/:id/validate", deps.ShiftHandler.Validate)
			shifts.GET("/:id/earnings", deps.ShiftHandler.Earnings)

			// Trip entries.
			shifts.POST("/:id/courses", deps.CourseHandler.Append)
			shifts.GET("/:id/courses", deps.CourseHandler.List)

			// Taximeter reading.
			shifts.PUT("/:id/taximeter", deps.TaximeterHandler.Merge)
			shifts.GET("/:id/taximeter", deps.TaximeterHandler.Get)

			// Expenses.
			shifts.POST("/:id/expenses", deps.ExpenseHandler.Append)
			shifts.GET("/:id/expenses", deps.ExpenseHandler.List)
		}

		// Encoding defaults (resume vs. blank slate).
		v1.GET("/defaults", deps.DefaultsHandler.Resolve)
	}

	return router
}
