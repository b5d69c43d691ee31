package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"rideledger/internal/handler"
	"rideledger/internal/middleware"
	"rideledger/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	AccountHandler *handler.AccountHandler
	EventHandler   *handler.EventHandler
	Hub            *ws.Hub
	Metrics        http.Handler
	RedisClient    *redis.Client // optional; enables idempotent POSTs
	NewRelicApp    *newrelic.Application
	Logger         logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.CallerMiddleware())
	v1.Use(middleware.TransactionAttributes())
	if deps.RedisClient != nil {
		v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	}
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/accept", deps.RideHandler.AcceptRide)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.GET("/:id/escrow", deps.PaymentHandler.GetEscrow)
			rides.GET("/:id/transfers", deps.PaymentHandler.GetTransfers)
		}

		v1.GET("/escrow", deps.PaymentHandler.GetEscrowTotal)

		// Account routes.
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id", deps.AccountHandler.GetAccount)
			accounts.PUT("/me", deps.AccountHandler.UpdateMe)
		}

		// Event routes.
		events := v1.Group("/events")
		{
			events.GET("", deps.EventHandler.ListEvents)
			if deps.Hub != nil {
				events.GET("/ws", gin.WrapF(deps.Hub.ServeWS))
			}
		}
	}

	return router
}
