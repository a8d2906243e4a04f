package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/config"
	"github.com/millhub-dev/millhub/internal/handlers"
	"github.com/millhub-dev/millhub/internal/middleware"
	"github.com/millhub-dev/millhub/internal/quotes"
	"github.com/millhub-dev/millhub/internal/storage"
)

func NewRouter(db *gorm.DB, cfg *config.Config, blobs storage.BlobStore, synth *quotes.Synthesizer) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	// Credentialed requests cannot be combined with a wildcard origin.
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}

	r.Use(cors.New(corsConfig))

	authHandler := handlers.NewAuthHandler(db, cfg)
	rfqHandler := handlers.NewRFQHandler(db, blobs, synth)
	quoteHandler := handlers.NewQuoteHandler(db)
	orderHandler := handlers.NewOrderHandler(db)
	paymentHandler := handlers.NewPaymentHandler(db)

	authRequired := middleware.Auth(db, []byte(cfg.JWTSecret))

	api := r.Group("/api")
	{
		api.GET("/", handlers.Root)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		api.GET("/me", authRequired, authHandler.Me)

		rfqGroup := api.Group("/rfqs", authRequired)
		{
			rfqGroup.POST("", rfqHandler.Create)
			rfqGroup.GET("", rfqHandler.List)
			rfqGroup.GET("/:id", rfqHandler.Get)
		}

		quoteGroup := api.Group("/quotes", authRequired)
		{
			quoteGroup.GET("", quoteHandler.List)
			quoteGroup.POST("/:id/accept", orderHandler.Accept)
		}

		orderGroup := api.Group("/orders", authRequired)
		{
			orderGroup.GET("", orderHandler.List)
			orderGroup.POST("/:id/pay", paymentHandler.Pay)
		}

		api.GET("/payments", authRequired, paymentHandler.List)
	}

	return r
}
