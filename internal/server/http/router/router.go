package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
	"github.com/polkiloo/invoicedesk/internal/metrics"
	"github.com/polkiloo/invoicedesk/internal/server/http/handlers"
	"github.com/polkiloo/invoicedesk/internal/server/http/middleware"
)

const streamPath = "/api/invoices/stream"

// Params lists router dependencies. Metrics is optional.
type Params struct {
	fx.In

	Facade  handlers.InvoiceDeskFacade
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collectors `optional:"true"`
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	if p.Metrics != nil {
		engine.Use(middleware.Metrics(p.Metrics))
	}
	engine.Use(middleware.CORS(p.Config.CORSOrigins))
	engine.Use(middleware.DecompressRequest(p.Config.UploadMaxBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{streamPath})))

	authHandler := handlers.NewAuthHandler(p.Facade, p.Config.TokenTTL)
	invoiceHandler := handlers.NewInvoiceHandler(p.Facade, 0)
	subscriptionHandler := handlers.NewSubscriptionHandler(p.Facade)
	healthHandler := handlers.NewHealthHandler(p.Facade)
	requireAuth := middleware.AuthRequired(p.Facade)

	if p.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(p.Metrics.Handler()))
	}

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)
	user.POST("/anonymous", authHandler.Anonymous)
	user.POST("/token", authHandler.Token)

	userAuth := user.Group("")
	userAuth.Use(requireAuth)
	userAuth.POST("/logout", authHandler.Logout)
	userAuth.GET("/me", authHandler.Me)
	userAuth.GET("/profile", authHandler.Profile)
	userAuth.PUT("/profile", authHandler.TouchProfile)
	userAuth.POST("/custom-token", authHandler.CustomToken)

	invoices := api.Group("/invoices")
	invoices.Use(requireAuth)
	invoices.GET("", invoiceHandler.List)
	invoices.GET("/stream", invoiceHandler.Stream)
	invoices.GET("/:id", invoiceHandler.Get)
	invoices.PUT("/:id", invoiceHandler.Replace)
	invoices.DELETE("/:id", invoiceHandler.Delete)
	invoices.POST("/:id/export", invoiceHandler.Export)

	gated := engine.Group("")
	gated.Use(requireAuth)
	gated.POST("/upload-invoice", invoiceHandler.Upload)
	gated.POST("/check-subscription", subscriptionHandler.Check)
	gated.POST("/create-subscription", subscriptionHandler.Create)
	gated.POST("/payment-callback", subscriptionHandler.PaymentCallback)

	return engine
}
