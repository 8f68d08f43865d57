package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"doorly/internal/infra/config"
	"doorly/internal/infra/obs"
)

type BookingHTTP interface {
	Reserve(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	OpenDispute(c *gin.Context)
	ReviewWindow(c *gin.Context)
}

type HostBookingHTTP interface {
	List(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
}

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
}

type ListingHTTP interface {
	Get(c *gin.Context)
	Quote(c *gin.Context)
}

type ReviewsHTTP interface {
	Submit(c *gin.Context)
	ListByListing(c *gin.Context)
}

type PaymentsHTTP interface {
	Webhook(c *gin.Context)
}

type AdminHTTP interface {
	ResolveDispute(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	HostBooking    HostBookingHTTP
	Me             MeHTTP
	Availability   AvailabilityHTTP
	Listing        ListingHTTP
	Reviews        ReviewsHTTP
	Payments       PaymentsHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine; NewServer wraps it in an http.Server.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", UserIDHeader, AdminTokenHeader, IdempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Listing != nil {
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/quote", h.Listing.Quote)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Calendar)
	}
	if h.Booking != nil {
		api.POST("/listings/:id/reservations", h.Booking.Reserve)
		bookings := api.Group("/bookings/:id")
		bookings.GET("", h.Booking.Get)
		bookings.POST("/cancel", h.Booking.Cancel)
		bookings.POST("/disputes", h.Booking.OpenDispute)
		bookings.GET("/review-window", h.Booking.ReviewWindow)
	}
	if h.Reviews != nil {
		api.POST("/bookings/:id/reviews", h.Reviews.Submit)
		api.GET("/listings/:id/reviews", h.Reviews.ListByListing)
	}
	if h.Me != nil {
		api.GET("/me/bookings", h.Me.ListBookings)
	}
	if h.HostBooking != nil {
		api.GET("/host/bookings", h.HostBooking.List)
	}
	if h.Payments != nil {
		api.POST("/payments/webhook", h.Payments.Webhook)
	}
	if h.Admin != nil {
		api.POST("/admin/bookings/:id/dispute/resolve", h.Admin.ResolveDispute)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "development":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
