package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/container"
	"github.com/efarmer/subsidy/cmd/subsidy/handlers"
	"github.com/efarmer/subsidy/cmd/subsidy/middleware"
	commonmw "github.com/efarmer/subsidy/common/middleware"
)

// RegisterFarmerRoutes registers farmer registration, portal and upload routes
func RegisterFarmerRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewFarmerHandler(c.FarmerService)
	img := handlers.NewImageHandler(c.ImageService, c.BlobService, c.Components.Config.Store.MaxUploadBytes)

	farmers := e.Group("/api/v1/farmers")
	{
		farmers.POST("", h.RegisterFarmer)                 // POST /api/v1/farmers
		farmers.GET("", h.ListFarmers)                     // GET /api/v1/farmers
		farmers.GET("/:efn", h.GetFarmer)                  // GET /api/v1/farmers/EFN-PUN-1A2B3C4D
		farmers.PATCH("/:efn", h.PatchFarmer)              // PATCH /api/v1/farmers/EFN-PUN-1A2B3C4D
		farmers.POST("/:efn/images", img.UploadImages)     // POST /api/v1/farmers/EFN-PUN-1A2B3C4D/images
		farmers.GET("/:efn/schemes", h.GetSchemes)         // GET /api/v1/farmers/EFN-PUN-1A2B3C4D/schemes
		farmers.GET("/:efn/entitlement", h.GetEntitlement) // GET /api/v1/farmers/EFN-PUN-1A2B3C4D/entitlement?product=Urea
	}

	images := e.Group("/api/v1/images")
	{
		images.GET("/:digest", img.GetImage)         // GET /api/v1/images/sha256:ab12...
		images.GET("/:digest/usages", img.GetUsages) // GET /api/v1/images/ab12.../usages
	}
}

// RegisterTransactionRoutes registers dealer submission and ledger routes
func RegisterTransactionRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewTransactionHandler(c.DecisionService)
	defaultDealer := c.Components.Config.Store.DefaultDealer

	txns := e.Group("/api/v1/transactions")
	txns.Use(middleware.ExtractDealer(defaultDealer)) // Extract X-Dealer-ID into context
	{
		submit := []echo.MiddlewareFunc{}
		if c.RateLimiter != nil {
			submit = append(submit, commonmw.SubmissionRateLimit(c.RateLimiter, c.Limits, middleware.GetDealer))
		}

		txns.POST("", h.SubmitTransaction, submit...) // POST /api/v1/transactions
		txns.GET("", h.ListTransactions)              // GET /api/v1/transactions
	}

	e.GET("/api/v1/cases", h.ListCases) // GET /api/v1/cases
}

// RegisterAdminRoutes registers the dashboard and rule administration routes
func RegisterAdminRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAdminHandler(c.DashboardService, c.RuleService)

	e.GET("/api/v1/admin/dashboard", h.GetDashboard) // GET /api/v1/admin/dashboard

	rules := e.Group("/api/v1/rules")
	{
		rules.GET("", h.GetRules)     // GET /api/v1/rules
		rules.PUT("", h.ReplaceRules) // PUT /api/v1/rules
	}
}

// RegisterFeedRoutes registers the live decision event stream
func RegisterFeedRoutes(e *echo.Echo, c *container.Container) {
	if c.Feed == nil {
		return
	}
	h := handlers.NewFeedHandler(c.Feed)

	e.GET("/api/v1/events/ws", h.Stream) // GET /api/v1/events/ws?efn=EFN-PUN-1A2B3C4D
}
