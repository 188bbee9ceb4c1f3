package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/controllers"
	"salonflow-backend/utils"
)

// Controllers bundles the wired controller set built in main.
type Controllers struct {
	Clients      *controllers.ClientController
	Appointments *controllers.AppointmentController
	Leads        *controllers.LeadController
	Aftercare    *controllers.AftercareController
	Sms          *controllers.SmsController
	Inventory    *controllers.InventoryController
	Reports      *controllers.ReportController
	Dashboard    *controllers.DashboardController
	Calendar     *controllers.CalendarController
	Chat         *controllers.ChatController
}

func SetupRouter(settings *config.Settings, ctl Controllers) *gin.Engine {
	if settings.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Twilio posts here; authenticated by signature, not JWT.
	r.POST("/api/sms/webhook", ctl.Sms.Webhook)

	// Public web chat widget.
	chat := r.Group("/api/chat")
	{
		chat.POST("/session", ctl.Chat.CreateSession)
		chat.GET("/session/:token/history", ctl.Chat.History)
		chat.POST("/session/:token/message", ctl.Chat.Message)
		chat.DELETE("/session/:token", ctl.Chat.EndSession)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		clients := api.Group("/clients")
		{
			clients.POST("", ctl.Clients.Create)
			clients.GET("", ctl.Clients.List)
			clients.GET("/lapsed", ctl.Clients.ListLapsed)
			clients.GET("/:id", ctl.Clients.Get)
			clients.PUT("/:id", ctl.Clients.Update)
			clients.GET("/:id/timeline", ctl.Clients.Timeline)
			clients.POST("/:id/sms-outreach", ctl.Clients.SendOutreach)
		}

		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("", ctl.Clients.AddToWaitlist)
			waitlist.GET("", ctl.Clients.ListWaitlist)
		}

		appointments := api.Group("/appointments")
		{
			appointments.GET("/today", ctl.Appointments.Today)
			appointments.GET("/upcoming", ctl.Appointments.Upcoming)
			appointments.GET("", ctl.Appointments.List)
			appointments.POST("", ctl.Appointments.Create)
			appointments.GET("/:id", ctl.Appointments.Get)
			appointments.PUT("/:id", ctl.Appointments.Update)
			appointments.DELETE("/:id", ctl.Appointments.Cancel)
			appointments.POST("/:id/complete", ctl.Appointments.Complete)
			appointments.POST("/:id/no-show", ctl.Appointments.NoShow)
			appointments.POST("/:id/resolve-review", ctl.Appointments.ResolveReview)
		}

		leads := api.Group("/leads")
		{
			leads.GET("/pipeline-summary", ctl.Leads.PipelineSummary)
			leads.GET("/overdue", ctl.Leads.OverdueFollowUps)
			leads.GET("", ctl.Leads.List)
			leads.POST("", ctl.Leads.Create)
			leads.GET("/:id", ctl.Leads.Get)
			leads.PUT("/:id/stage", ctl.Leads.SetStage)
			leads.POST("/:id/qualify", ctl.Leads.Qualify)
			leads.POST("/:id/generate-quote", ctl.Leads.GenerateQuote)
			leads.POST("/:id/send-quote", ctl.Leads.SendQuote)
			leads.POST("/:id/follow-up", ctl.Leads.SendFollowUp)
		}

		aftercare := api.Group("/aftercare")
		{
			aftercare.GET("", ctl.Aftercare.List)
			aftercare.GET("/pending", ctl.Aftercare.Pending)
			aftercare.POST("/:id/send-d3", ctl.Aftercare.SendD3)
			aftercare.POST("/:id/send-w2", ctl.Aftercare.SendW2)
			aftercare.PUT("/:id/response", ctl.Aftercare.RecordResponse)
			aftercare.POST("/:id/upsell-converted", ctl.Aftercare.MarkUpsellConverted)
		}

		sms := api.Group("/sms")
		{
			sms.POST("/send", ctl.Sms.Send)
			sms.GET("/history/:clientId", ctl.Sms.History)
		}

		inventory := api.Group("/inventory")
		{
			inventory.GET("/alerts", ctl.Inventory.StockAlerts)
			inventory.POST("/reorder-advice", ctl.Inventory.ReorderAdvice)
			inventory.GET("/products", ctl.Inventory.ListProducts)
			inventory.POST("/products", ctl.Inventory.CreateProduct)
			inventory.GET("/products/:id", ctl.Inventory.GetProduct)
			inventory.PUT("/products/:id", ctl.Inventory.UpdateProduct)
			inventory.POST("/products/:id/adjust", ctl.Inventory.AdjustStock)
			inventory.GET("/purchase-orders", ctl.Inventory.ListPurchaseOrders)
			inventory.POST("/purchase-orders", ctl.Inventory.CreatePurchaseOrder)
			inventory.PUT("/purchase-orders/:id", ctl.Inventory.UpdatePurchaseOrderStatus)
		}

		reports := api.Group("/reports")
		{
			reports.GET("", ctl.Reports.List)
			reports.GET("/:month", ctl.Reports.Get)
			reports.POST("/:month/generate", ctl.Reports.Generate)
			reports.POST("/:month/ai-summary", ctl.Reports.Summarize)
		}

		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/alerts", ctl.Dashboard.Alerts)
			dashboard.GET("/stats", ctl.Dashboard.Stats)
		}

		calendar := api.Group("/calendar")
		{
			calendar.GET("/status", ctl.Calendar.Status)
			calendar.GET("/slots", ctl.Calendar.Slots)
			calendar.POST("/sync", ctl.Appointments.Sync)
		}

		servicesGroup := api.Group("/services")
		{
			servicesGroup.POST("", controllers.CreateService)
			servicesGroup.GET("", controllers.GetServices)
			servicesGroup.GET("/:id", controllers.GetService)
			servicesGroup.PUT("/:id", controllers.UpdateService)
			servicesGroup.DELETE("/:id", controllers.DeleteService)
		}
	}

	return r
}
