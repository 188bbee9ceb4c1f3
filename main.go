package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"salonflow-backend/config"
	"salonflow-backend/controllers"
	"salonflow-backend/models"
	"salonflow-backend/routes"
	"salonflow-backend/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading configuration from environment")
	}

	settings := config.LoadSettings()
	config.InitLogger(settings.Env)
	config.ConnectDB(settings.DBURL)

	err := config.DB.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.WaitlistEntry{},
		&models.Appointment{},
		&models.AftercareSequence{},
		&models.ExtensionLead{},
		&models.SmsMessage{},
		&models.ChatSession{},
		&models.Service{},
		&models.InventoryProduct{},
		&models.InventoryTransaction{},
		&models.PurchaseOrder{},
		&models.Report{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	sender := services.NewTwilioGateway(settings)
	if !sender.IsConfigured() {
		log.Warn().Msg("Twilio not configured; outbound messages will be logged only")
	}

	var narrator services.Narrator
	if settings.AnthropicAPIKey != "" {
		narrator = services.NewAnthropicNarrator(settings)
	} else {
		log.Warn().Msg("Anthropic not configured; using template copy")
		narrator = services.NewTemplateNarrator(settings.StylistName, settings.SalonName)
	}

	var calendar services.Calendar = services.NoopCalendar{}

	clientSvc := services.NewClientService(config.DB, sender, narrator, settings)
	appointmentSvc := services.NewAppointmentService(config.DB, sender, calendar, settings)
	aftercareSvc := services.NewAftercareService(config.DB, sender, settings)
	leadSvc := services.NewLeadService(config.DB, sender, narrator, settings)
	reminderSvc := services.NewReminderService(config.DB, sender, settings)
	messagingSvc := services.NewMessagingService(config.DB, sender, narrator, clientSvc, settings)
	inventorySvc := services.NewInventoryService(config.DB, narrator, settings)
	reportSvc := services.NewReportService(config.DB, narrator, settings)

	scheduler := services.NewScheduler(settings, reminderSvc, aftercareSvc, clientSvc, leadSvc)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Scheduler failed to start")
	}
	defer scheduler.Stop()

	router := routes.SetupRouter(settings, routes.Controllers{
		Clients:      &controllers.ClientController{Clients: clientSvc, Messaging: messagingSvc},
		Appointments: &controllers.AppointmentController{Appointments: appointmentSvc, Settings: settings},
		Leads:        &controllers.LeadController{Leads: leadSvc},
		Aftercare:    &controllers.AftercareController{Aftercare: aftercareSvc},
		Sms:          &controllers.SmsController{Messaging: messagingSvc, Sender: sender},
		Inventory:    &controllers.InventoryController{Inventory: inventorySvc},
		Reports:      &controllers.ReportController{Reports: reportSvc},
		Dashboard: &controllers.DashboardController{
			Inventory: inventorySvc,
			Aftercare: aftercareSvc,
			Leads:     leadSvc,
			Reports:   reportSvc,
		},
		Calendar: &controllers.CalendarController{Calendar: calendar, Settings: settings},
		Chat:     &controllers.ChatController{Messaging: messagingSvc},
	})

	log.Info().Str("port", settings.Port).Msg("Starting server")
	if err := router.Run(":" + settings.Port); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
