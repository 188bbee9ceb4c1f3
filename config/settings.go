package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Settings holds everything the app reads from the environment.
// Loaded once at startup, passed into services by the wiring in main.
type Settings struct {
	Port      string
	Env       string // development / production
	DBURL     string
	JWTSecret string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	GoogleClientID     string
	GoogleClientSecret string

	AnthropicAPIKey string
	AnthropicModel  string

	SalonName   string
	StylistName string
	BookingLink string
	Timezone    *time.Location

	ReminderHour  int
	AftercareHour int
	FollowUpHour  int

	CORSOrigins []string
}

func LoadSettings() *Settings {
	s := &Settings{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("APP_ENV", "development"),
		DBURL:     os.Getenv("DB_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		SalonName:   getEnv("SALON_NAME", "The Salon"),
		StylistName: getEnv("STYLIST_NAME", "Your Stylist"),
		BookingLink: os.Getenv("BOOKING_LINK"),

		ReminderHour:  getEnvInt("SCHEDULER_REMINDER_HOUR", 8),
		AftercareHour: getEnvInt("SCHEDULER_AFTERCARE_HOUR", 9),
		FollowUpHour:  getEnvInt("SCHEDULER_FOLLOWUP_HOUR", 11),
	}

	tz := getEnv("SALON_TIMEZONE", "America/New_York")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn().Str("timezone", tz).Msg("Unknown timezone, falling back to local")
		loc = time.Local
	}
	s.Timezone = loc

	origins := getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.CORSOrigins = append(s.CORSOrigins, o)
		}
	}

	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
