package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"salonflow-backend/config"
	"salonflow-backend/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

func testSettings() *config.Settings {
	return &config.Settings{
		Env:           "test",
		SalonName:     "Luxe Lengths",
		StylistName:   "Dana",
		BookingLink:   "https://book.example.com",
		Timezone:      time.UTC,
		ReminderHour:  8,
		AftercareHour: 9,
		FollowUpHour:  11,
	}
}

type sentMessage struct {
	To   string
	Body string
}

// fakeSender records outbound messages; an injected error simulates a
// gateway outage.
type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	nextN int
}

func (f *fakeSender) Send(to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextN++
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return fmt.Sprintf("SM%04d", f.nextN), nil
}

func (f *fakeSender) IsConfigured() bool { return true }

func (f *fakeSender) ValidateSignature(string, map[string]string, string) bool { return true }

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// failingNarrator errors on every call so fallbacks can be exercised.
type failingNarrator struct{}

var errNarratorDown = fmt.Errorf("narrator down")

func (failingNarrator) DraftFollowUp(context.Context, LeadContext) (string, error) {
	return "", errNarratorDown
}
func (failingNarrator) DraftLapsedOutreach(context.Context, LapsedContext) (string, error) {
	return "", errNarratorDown
}
func (failingNarrator) DraftQuote(context.Context, LeadContext, func(string) error) (string, error) {
	return "", errNarratorDown
}
func (failingNarrator) QualifyLead(context.Context, LeadContext) (Qualification, error) {
	return Qualification{}, errNarratorDown
}
func (failingNarrator) RecommendReorder(context.Context, ReorderContext) (ReorderAdvice, error) {
	return ReorderAdvice{}, errNarratorDown
}
func (failingNarrator) ChatReply(context.Context, []ChatTurn) (string, error) {
	return "", errNarratorDown
}
func (failingNarrator) MonthlySummary(context.Context, ReportContext, func(string) error) (string, error) {
	return "", errNarratorDown
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedClient(t *testing.T, db *gorm.DB, name, phone string) *models.Client {
	t.Helper()
	client := &models.Client{FullName: name, Phone: phone, GdprConsent: true}
	require.NoError(t, db.Create(client).Error)
	return client
}

func seedAppointment(t *testing.T, db *gorm.DB, client *models.Client, status models.AppointmentStatus, start time.Time, price float64) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		ClientID:        client.ID,
		ServiceType:     "Tape-In Extensions",
		DurationMinutes: 120,
		Price:           price,
		Status:          status,
		StartDatetime:   start,
		EndDatetime:     start.Add(2 * time.Hour),
	}
	require.NoError(t, db.Create(appt).Error)
	return appt
}
