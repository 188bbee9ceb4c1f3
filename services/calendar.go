package services

import (
	"context"
	"time"

	"salonflow-backend/models"
)

type CalendarEvent struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
}

// Calendar is the external calendar provider. All methods may fail without
// affecting local state; callers treat failures as "skip, retry next cycle".
type Calendar interface {
	IsConfigured() bool
	CreateEvent(ctx context.Context, appt *models.Appointment, client *models.Client) (string, error)
	UpdateEvent(ctx context.Context, eventID string, appt *models.Appointment, client *models.Client) error
	DeleteEvent(ctx context.Context, eventID string) error
	AvailableSlots(ctx context.Context, day time.Time, durationMinutes int) ([]time.Time, error)
	UpcomingEvents(ctx context.Context, horizonDays int) ([]CalendarEvent, error)
}

// NoopCalendar is used when no calendar credentials are configured. The
// system keeps functioning as pure record-keeping.
type NoopCalendar struct{}

func (NoopCalendar) IsConfigured() bool { return false }

func (NoopCalendar) CreateEvent(context.Context, *models.Appointment, *models.Client) (string, error) {
	return "", nil
}

func (NoopCalendar) UpdateEvent(context.Context, string, *models.Appointment, *models.Client) error {
	return nil
}

func (NoopCalendar) DeleteEvent(context.Context, string) error { return nil }

func (NoopCalendar) AvailableSlots(context.Context, time.Time, int) ([]time.Time, error) {
	return nil, nil
}

func (NoopCalendar) UpcomingEvents(context.Context, int) ([]CalendarEvent, error) {
	return nil, nil
}
