package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
)

type AppointmentService struct {
	db       *gorm.DB
	sender   Sender
	calendar Calendar
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewAppointmentService(db *gorm.DB, sender Sender, calendar Calendar, settings *config.Settings) *AppointmentService {
	return &AppointmentService{
		db:       db,
		sender:   sender,
		calendar: calendar,
		settings: settings,
		log:      log.With().Str("component", "appointments").Logger(),
		now:      time.Now,
	}
}

type CreateAppointmentInput struct {
	ClientID        uuid.UUID
	ServiceType     string
	DurationMinutes int
	Price           float64
	StartDatetime   time.Time
	Notes           string
	DepositPaid     bool
	DepositAmount   float64
}

func (s *AppointmentService) Create(ctx context.Context, input CreateAppointmentInput) (*models.Appointment, error) {
	if input.DurationMinutes <= 0 {
		return nil, &ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", input.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %s: %w", input.ClientID, ErrNotFound)
		}
		return nil, err
	}

	appt := models.Appointment{
		ClientID:        client.ID,
		ServiceType:     input.ServiceType,
		DurationMinutes: input.DurationMinutes,
		Price:           input.Price,
		Status:          models.AppointmentScheduled,
		StartDatetime:   input.StartDatetime,
		EndDatetime:     input.StartDatetime.Add(time.Duration(input.DurationMinutes) * time.Minute),
		Notes:           input.Notes,
		DepositPaid:     input.DepositPaid,
		DepositAmount:   input.DepositAmount,
	}
	if err := s.db.WithContext(ctx).Create(&appt).Error; err != nil {
		return nil, err
	}

	// Calendar sync is best-effort; a provider failure never fails the booking.
	if s.calendar.IsConfigured() {
		eventID, err := s.calendar.CreateEvent(ctx, &appt, &client)
		if err != nil {
			s.log.Warn().Err(err).Str("appointment", appt.ID.String()).Msg("Calendar event creation failed")
		} else if eventID != "" {
			s.db.WithContext(ctx).Model(&appt).Update("calendar_event_id", eventID)
		}
	}

	return &appt, nil
}

type UpdateAppointmentInput struct {
	ServiceType     *string
	DurationMinutes *int
	Price           *float64
	StartDatetime   *time.Time
	Notes           *string
	DepositPaid     *bool
	DepositAmount   *float64
}

func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, input UpdateAppointmentInput) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).Preload("Client").First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	if input.ServiceType != nil {
		appt.ServiceType = *input.ServiceType
	}
	if input.DurationMinutes != nil {
		appt.DurationMinutes = *input.DurationMinutes
	}
	if input.Price != nil {
		appt.Price = *input.Price
	}
	if input.StartDatetime != nil {
		appt.StartDatetime = *input.StartDatetime
	}
	if input.Notes != nil {
		appt.Notes = *input.Notes
	}
	if input.DepositPaid != nil {
		appt.DepositPaid = *input.DepositPaid
	}
	if input.DepositAmount != nil {
		appt.DepositAmount = *input.DepositAmount
	}
	if input.StartDatetime != nil || input.DurationMinutes != nil {
		appt.EndDatetime = appt.StartDatetime.Add(time.Duration(appt.DurationMinutes) * time.Minute)
	}

	if err := s.db.WithContext(ctx).Save(&appt).Error; err != nil {
		return nil, err
	}

	if appt.CalendarEventID != "" && s.calendar.IsConfigured() {
		if err := s.calendar.UpdateEvent(ctx, appt.CalendarEventID, &appt, &appt.Client); err != nil {
			s.log.Warn().Err(err).Str("appointment", appt.ID.String()).Msg("Calendar event update failed")
		}
	}

	return &appt, nil
}

// Complete marks an appointment completed and applies every side effect in
// one transaction: client aggregates, lapsed-flag clear, first-visit
// backfill, and idempotent aftercare sequence creation. Completing an
// already-completed appointment is a no-op.
func (s *AppointmentService) Complete(ctx context.Context, id uuid.UUID) error {
	now := s.now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.First(&appt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
			}
			return err
		}
		if appt.Status == models.AppointmentCompleted {
			return nil
		}
		if appt.Status == models.AppointmentCancelled || appt.Status == models.AppointmentNoShow {
			return fmt.Errorf("cannot complete %s appointment: %w", appt.Status, ErrInvalidState)
		}

		var client models.Client
		if err := tx.First(&client, "id = ?", appt.ClientID).Error; err != nil {
			return err
		}

		if err := tx.Model(&appt).Update("status", models.AppointmentCompleted).Error; err != nil {
			return err
		}

		visitDate := appt.StartDatetime
		updates := map[string]any{
			"total_visits":    client.TotalVisits + 1,
			"total_spent":     client.TotalSpent + appt.Price,
			"last_visit_date": visitDate,
			"is_lapsed":       false,
		}
		if client.FirstVisitDate == nil {
			updates["first_visit_date"] = visitDate
		}
		if err := tx.Model(&client).Updates(updates).Error; err != nil {
			return err
		}

		// Idempotent sequence creation: checked by presence, never upserted.
		var count int64
		if err := tx.Model(&models.AftercareSequence{}).
			Where("appointment_id = ?", appt.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			seq := models.AftercareSequence{
				AppointmentID: appt.ID,
				ClientID:      client.ID,
				CreatedAt:     now,
			}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Cancel sets the appointment cancelled, removes the external calendar
// event, and offers the freed slot to the oldest waiting waitlist entry.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return err
	}
	if appt.Status == models.AppointmentCompleted {
		return fmt.Errorf("cannot cancel a completed appointment: %w", ErrInvalidState)
	}

	updates := map[string]any{
		"status":              models.AppointmentCancelled,
		"cancellation_reason": reason,
	}
	if err := s.db.WithContext(ctx).Model(&appt).Updates(updates).Error; err != nil {
		return err
	}

	if appt.CalendarEventID != "" && s.calendar.IsConfigured() {
		if err := s.calendar.DeleteEvent(ctx, appt.CalendarEventID); err != nil {
			s.log.Warn().Err(err).Str("appointment", appt.ID.String()).Msg("Calendar event deletion failed")
		} else {
			s.db.WithContext(ctx).Model(&appt).Update("calendar_event_id", "")
		}
	}

	s.notifyWaitlist(ctx, &appt)
	return nil
}

// notifyWaitlist offers the freed slot to the single oldest waiting entry
// (FIFO, id as tie-break). Desired service and date range are deliberately
// not matched; the globally-oldest entry wins. One entry per cancellation.
func (s *AppointmentService) notifyWaitlist(ctx context.Context, appt *models.Appointment) {
	var entry models.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("status = ?", models.WaitlistWaiting).
		Order("created_at asc, id asc").
		First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Err(err).Msg("Waitlist lookup failed")
		}
		return
	}

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", entry.ClientID).Error; err != nil {
		s.log.Error().Err(err).Str("entry", entry.ID.String()).Msg("Waitlist client lookup failed")
		return
	}

	slot := appt.StartDatetime.In(s.settings.Timezone).Format("Monday, January 2 at 3:04 PM")
	body := fmt.Sprintf("Hi %s! A slot just opened up: %s. Reply BOOK to claim it! - %s",
		client.FirstName(), slot, s.settings.StylistName)

	sid, err := s.sender.Send(client.Phone, body)
	if err != nil {
		// Entry stays waiting; the next cancellation will pick it again.
		s.log.Warn().Err(err).Str("entry", entry.ID.String()).Msg("Waitlist notification send failed")
		return
	}

	now := s.now()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			ClientID:    &client.ID,
			PhoneNumber: client.Phone,
			Direction:   models.DirectionOutbound,
			Body:        body,
			ProviderSID: sid,
			Status:      models.SmsStatusSent,
			MessageType: models.MessageTypeWaitlistOffer,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}
		return tx.Model(&models.WaitlistEntry{}).
			Where("id = ? AND status = ?", entry.ID, models.WaitlistWaiting).
			Updates(map[string]any{
				"status":      models.WaitlistOffered,
				"notified_at": now,
			}).Error
	})
	if txErr != nil {
		s.log.Error().Err(txErr).Str("entry", entry.ID.String()).Msg("Waitlist state update failed")
		return
	}

	s.log.Info().
		Str("entry", entry.ID.String()).
		Str("client", client.ID.String()).
		Msg("Waitlist entry offered freed slot")
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.AppointmentScheduled).
		Update("status", models.AppointmentNoShow)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("only scheduled appointments can be marked no-show: %w", ErrInvalidState)
	}
	return nil
}

type SyncResult struct {
	Checked     int         `json:"checked"`
	NeedsReview []uuid.UUID `json:"needs_review"`
}

// SyncCalendar pulls upcoming provider events and flags appointments whose
// start time drifted more than five minutes as needs_review. Only scheduled
// appointments are flagged; the side-state is recoverable via ResolveReview.
func (s *AppointmentService) SyncCalendar(ctx context.Context, horizonDays int) (*SyncResult, error) {
	events, err := s.calendar.UpcomingEvents(ctx, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	result := &SyncResult{}
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		var appt models.Appointment
		err := s.db.WithContext(ctx).First(&appt, "calendar_event_id = ?", ev.ID).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Error().Err(err).Str("event", ev.ID).Msg("Sync lookup failed")
			}
			continue
		}
		result.Checked++

		drift := ev.Start.Sub(appt.StartDatetime)
		if drift < 0 {
			drift = -drift
		}
		if drift > 5*time.Minute && appt.Status == models.AppointmentScheduled {
			if err := s.db.WithContext(ctx).Model(&appt).
				Update("status", models.AppointmentNeedsReview).Error; err != nil {
				s.log.Error().Err(err).Str("appointment", appt.ID.String()).Msg("Flagging for review failed")
				continue
			}
			result.NeedsReview = append(result.NeedsReview, appt.ID)
		}
	}
	return result, nil
}

// ResolveReview returns a needs_review appointment to scheduled.
func (s *AppointmentService) ResolveReview(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.AppointmentNeedsReview).
		Update("status", models.AppointmentScheduled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("appointment is not awaiting review: %w", ErrInvalidState)
	}
	return nil
}
