package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/utils"
)

// ReminderService sends the day-before appointment reminders.
type ReminderService struct {
	db       *gorm.DB
	sender   Sender
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewReminderService(db *gorm.DB, sender Sender, settings *config.Settings) *ReminderService {
	return &ReminderService{
		db:       db,
		sender:   sender,
		settings: settings,
		log:      log.With().Str("component", "reminders").Logger(),
		now:      time.Now,
	}
}

type reminderRow struct {
	AppointmentID uuid.UUID
	ClientID      uuid.UUID
	ServiceType   string
	StartDatetime time.Time
	FullName      string
	Phone         string
}

// RunSweep messages every scheduled appointment starting tomorrow in the
// salon's local date. One client's failure never aborts the rest.
func (s *ReminderService) RunSweep(ctx context.Context) (sent int) {
	start, end := utils.DayWindow(s.now().In(s.settings.Timezone), 1)

	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Table("appointments AS a").
		Select("a.id AS appointment_id, a.client_id, a.service_type, a.start_datetime, c.full_name, c.phone").
		Joins("JOIN clients c ON c.id = a.client_id").
		Where("a.status = ? AND a.start_datetime >= ? AND a.start_datetime < ? AND a.deleted_at IS NULL AND c.deleted_at IS NULL",
			models.AppointmentScheduled, start, end).
		Order("a.start_datetime asc").
		Scan(&rows).Error
	if err != nil {
		s.log.Error().Err(err).Msg("Reminder query failed")
		return 0
	}

	for _, row := range rows {
		timeStr := row.StartDatetime.In(s.settings.Timezone).Format("3:04 PM")
		body := fmt.Sprintf("Hi %s! Reminder: you have %s tomorrow at %s. Reply CANCEL to cancel. See you then! - %s",
			firstName(row.FullName), row.ServiceType, timeStr, s.settings.StylistName)

		sid, err := s.sender.Send(row.Phone, body)
		if err != nil {
			s.log.Warn().Err(err).Str("appointment", row.AppointmentID.String()).Msg("Reminder send skipped")
			continue
		}

		sms := models.SmsMessage{
			ClientID:      &row.ClientID,
			AppointmentID: &row.AppointmentID,
			PhoneNumber:   row.Phone,
			Direction:     models.DirectionOutbound,
			Body:          body,
			ProviderSID:   sid,
			Status:        models.SmsStatusSent,
			MessageType:   models.MessageTypeReminder,
		}
		if err := s.db.WithContext(ctx).Create(&sms).Error; err != nil {
			s.log.Error().Err(err).Str("appointment", row.AppointmentID.String()).Msg("Reminder log write failed")
			continue
		}
		sent++
	}

	s.log.Info().Int("sent", sent).Msg("Reminder sweep finished")
	return sent
}
