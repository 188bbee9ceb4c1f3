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

const (
	d3Delay = 3 * 24 * time.Hour
	w2Delay = 14 * 24 * time.Hour
)

// AftercareService drives the per-appointment check-in lifecycle:
// day-3 and week-2 messages, sent once each, selected by a daily sweep.
type AftercareService struct {
	db       *gorm.DB
	sender   Sender
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewAftercareService(db *gorm.DB, sender Sender, settings *config.Settings) *AftercareService {
	return &AftercareService{
		db:       db,
		sender:   sender,
		settings: settings,
		log:      log.With().Str("component", "aftercare").Logger(),
		now:      time.Now,
	}
}

// DueItem is the joined projection the aftercare sweep works from.
type DueItem struct {
	SequenceID    uuid.UUID
	AppointmentID uuid.UUID
	ClientID      uuid.UUID
	ServiceType   string
	EndDatetime   time.Time
	FullName      string
	Phone         string
}

func (s *AftercareService) dueRows(ctx context.Context, extra string, threshold time.Time) ([]DueItem, error) {
	var rows []DueItem
	err := s.db.WithContext(ctx).
		Table("aftercare_sequences AS seq").
		Select("seq.id AS sequence_id, seq.appointment_id, seq.client_id, a.service_type, a.end_datetime, c.full_name, c.phone").
		Joins("JOIN appointments a ON a.id = seq.appointment_id").
		Joins("JOIN clients c ON c.id = seq.client_id").
		Where("a.status = ? AND a.end_datetime <= ? AND a.deleted_at IS NULL AND c.deleted_at IS NULL",
			models.AppointmentCompleted, threshold).
		Where(extra).
		Scan(&rows).Error
	return rows, err
}

// DueD3 selects sequences whose day-3 check-in has not gone out yet.
func (s *AftercareService) DueD3(ctx context.Context) ([]DueItem, error) {
	return s.dueRows(ctx, "seq.d3_sent_at IS NULL", s.now().Add(-d3Delay))
}

// DueW2 selects sequences whose week-2 check-in is pending. W2 requires the
// D3 message to already be sent.
func (s *AftercareService) DueW2(ctx context.Context) ([]DueItem, error) {
	return s.dueRows(ctx, "seq.w2_sent_at IS NULL AND seq.d3_sent_at IS NOT NULL", s.now().Add(-w2Delay))
}

// RunSweep processes every due D3 and W2 item. Per-item failures are logged
// and skipped; a failed item stays selectable next cycle.
func (s *AftercareService) RunSweep(ctx context.Context) (sent int) {
	d3, err := s.DueD3(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("D3 due query failed")
	}
	for _, item := range d3 {
		if err := s.sendD3(ctx, item); err != nil {
			if errors.Is(err, errAlreadySent) {
				s.log.Debug().Str("sequence", item.SequenceID.String()).Msg("D3 duplicate suppressed")
				continue
			}
			s.log.Warn().Err(err).Str("sequence", item.SequenceID.String()).Msg("D3 send skipped")
			continue
		}
		sent++
	}

	w2, err := s.DueW2(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("W2 due query failed")
	}
	for _, item := range w2 {
		if err := s.sendW2(ctx, item); err != nil {
			if errors.Is(err, errAlreadySent) {
				s.log.Debug().Str("sequence", item.SequenceID.String()).Msg("W2 duplicate suppressed")
				continue
			}
			s.log.Warn().Err(err).Str("sequence", item.SequenceID.String()).Msg("W2 send skipped")
			continue
		}
		sent++
	}

	s.log.Info().Int("sent", sent).Msg("Aftercare sweep finished")
	return sent
}

func firstName(fullName string) string {
	for i := 0; i < len(fullName); i++ {
		if fullName[i] == ' ' {
			return fullName[:i]
		}
	}
	return fullName
}

func (s *AftercareService) d3Body(item DueItem) string {
	return fmt.Sprintf("Hi %s! It's been 3 days since your %s. How are you loving your hair? Any aftercare questions? I'm here! - %s",
		firstName(item.FullName), item.ServiceType, s.settings.StylistName)
}

func (s *AftercareService) w2Body(item DueItem) string {
	return fmt.Sprintf("Hi %s! Two weeks already - how are your %s wearing? When you're ready for a refresh or your next appointment, reply BOOK and I'll sort you out! - %s",
		firstName(item.FullName), item.ServiceType, s.settings.StylistName)
}

// sendD3 delivers the day-3 message and records it. The log insert and the
// mark-as-sent write share one transaction; if another run already claimed
// the row (d3_sent_at no longer NULL), the conditional update affects zero
// rows and the whole transaction, including the log entry, rolls back.
func (s *AftercareService) sendD3(ctx context.Context, item DueItem) error {
	body := s.d3Body(item)
	sid, err := s.sender.Send(item.Phone, body)
	if err != nil {
		// Not marked as sent; the row stays selectable next cycle.
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			ClientID:      &item.ClientID,
			AppointmentID: &item.AppointmentID,
			PhoneNumber:   item.Phone,
			Direction:     models.DirectionOutbound,
			Body:          body,
			ProviderSID:   sid,
			Status:        models.SmsStatusSent,
			MessageType:   models.MessageTypeAftercareD3,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}

		res := tx.Model(&models.AftercareSequence{}).
			Where("id = ? AND d3_sent_at IS NULL", item.SequenceID).
			Updates(map[string]any{
				"d3_sent_at": now,
				"d3_sms_id":  sms.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadySent
		}
		return nil
	})
}

// sendW2 mirrors sendD3 and additionally flips the upsell flag.
func (s *AftercareService) sendW2(ctx context.Context, item DueItem) error {
	body := s.w2Body(item)
	sid, err := s.sender.Send(item.Phone, body)
	if err != nil {
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			ClientID:      &item.ClientID,
			AppointmentID: &item.AppointmentID,
			PhoneNumber:   item.Phone,
			Direction:     models.DirectionOutbound,
			Body:          body,
			ProviderSID:   sid,
			Status:        models.SmsStatusSent,
			MessageType:   models.MessageTypeAftercareW2,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}

		res := tx.Model(&models.AftercareSequence{}).
			Where("id = ? AND w2_sent_at IS NULL AND d3_sent_at IS NOT NULL", item.SequenceID).
			Updates(map[string]any{
				"w2_sent_at":        now,
				"w2_sms_id":         sms.ID,
				"upsell_offer_sent": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadySent
		}
		return nil
	})
}

// SendD3 is the operator-triggered variant for a single sequence. Rejected
// when the message already went out.
func (s *AftercareService) SendD3(ctx context.Context, sequenceID uuid.UUID) (string, error) {
	item, err := s.loadSequenceItem(ctx, sequenceID)
	if err != nil {
		return "", err
	}
	if err := s.sendD3(ctx, *item); err != nil {
		if errors.Is(err, errAlreadySent) {
			return "", fmt.Errorf("D3 already sent for this sequence: %w", ErrInvalidState)
		}
		return "", err
	}
	return s.d3Body(*item), nil
}

func (s *AftercareService) SendW2(ctx context.Context, sequenceID uuid.UUID) (string, error) {
	item, err := s.loadSequenceItem(ctx, sequenceID)
	if err != nil {
		return "", err
	}

	var seq models.AftercareSequence
	if err := s.db.WithContext(ctx).First(&seq, "id = ?", sequenceID).Error; err != nil {
		return "", err
	}
	if seq.D3SentAt == nil {
		return "", fmt.Errorf("W2 requires the D3 message to be sent first: %w", ErrInvalidState)
	}

	if err := s.sendW2(ctx, *item); err != nil {
		if errors.Is(err, errAlreadySent) {
			return "", fmt.Errorf("W2 already sent for this sequence: %w", ErrInvalidState)
		}
		return "", err
	}
	return s.w2Body(*item), nil
}

func (s *AftercareService) loadSequenceItem(ctx context.Context, sequenceID uuid.UUID) (*DueItem, error) {
	var rows []DueItem
	err := s.db.WithContext(ctx).
		Table("aftercare_sequences AS seq").
		Select("seq.id AS sequence_id, seq.appointment_id, seq.client_id, a.service_type, a.end_datetime, c.full_name, c.phone").
		Joins("JOIN appointments a ON a.id = seq.appointment_id").
		Joins("JOIN clients c ON c.id = seq.client_id").
		Where("seq.id = ?", sequenceID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("aftercare sequence %s: %w", sequenceID, ErrNotFound)
	}
	return &rows[0], nil
}

// RecordResponse attaches a client reply to a sent check-in. Recording a
// response for a check-in that never went out is rejected.
func (s *AftercareService) RecordResponse(ctx context.Context, sequenceID uuid.UUID, responseType, text string) error {
	var seq models.AftercareSequence
	if err := s.db.WithContext(ctx).First(&seq, "id = ?", sequenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("aftercare sequence %s: %w", sequenceID, ErrNotFound)
		}
		return err
	}

	switch responseType {
	case "d3":
		if seq.D3SentAt == nil {
			return fmt.Errorf("no D3 message sent yet: %w", ErrInvalidState)
		}
		return s.db.WithContext(ctx).Model(&seq).Update("d3_response", text).Error
	case "w2":
		if seq.W2SentAt == nil {
			return fmt.Errorf("no W2 message sent yet: %w", ErrInvalidState)
		}
		return s.db.WithContext(ctx).Model(&seq).Update("w2_response", text).Error
	default:
		return &ValidationError{Field: "response_type", Reason: "must be 'd3' or 'w2'"}
	}
}

// MarkUpsellConverted records that the week-2 upsell led to a booking.
func (s *AftercareService) MarkUpsellConverted(ctx context.Context, sequenceID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.AftercareSequence{}).
		Where("id = ? AND upsell_offer_sent = ?", sequenceID, true).
		Update("upsell_converted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.AftercareSequence{}).Where("id = ?", sequenceID).Count(&count)
		if count == 0 {
			return fmt.Errorf("aftercare sequence %s: %w", sequenceID, ErrNotFound)
		}
		return fmt.Errorf("no upsell offer was sent: %w", ErrInvalidState)
	}
	return nil
}
