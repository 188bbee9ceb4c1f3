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
	"salonflow-backend/utils"
)

// lapsingWindow is the trailing no-visit window after which a client counts
// as lapsed.
const lapsingWindow = 90 * 24 * time.Hour

type ClientService struct {
	db       *gorm.DB
	sender   Sender
	narrator Narrator
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewClientService(db *gorm.DB, sender Sender, narrator Narrator, settings *config.Settings) *ClientService {
	return &ClientService{
		db:       db,
		sender:   sender,
		narrator: narrator,
		settings: settings,
		log:      log.With().Str("component", "clients").Logger(),
		now:      time.Now,
	}
}

type CreateClientInput struct {
	FullName    string
	Phone       string
	Email       string
	Notes       string
	GdprConsent bool
}

func (s *ClientService) Create(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	if input.FullName == "" {
		return nil, &ValidationError{Field: "full_name", Reason: "required"}
	}
	phone := utils.NormalizePhone(input.Phone)
	if !utils.ValidatePhone(phone) {
		return nil, &ValidationError{Field: "phone", Reason: "must be E.164"}
	}

	var existing models.Client
	err := s.db.WithContext(ctx).First(&existing, "phone = ?", phone).Error
	if err == nil {
		return nil, &ValidationError{Field: "phone", Reason: "a client with this phone number already exists"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client := models.Client{
		FullName:    input.FullName,
		Phone:       phone,
		Email:       input.Email,
		Notes:       input.Notes,
		GdprConsent: input.GdprConsent,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &client, nil
}

// FindByPhone matches an inbound sender to a client, if one exists.
func (s *ClientService) FindByPhone(ctx context.Context, phone string) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).First(&client, "phone = ?", utils.NormalizePhone(phone)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// FlagLapsed is the weekly sweep: clients with at least one historical visit
// and none inside the lapsing window get is_lapsed set. The inverse never
// happens here; the flag is only cleared by an actual completed visit (or an
// explicit operator outreach).
func (s *ClientService) FlagLapsed(ctx context.Context) (int64, error) {
	threshold := utils.BeginningOfDay(s.now().In(s.settings.Timezone)).Add(-lapsingWindow)

	res := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("is_lapsed = ? AND last_visit_date IS NOT NULL AND last_visit_date < ?", false, threshold).
		Update("is_lapsed", true)
	if res.Error != nil {
		return 0, res.Error
	}

	s.log.Info().Int64("flagged", res.RowsAffected).Msg("Lapsing sweep finished")
	return res.RowsAffected, nil
}

// LapsedClients lists flagged clients, oldest visit first.
func (s *ClientService) LapsedClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).
		Where("is_lapsed = ?", true).
		Order("last_visit_date asc").
		Find(&clients).Error
	return clients, err
}

// SendLapsedOutreach drafts and sends a re-engagement message to one client.
// The lapsed flag is cleared as part of the send: outreach is a deliberate
// operator action, not a sweep.
func (s *ClientService) SendLapsedOutreach(ctx context.Context, clientID uuid.UUID) (string, error) {
	client, err := s.Get(ctx, clientID)
	if err != nil {
		return "", err
	}

	var lastAppt models.Appointment
	lastService := "hair appointment"
	err = s.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, models.AppointmentCompleted).
		Order("start_datetime desc").
		First(&lastAppt).Error
	if err == nil {
		lastService = lastAppt.ServiceType
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	weeksSince := 0
	if client.LastVisitDate != nil {
		weeksSince = int(s.now().Sub(*client.LastVisitDate).Hours() / 24 / 7)
	}

	body, err := s.narrator.DraftLapsedOutreach(ctx, LapsedContext{
		FullName:        client.FullName,
		LastService:     lastService,
		WeeksSinceVisit: weeksSince,
		TotalVisits:     client.TotalVisits,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("client", clientID.String()).Msg("Lapsed outreach draft fell back to template")
		fallback := NewTemplateNarrator(s.settings.StylistName, s.settings.SalonName)
		body, _ = fallback.DraftLapsedOutreach(ctx, LapsedContext{
			FullName: client.FullName, LastService: lastService,
		})
	}

	sid, err := s.sender.Send(client.Phone, body)
	if err != nil {
		return "", err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			ClientID:    &client.ID,
			PhoneNumber: client.Phone,
			Direction:   models.DirectionOutbound,
			Body:        body,
			ProviderSID: sid,
			Status:      models.SmsStatusSent,
			MessageType: models.MessageTypeLapsedOutreach,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}
		return tx.Model(client).Update("is_lapsed", false).Error
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// AddToWaitlist queues a client for a freed slot.
func (s *ClientService) AddToWaitlist(ctx context.Context, clientID uuid.UUID, desiredService string, from, to *time.Time, notes string) (*models.WaitlistEntry, error) {
	if desiredService == "" {
		return nil, &ValidationError{Field: "desired_service", Reason: "required"}
	}
	if _, err := s.Get(ctx, clientID); err != nil {
		return nil, err
	}

	entry := models.WaitlistEntry{
		ClientID:         clientID,
		DesiredService:   desiredService,
		DesiredDateFrom:  from,
		DesiredDateTo:    to,
		FlexibilityNotes: notes,
		Status:           models.WaitlistWaiting,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *ClientService) Waitlist(ctx context.Context) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("status = ?", models.WaitlistWaiting).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}
