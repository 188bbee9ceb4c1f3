package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/utils"
)

const (
	quoteFollowUpDelay    = 3 * 24 * time.Hour
	followUpFollowUpDelay = 7 * 24 * time.Hour
)

// LeadService drives the extension-lead pipeline:
// new → qualified → quoted → follow_up → booked|lost. Stages only move
// forward; booked/lost are operator decisions.
type LeadService struct {
	db       *gorm.DB
	sender   Sender
	narrator Narrator
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewLeadService(db *gorm.DB, sender Sender, narrator Narrator, settings *config.Settings) *LeadService {
	return &LeadService{
		db:       db,
		sender:   sender,
		narrator: narrator,
		settings: settings,
		log:      log.With().Str("component", "leads").Logger(),
		now:      time.Now,
	}
}

type CreateLeadInput struct {
	Name          string
	Phone         string
	Email         string
	Source        string
	HairLength    string
	HairTexture   string
	DesiredLength string
	DesiredColor  string
	ExtensionType string
	BudgetRange   string
	Timeline      string
	Notes         string
}

func (s *LeadService) Create(ctx context.Context, input CreateLeadInput) (*models.ExtensionLead, error) {
	if input.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	phone := utils.NormalizePhone(input.Phone)
	if !utils.ValidatePhone(phone) {
		return nil, &ValidationError{Field: "phone", Reason: "must be E.164"}
	}

	lead := models.ExtensionLead{
		Name:          input.Name,
		Phone:         phone,
		Email:         input.Email,
		Source:        input.Source,
		HairLength:    input.HairLength,
		HairTexture:   input.HairTexture,
		DesiredLength: input.DesiredLength,
		DesiredColor:  input.DesiredColor,
		ExtensionType: input.ExtensionType,
		BudgetRange:   input.BudgetRange,
		Timeline:      input.Timeline,
		Notes:         input.Notes,
		PipelineStage: models.StageNew,
	}
	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) Get(ctx context.Context, id uuid.UUID) (*models.ExtensionLead, error) {
	var lead models.ExtensionLead
	if err := s.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) leadContext(lead *models.ExtensionLead) LeadContext {
	days := 0
	if !lead.CreatedAt.IsZero() {
		days = int(s.now().Sub(lead.CreatedAt).Hours() / 24)
	}
	return LeadContext{
		Name:              lead.Name,
		Source:            lead.Source,
		HairLength:        lead.HairLength,
		HairTexture:       lead.HairTexture,
		DesiredLength:     lead.DesiredLength,
		DesiredColor:      lead.DesiredColor,
		ExtensionType:     lead.ExtensionType,
		BudgetRange:       lead.BudgetRange,
		Timeline:          lead.Timeline,
		Notes:             lead.Notes,
		QualificationTier: lead.QualificationTier,
		DaysSinceInquiry:  days,
		FollowUpCount:     lead.FollowUpCount,
	}
}

// Qualify runs AI scoring on a lead. Qualification may run any number of
// times; the stage advances new → qualified on the first run and never
// regresses afterwards. A non-conforming generator result falls back to
// DefaultQualification.
func (s *LeadService) Qualify(ctx context.Context, id uuid.UUID) (Qualification, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return Qualification{}, err
	}

	q, err := s.narrator.QualifyLead(ctx, s.leadContext(lead))
	if err != nil {
		s.log.Warn().Err(err).Str("lead", lead.ID.String()).Msg("Qualification fell back to default")
		q = DefaultQualification()
	}

	notes, err := json.Marshal(map[string]any{
		"recommended_extension_type": q.RecommendedExtensionType,
		"concerns":                   q.Concerns,
		"recommended_action":         q.RecommendedAction,
		"consultation_priority":      q.ConsultationPriority,
	})
	if err != nil {
		return Qualification{}, err
	}

	updates := map[string]any{
		"qualification_score": q.Score,
		"qualification_tier":  q.Tier,
		"qualification_notes": datatypes.JSON(notes),
	}
	if lead.PipelineStage == models.StageNew {
		updates["pipeline_stage"] = models.StageQualified
	}

	if err := s.db.WithContext(ctx).Model(lead).Updates(updates).Error; err != nil {
		return Qualification{}, err
	}
	return q, nil
}

// GenerateQuote streams a drafted quote to emit chunk by chunk. The full
// text is persisted on the lead only after the stream completes; an aborted
// stream persists nothing.
func (s *LeadService) GenerateQuote(ctx context.Context, id uuid.UUID, emit func(chunk string) error) (string, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	full, err := s.narrator.DraftQuote(ctx, s.leadContext(lead), emit)
	if err != nil {
		return "", fmt.Errorf("%w: quote draft: %v", ErrExternalService, err)
	}

	if err := s.db.WithContext(ctx).Model(lead).Update("quote_text", full).Error; err != nil {
		return "", err
	}
	return full, nil
}

// SendQuote delivers the finalized quote and advances the pipeline:
// stage → quoted, quote_sent_at = now, next follow-up in three days.
func (s *LeadService) SendQuote(ctx context.Context, id uuid.UUID, quoteText string, quoteAmount *float64) error {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if lead.PipelineStage.Terminal() {
		return fmt.Errorf("lead is %s: %w", lead.PipelineStage, ErrInvalidState)
	}
	if quoteText == "" {
		return &ValidationError{Field: "quote_text", Reason: "required"}
	}

	sid, err := s.sender.Send(lead.Phone, quoteText)
	if err != nil {
		return err
	}

	now := s.now()
	next := now.Add(quoteFollowUpDelay)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			LeadID:      &lead.ID,
			PhoneNumber: lead.Phone,
			Direction:   models.DirectionOutbound,
			Body:        quoteText,
			ProviderSID: sid,
			Status:      models.SmsStatusSent,
			MessageType: models.MessageTypeQuote,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"quote_text":        quoteText,
			"quote_sent_at":     now,
			"pipeline_stage":    models.StageQuoted,
			"next_follow_up_at": next,
		}
		if quoteAmount != nil {
			updates["quote_amount"] = *quoteAmount
		}
		return tx.Model(lead).Updates(updates).Error
	})
}

// SendFollowUp drafts and sends one follow-up message. The copy tone is a
// pure function of follow_up_count. Each send increments the counter and
// reschedules the next follow-up a week out; a lead in quoted advances to
// follow_up, later sends leave the stage alone.
func (s *LeadService) SendFollowUp(ctx context.Context, id uuid.UUID) (string, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if lead.PipelineStage.Terminal() {
		return "", fmt.Errorf("lead is %s: %w", lead.PipelineStage, ErrInvalidState)
	}

	body, err := s.narrator.DraftFollowUp(ctx, s.leadContext(lead))
	if err != nil {
		s.log.Warn().Err(err).Str("lead", lead.ID.String()).Msg("Follow-up draft fell back to template")
		fallback := NewTemplateNarrator(s.settings.StylistName, s.settings.SalonName)
		body, _ = fallback.DraftFollowUp(ctx, s.leadContext(lead))
	}

	sid, err := s.sender.Send(lead.Phone, body)
	if err != nil {
		return "", err
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sms := models.SmsMessage{
			LeadID:      &lead.ID,
			PhoneNumber: lead.Phone,
			Direction:   models.DirectionOutbound,
			Body:        body,
			ProviderSID: sid,
			Status:      models.SmsStatusSent,
			MessageType: models.MessageTypeFollowUp,
		}
		if err := tx.Create(&sms).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"follow_up_count":   lead.FollowUpCount + 1,
			"last_follow_up_at": now,
			"next_follow_up_at": now.Add(followUpFollowUpDelay),
		}
		if lead.PipelineStage == models.StageQuoted {
			updates["pipeline_stage"] = models.StageFollowUp
		}
		return tx.Model(lead).Updates(updates).Error
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// SetStage applies an explicit operator stage decision (booked, lost,
// contacted). Leaving a terminal stage is rejected.
func (s *LeadService) SetStage(ctx context.Context, id uuid.UUID, stage models.PipelineStage) error {
	switch stage {
	case models.StageNew, models.StageContacted, models.StageQualified,
		models.StageQuoted, models.StageFollowUp, models.StageBooked, models.StageLost:
	default:
		return &ValidationError{Field: "pipeline_stage", Reason: "unknown stage"}
	}

	lead, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if lead.PipelineStage.Terminal() && stage != lead.PipelineStage {
		return fmt.Errorf("lead is %s: %w", lead.PipelineStage, ErrInvalidState)
	}
	return s.db.WithContext(ctx).Model(lead).Update("pipeline_stage", stage).Error
}

// OverdueFollowUps returns leads whose next follow-up is due and whose stage
// is not terminal.
func (s *LeadService) OverdueFollowUps(ctx context.Context) ([]models.ExtensionLead, error) {
	var leads []models.ExtensionLead
	err := s.db.WithContext(ctx).
		Where("next_follow_up_at <= ? AND pipeline_stage NOT IN ?",
			s.now(), []models.PipelineStage{models.StageBooked, models.StageLost}).
		Order("next_follow_up_at asc").
		Find(&leads).Error
	return leads, err
}

// SurfaceOverdue is the daily sweep body. It only counts and logs; sending
// the follow-up stays an explicit operator action, unlike aftercare which
// auto-sends.
func (s *LeadService) SurfaceOverdue(ctx context.Context) int {
	leads, err := s.OverdueFollowUps(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Overdue follow-up query failed")
		return 0
	}
	s.log.Info().Int("count", len(leads)).Msg("Leads need follow-up today")
	return len(leads)
}

// PipelineSummary counts leads per stage.
func (s *LeadService) PipelineSummary(ctx context.Context) (map[models.PipelineStage]int64, error) {
	type row struct {
		PipelineStage models.PipelineStage
		N             int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.ExtensionLead{}).
		Select("pipeline_stage, count(id) AS n").
		Group("pipeline_stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := map[models.PipelineStage]int64{
		models.StageNew: 0, models.StageContacted: 0, models.StageQualified: 0,
		models.StageQuoted: 0, models.StageFollowUp: 0, models.StageBooked: 0, models.StageLost: 0,
	}
	for _, r := range rows {
		summary[r.PipelineStage] = r.N
	}
	return summary, nil
}
