package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salonflow-backend/models"
)

func newLeadService(t *testing.T, db *gorm.DB, sender Sender, narrator Narrator, clock time.Time) *LeadService {
	t.Helper()
	svc := NewLeadService(db, sender, narrator, testSettings())
	svc.now = fixedClock(clock)
	return svc
}

func seedLead(t *testing.T, db *gorm.DB, stage models.PipelineStage) *models.ExtensionLead {
	t.Helper()
	lead := &models.ExtensionLead{
		Name:          "Dalia Reyes",
		Phone:         "+15550000010",
		Source:        "instagram",
		HairLength:    "medium",
		HairTexture:   "wavy",
		ExtensionType: "tape-in",
		PipelineStage: stage,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestCreateLeadValidation(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())

	var vErr *ValidationError
	_, err := svc.Create(context.Background(), CreateLeadInput{Phone: "+15550000010"})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "name", vErr.Field)

	_, err = svc.Create(context.Background(), CreateLeadInput{Name: "Dalia Reyes", Phone: "not-a-number"})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "phone", vErr.Field)

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		Name:  "Dalia Reyes",
		Phone: "+1 (555) 000-0010",
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550000010", lead.Phone)
	assert.Equal(t, models.StageNew, lead.PipelineStage)
}

func TestQualifyAdvancesNewAndFallsBack(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())
	lead := seedLead(t, db, models.StageNew)

	q, err := svc.Qualify(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, q.Score)
	assert.Equal(t, "warm", q.Tier)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, models.StageQualified, stored.PipelineStage)
	require.NotNil(t, stored.QualificationScore)
	assert.Equal(t, 50, *stored.QualificationScore)
	assert.Equal(t, "warm", stored.QualificationTier)
	assert.NotEmpty(t, stored.QualificationNotes)
}

func TestQualifyNeverRegressesStage(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())
	lead := seedLead(t, db, models.StageQuoted)

	_, err := svc.Qualify(context.Background(), lead.ID)
	require.NoError(t, err)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, models.StageQuoted, stored.PipelineStage)
}

func TestGenerateQuoteStreamsThenPersists(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, NewTemplateNarrator("Dana", "Luxe Lengths"), time.Now())
	lead := seedLead(t, db, models.StageQualified)

	var chunks []string
	full, err := svc.GenerateQuote(context.Background(), lead.ID, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)

	joined := ""
	for _, c := range chunks {
		joined += c
	}
	assert.Equal(t, full, joined)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, full, stored.QuoteText)
}

func TestGenerateQuoteAbortedStreamPersistsNothing(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, NewTemplateNarrator("Dana", "Luxe Lengths"), time.Now())
	lead := seedLead(t, db, models.StageQualified)

	_, err := svc.GenerateQuote(context.Background(), lead.ID, func(string) error {
		return errors.New("client went away")
	})
	require.ErrorIs(t, err, ErrExternalService)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Empty(t, stored.QuoteText)
}

func TestSendQuoteAdvancesPipeline(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{}
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newLeadService(t, db, sender, failingNarrator{}, clock)
	lead := seedLead(t, db, models.StageQualified)

	amount := 850.0
	require.NoError(t, svc.SendQuote(context.Background(), lead.ID, "Your tape-in quote: $850", &amount))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, lead.Phone, msgs[0].To)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, models.StageQuoted, stored.PipelineStage)
	assert.Equal(t, "Your tape-in quote: $850", stored.QuoteText)
	require.NotNil(t, stored.QuoteSentAt)
	require.NotNil(t, stored.QuoteAmount)
	assert.Equal(t, 850.0, *stored.QuoteAmount)
	require.NotNil(t, stored.NextFollowUpAt)
	assert.WithinDuration(t, clock.Add(3*24*time.Hour), *stored.NextFollowUpAt, time.Second)

	var quoteLogs int64
	db.Model(&models.SmsMessage{}).Where("lead_id = ? AND message_type = ?", lead.ID, models.MessageTypeQuote).Count(&quoteLogs)
	assert.Equal(t, int64(1), quoteLogs)
}

func TestSendQuoteValidation(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())

	lead := seedLead(t, db, models.StageQualified)
	var vErr *ValidationError
	err := svc.SendQuote(context.Background(), lead.ID, "", nil)
	assert.True(t, errors.As(err, &vErr))

	booked := seedLead(t, db, models.StageBooked)
	booked.Phone = "+15550000011"
	require.NoError(t, db.Save(booked).Error)
	err = svc.SendQuote(context.Background(), booked.ID, "quote", nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSendFollowUpTonesAndScheduling(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{}
	clock := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)
	// The failing narrator forces the deterministic template fallback.
	svc := newLeadService(t, db, sender, failingNarrator{}, clock)
	lead := seedLead(t, db, models.StageQuoted)

	body, err := svc.SendFollowUp(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi Dalia Reyes! Just checking in on your tape-in inquiry — happy to answer any questions. Would love to get you in for a free consultation! - Dana", body)

	var stored models.ExtensionLead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, models.StageFollowUp, stored.PipelineStage)
	assert.Equal(t, 1, stored.FollowUpCount)
	require.NotNil(t, stored.LastFollowUpAt)
	require.NotNil(t, stored.NextFollowUpAt)
	assert.WithinDuration(t, clock.Add(7*24*time.Hour), *stored.NextFollowUpAt, time.Second)

	// Second send: urgency tone, stage stays follow_up.
	body, err = svc.SendFollowUp(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Contains(t, body, "filling up fast")

	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, models.StageFollowUp, stored.PipelineStage)
	assert.Equal(t, 2, stored.FollowUpCount)

	var followUps int64
	db.Model(&models.SmsMessage{}).Where("lead_id = ? AND message_type = ?", lead.ID, models.MessageTypeFollowUp).Count(&followUps)
	assert.Equal(t, int64(2), followUps)
}

func TestSetStageTerminalLock(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())
	lead := seedLead(t, db, models.StageFollowUp)

	var vErr *ValidationError
	err := svc.SetStage(context.Background(), lead.ID, models.PipelineStage("archived"))
	assert.True(t, errors.As(err, &vErr))

	require.NoError(t, svc.SetStage(context.Background(), lead.ID, models.StageBooked))

	// Terminal stages only accept themselves.
	assert.ErrorIs(t, svc.SetStage(context.Background(), lead.ID, models.StageLost), ErrInvalidState)
	require.NoError(t, svc.SetStage(context.Background(), lead.ID, models.StageBooked))
}

func TestOverdueFollowUpsSkipsTerminalAndFuture(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, clock)

	past := clock.Add(-24 * time.Hour)
	future := clock.Add(24 * time.Hour)

	overdue := &models.ExtensionLead{Name: "A", Phone: "+15550000021",
		PipelineStage: models.StageQuoted, NextFollowUpAt: &past}
	booked := &models.ExtensionLead{Name: "B", Phone: "+15550000022",
		PipelineStage: models.StageBooked, NextFollowUpAt: &past}
	notYet := &models.ExtensionLead{Name: "C", Phone: "+15550000023",
		PipelineStage: models.StageFollowUp, NextFollowUpAt: &future}
	require.NoError(t, db.Create(overdue).Error)
	require.NoError(t, db.Create(booked).Error)
	require.NoError(t, db.Create(notYet).Error)

	leads, err := svc.OverdueFollowUps(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, overdue.ID, leads[0].ID)

	assert.Equal(t, 1, svc.SurfaceOverdue(context.Background()))
}

func TestPipelineSummaryZeroFillsStages(t *testing.T) {
	db := testDB(t)
	svc := newLeadService(t, db, &fakeSender{}, failingNarrator{}, time.Now())
	seedLead(t, db, models.StageNew)

	summary, err := svc.PipelineSummary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary, 7)
	assert.Equal(t, int64(1), summary[models.StageNew])
	assert.Equal(t, int64(0), summary[models.StageLost])
}
