package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salonflow-backend/models"
)

func newReportService(t *testing.T, db *gorm.DB, narrator Narrator, clock time.Time) *ReportService {
	t.Helper()
	svc := NewReportService(db, narrator, testSettings())
	svc.now = fixedClock(clock)
	return svc
}

func TestGenerateRollsUpCompletedAppointments(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := newReportService(t, db, failingNarrator{}, clock)

	client := seedClient(t, db, "Amira Khan", "+15550000001")

	// Two completed in March, one scheduled in March, one completed in April.
	inMonth1 := seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), 450)
	require.NoError(t, db.Model(inMonth1).Update("service_type", "Weft Install").Error)
	seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 3, 20, 14, 0, 0, 0, time.UTC), 300)
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 3, 25, 14, 0, 0, 0, time.UTC), 999)
	seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 4, 1, 14, 0, 0, 0, time.UTC), 999)

	require.NoError(t, db.Model(client).
		Update("created_at", time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)).Error)

	booked := &models.ExtensionLead{Name: "Dalia Reyes", Phone: "+15550000010",
		PipelineStage: models.StageBooked}
	require.NoError(t, db.Create(booked).Error)

	report, err := svc.Generate(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", report.ReportMonth)

	var stored models.Report
	require.NoError(t, db.First(&stored, "report_month = ?", "2024-03").Error)
	assert.Equal(t, 750.0, stored.RevenueTotal)
	assert.Equal(t, 2, stored.AppointmentsCount)
	assert.Equal(t, 1, stored.NewClientsCount)

	var top []topService
	require.NoError(t, json.Unmarshal(stored.TopServices, &top))
	assert.Len(t, top, 2)

	var charts map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.ChartsData, &charts))
	assert.Contains(t, charts, "daily_revenue")
}

func TestGenerateIsIdempotentUpsertAndKeepsSummary(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := newReportService(t, db, failingNarrator{}, clock)

	_, err := svc.Generate(context.Background(), "2024-03")
	require.NoError(t, err)

	// Simulate a previously generated narrative.
	var report models.Report
	require.NoError(t, db.First(&report, "report_month = ?", "2024-03").Error)
	require.NoError(t, db.Model(&report).Update("ai_summary_text", "March was strong.").Error)

	_, err = svc.Generate(context.Background(), "2024-03")
	require.NoError(t, err)

	var count int64
	db.Model(&models.Report{}).Where("report_month = ?", "2024-03").Count(&count)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.First(&report, "report_month = ?", "2024-03").Error)
	assert.Equal(t, "March was strong.", report.AISummaryText)
}

func TestGenerateRejectsMalformedMonth(t *testing.T) {
	db := testDB(t)
	svc := newReportService(t, db, failingNarrator{}, time.Now())

	var vErr *ValidationError
	for _, month := range []string{"2024-13", "2024-0", "March 2024", "2024-3"} {
		_, err := svc.Generate(context.Background(), month)
		assert.True(t, errors.As(err, &vErr), "month %q should be rejected", month)
	}
}

func TestSummarizeStreamsAndPersistsAfterCompletion(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := newReportService(t, db, NewTemplateNarrator("Dana", "Luxe Lengths"), clock)

	_, err := svc.Generate(context.Background(), "2024-03")
	require.NoError(t, err)

	var chunks []string
	full, err := svc.Summarize(context.Background(), "2024-03", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	joined := ""
	for _, c := range chunks {
		joined += c
	}
	assert.Equal(t, full, joined)

	var stored models.Report
	require.NoError(t, db.First(&stored, "report_month = ?", "2024-03").Error)
	assert.Equal(t, full, stored.AISummaryText)
	require.NotNil(t, stored.AIGeneratedAt)
}

func TestSummarizeFailurePersistsNothing(t *testing.T) {
	db := testDB(t)
	svc := newReportService(t, db, failingNarrator{}, time.Now())

	_, err := svc.Generate(context.Background(), "2024-03")
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), "2024-03", nil)
	require.ErrorIs(t, err, ErrExternalService)

	var stored models.Report
	require.NoError(t, db.First(&stored, "report_month = ?", "2024-03").Error)
	assert.Empty(t, stored.AISummaryText)
	assert.Nil(t, stored.AIGeneratedAt)

	_, err = svc.Summarize(context.Background(), "2030-01", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardStats(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := newReportService(t, db, failingNarrator{}, clock)

	client := seedClient(t, db, "Amira Khan", "+15550000001")
	require.NoError(t, db.Model(client).Update("is_lapsed", true).Error)
	seedClient(t, db, "Beth Ortiz", "+15550000002")

	seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), 450)
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 3, 18, 14, 0, 0, 0, time.UTC), 300) // within 7 days
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 3, 30, 14, 0, 0, 0, time.UTC), 300) // beyond 7 days

	active := &models.ExtensionLead{Name: "A", Phone: "+15550000021", PipelineStage: models.StageQuoted}
	lost := &models.ExtensionLead{Name: "B", Phone: "+15550000022", PipelineStage: models.StageLost}
	require.NoError(t, db.Create(active).Error)
	require.NoError(t, db.Create(lost).Error)

	stats, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 450.0, stats.RevenueThisMonth)
	assert.Equal(t, int64(1), stats.AppointmentsThisMonth)
	assert.Equal(t, int64(2), stats.TotalClients)
	assert.Equal(t, int64(1), stats.LapsedClients)
	assert.Equal(t, int64(1), stats.ActiveLeads)
	assert.Equal(t, int64(1), stats.Upcoming7Days)
}
