package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salonflow-backend/models"
)

// fakeCalendar is a configured in-memory calendar provider.
type fakeCalendar struct {
	events    []CalendarEvent
	created   int
	deleted   []string
	createErr error
}

func (f *fakeCalendar) IsConfigured() bool { return true }

func (f *fakeCalendar) CreateEvent(_ context.Context, appt *models.Appointment, _ *models.Client) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return "evt-" + appt.ID.String(), nil
}

func (f *fakeCalendar) UpdateEvent(context.Context, string, *models.Appointment, *models.Client) error {
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) AvailableSlots(context.Context, time.Time, int) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeCalendar) UpcomingEvents(context.Context, int) ([]CalendarEvent, error) {
	return f.events, nil
}

func newAppointmentService(t *testing.T, db *gorm.DB, sender Sender, cal Calendar) *AppointmentService {
	t.Helper()
	return NewAppointmentService(db, sender, cal, testSettings())
}

func TestCreateAppointmentSyncsCalendar(t *testing.T) {
	db := testDB(t)
	cal := &fakeCalendar{}
	svc := newAppointmentService(t, db, &fakeSender{}, cal)
	client := seedClient(t, db, "Amira Khan", "+15550000001")

	start := time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC)
	appt, err := svc.Create(context.Background(), CreateAppointmentInput{
		ClientID:        client.ID,
		ServiceType:     "Weft Install",
		DurationMinutes: 90,
		Price:           600,
		StartDatetime:   start,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentScheduled, appt.Status)
	assert.Equal(t, start.Add(90*time.Minute), appt.EndDatetime)
	assert.Equal(t, 1, cal.created)

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", appt.ID).Error)
	assert.Equal(t, "evt-"+appt.ID.String(), stored.CalendarEventID)
}

func TestCreateAppointmentSurvivesCalendarFailure(t *testing.T) {
	db := testDB(t)
	cal := &fakeCalendar{createErr: assert.AnError}
	svc := newAppointmentService(t, db, &fakeSender{}, cal)
	client := seedClient(t, db, "Amira Khan", "+15550000001")

	appt, err := svc.Create(context.Background(), CreateAppointmentInput{
		ClientID:        client.ID,
		ServiceType:     "Weft Install",
		DurationMinutes: 90,
		Price:           600,
		StartDatetime:   time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, appt.CalendarEventID)
}

func TestCompleteAppliesClientAggregates(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	start := time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC)
	appt := seedAppointment(t, db, client, models.AppointmentScheduled, start, 450)

	require.NoError(t, svc.Complete(context.Background(), appt.ID))

	var stored models.Client
	require.NoError(t, db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, 1, stored.TotalVisits)
	assert.Equal(t, 450.0, stored.TotalSpent)
	require.NotNil(t, stored.LastVisitDate)
	require.NotNil(t, stored.FirstVisitDate)
	assert.False(t, stored.IsLapsed)

	var seqCount int64
	db.Model(&models.AftercareSequence{}).Where("appointment_id = ?", appt.ID).Count(&seqCount)
	assert.Equal(t, int64(1), seqCount)
}

func TestCompleteIsIdempotent(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	appt := seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC), 450)

	require.NoError(t, svc.Complete(context.Background(), appt.ID))
	require.NoError(t, svc.Complete(context.Background(), appt.ID))

	var stored models.Client
	require.NoError(t, db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, 1, stored.TotalVisits)
	assert.Equal(t, 450.0, stored.TotalSpent)

	var seqCount int64
	db.Model(&models.AftercareSequence{}).Where("appointment_id = ?", appt.ID).Count(&seqCount)
	assert.Equal(t, int64(1), seqCount)
}

func TestCompleteRejectsCancelledAndNoShow(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	cancelled := seedAppointment(t, db, client, models.AppointmentCancelled,
		time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC), 450)
	noShow := seedAppointment(t, db, client, models.AppointmentNoShow,
		time.Date(2024, 2, 2, 14, 0, 0, 0, time.UTC), 450)

	assert.ErrorIs(t, svc.Complete(context.Background(), cancelled.ID), ErrInvalidState)
	assert.ErrorIs(t, svc.Complete(context.Background(), noShow.ID), ErrInvalidState)
	assert.ErrorIs(t, svc.Complete(context.Background(), uuid.New()), ErrNotFound)
}

func TestCancelOffersSlotToOldestWaitlistEntry(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{}
	svc := newAppointmentService(t, db, sender, NoopCalendar{})

	client := seedClient(t, db, "Amira Khan", "+15550000001")
	appt := seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	first := seedClient(t, db, "Beth Ortiz", "+15550000002")
	second := seedClient(t, db, "Cara Diaz", "+15550000003")
	e1 := models.WaitlistEntry{ClientID: first.ID, DesiredService: "Weft Install",
		Status: models.WaitlistWaiting, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	e2 := models.WaitlistEntry{ClientID: second.ID, DesiredService: "Tape-In",
		Status: models.WaitlistWaiting, CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.Create(&e1).Error)
	require.NoError(t, db.Create(&e2).Error)

	require.NoError(t, svc.Cancel(context.Background(), appt.ID, "client request"))

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", appt.ID).Error)
	assert.Equal(t, models.AppointmentCancelled, stored.Status)
	assert.Equal(t, "client request", stored.CancellationReason)

	// Only the oldest entry gets the offer.
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "+15550000002", msgs[0].To)
	assert.Equal(t, "Hi Beth! A slot just opened up: Monday, February 5 at 3:00 PM. Reply BOOK to claim it! - Dana", msgs[0].Body)

	var w1, w2 models.WaitlistEntry
	require.NoError(t, db.First(&w1, "id = ?", e1.ID).Error)
	require.NoError(t, db.First(&w2, "id = ?", e2.ID).Error)
	assert.Equal(t, models.WaitlistOffered, w1.Status)
	assert.NotNil(t, w1.NotifiedAt)
	assert.Equal(t, models.WaitlistWaiting, w2.Status)

	var offerCount int64
	db.Model(&models.SmsMessage{}).Where("message_type = ?", models.MessageTypeWaitlistOffer).Count(&offerCount)
	assert.Equal(t, int64(1), offerCount)
}

func TestCancelWithEmptyWaitlistIsQuiet(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{}
	svc := newAppointmentService(t, db, sender, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	appt := seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	require.NoError(t, svc.Cancel(context.Background(), appt.ID, ""))
	assert.Empty(t, sender.messages())
}

func TestCancelRejectsCompleted(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	appt := seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	assert.ErrorIs(t, svc.Cancel(context.Background(), appt.ID, ""), ErrInvalidState)
}

func TestMarkNoShowOnlyFromScheduled(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	scheduled := seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)
	completed := seedAppointment(t, db, client, models.AppointmentCompleted,
		time.Date(2024, 2, 6, 15, 0, 0, 0, time.UTC), 450)

	require.NoError(t, svc.MarkNoShow(context.Background(), scheduled.ID))
	assert.ErrorIs(t, svc.MarkNoShow(context.Background(), completed.ID), ErrInvalidState)
	assert.ErrorIs(t, svc.MarkNoShow(context.Background(), uuid.New()), ErrNotFound)
}

func TestSyncCalendarFlagsDriftedAppointments(t *testing.T) {
	db := testDB(t)
	client := seedClient(t, db, "Amira Khan", "+15550000001")

	start := time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC)
	drifted := seedAppointment(t, db, client, models.AppointmentScheduled, start, 450)
	require.NoError(t, db.Model(drifted).Update("calendar_event_id", "evt-drifted").Error)

	aligned := seedAppointment(t, db, client, models.AppointmentScheduled, start.Add(24*time.Hour), 450)
	require.NoError(t, db.Model(aligned).Update("calendar_event_id", "evt-aligned").Error)

	cal := &fakeCalendar{events: []CalendarEvent{
		{ID: "evt-drifted", Start: start.Add(30 * time.Minute)},
		{ID: "evt-aligned", Start: aligned.StartDatetime.Add(2 * time.Minute)},
		{ID: "evt-unknown", Start: start},
	}}
	svc := newAppointmentService(t, db, &fakeSender{}, cal)

	result, err := svc.SyncCalendar(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	require.Len(t, result.NeedsReview, 1)
	assert.Equal(t, drifted.ID, result.NeedsReview[0])

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", drifted.ID).Error)
	assert.Equal(t, models.AppointmentNeedsReview, stored.Status)
}

func TestResolveReview(t *testing.T) {
	db := testDB(t)
	svc := newAppointmentService(t, db, &fakeSender{}, NoopCalendar{})
	client := seedClient(t, db, "Amira Khan", "+15550000001")
	appt := seedAppointment(t, db, client, models.AppointmentNeedsReview,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	require.NoError(t, svc.ResolveReview(context.Background(), appt.ID))

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", appt.ID).Error)
	assert.Equal(t, models.AppointmentScheduled, stored.Status)

	assert.ErrorIs(t, svc.ResolveReview(context.Background(), appt.ID), ErrInvalidState)
	assert.ErrorIs(t, svc.ResolveReview(context.Background(), uuid.New()), ErrNotFound)
}
