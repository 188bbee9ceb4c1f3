package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonflow-backend/models"
)

func TestReminderSweepSelectsTomorrowOnly(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{}
	svc := NewReminderService(db, sender, testSettings())
	svc.now = fixedClock(time.Date(2024, 2, 4, 8, 0, 0, 0, time.UTC))

	client := seedClient(t, db, "Amira Khan", "+15550000001")
	tomorrow := seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	// Today, day after tomorrow, and cancelled tomorrow: all skipped.
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 4, 15, 0, 0, 0, time.UTC), 450)
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 6, 15, 0, 0, 0, time.UTC), 450)
	seedAppointment(t, db, client, models.AppointmentCancelled,
		time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC), 450)

	sent := svc.RunSweep(context.Background())
	assert.Equal(t, 1, sent)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "+15550000001", msgs[0].To)
	assert.Equal(t,
		"Hi Amira! Reminder: you have Tape-In Extensions tomorrow at 3:00 PM. Reply CANCEL to cancel. See you then! - Dana",
		msgs[0].Body)

	var logged models.SmsMessage
	require.NoError(t, db.First(&logged, "appointment_id = ?", tomorrow.ID).Error)
	assert.Equal(t, models.MessageTypeReminder, logged.MessageType)
	assert.Equal(t, models.DirectionOutbound, logged.Direction)
	assert.Equal(t, models.SmsStatusSent, logged.Status)
}

func TestReminderSweepContinuesPastSendFailures(t *testing.T) {
	db := testDB(t)
	sender := &fakeSender{err: fmt.Errorf("gateway down")}
	svc := NewReminderService(db, sender, testSettings())
	svc.now = fixedClock(time.Date(2024, 2, 4, 8, 0, 0, 0, time.UTC))

	client := seedClient(t, db, "Amira Khan", "+15550000001")
	seedAppointment(t, db, client, models.AppointmentScheduled,
		time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC), 450)

	assert.Equal(t, 0, svc.RunSweep(context.Background()))

	// Failed sends are not logged; nothing was delivered.
	var count int64
	db.Model(&models.SmsMessage{}).Count(&count)
	assert.Zero(t, count)
}
