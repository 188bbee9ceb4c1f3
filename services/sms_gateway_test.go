package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonflow-backend/config"
)

func TestUnconfiguredGatewayRunsInRecordKeepingMode(t *testing.T) {
	gateway := NewTwilioGateway(&config.Settings{Timezone: time.UTC})
	require.False(t, gateway.IsConfigured())

	// No credentials: the send is logged, not delivered, and not an error.
	sid, err := gateway.Send("+15550000001", "Hi!")
	require.NoError(t, err)
	assert.Empty(t, sid)

	// Dev mode accepts unsigned webhooks.
	assert.True(t, gateway.ValidateSignature("http://localhost/api/sms/webhook", nil, ""))
}

func TestGatewayConfiguredWithFullCredentials(t *testing.T) {
	gateway := NewTwilioGateway(&config.Settings{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		TwilioFromNumber: "+15550009999",
		Timezone:         time.UTC,
	})
	assert.True(t, gateway.IsConfigured())

	partial := NewTwilioGateway(&config.Settings{
		TwilioAccountSID: "AC123",
		Timezone:         time.UTC,
	})
	assert.False(t, partial.IsConfigured())
}
