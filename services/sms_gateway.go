package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"salonflow-backend/config"
)

// Sender is the outbound SMS transport. Sweeps and handlers receive it as an
// injected collaborator so tests can swap in a fake.
type Sender interface {
	// Send delivers one message and returns the provider message SID.
	// An empty SID with a nil error means the gateway is unconfigured and
	// the message was only logged (record-keeping mode).
	Send(to, body string) (string, error)

	IsConfigured() bool

	// ValidateSignature checks an inbound webhook request signature.
	ValidateSignature(url string, params map[string]string, signature string) bool
}

type TwilioGateway struct {
	client     *twilio.RestClient
	validator  twilioClient.RequestValidator
	from       string
	configured bool
	log        zerolog.Logger
}

func NewTwilioGateway(settings *config.Settings) *TwilioGateway {
	configured := settings.TwilioAccountSID != "" &&
		settings.TwilioAuthToken != "" &&
		settings.TwilioFromNumber != ""

	return &TwilioGateway{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: settings.TwilioAccountSID,
			Password: settings.TwilioAuthToken,
		}),
		validator:  twilioClient.NewRequestValidator(settings.TwilioAuthToken),
		from:       settings.TwilioFromNumber,
		configured: configured,
		log:        log.With().Str("component", "sms").Logger(),
	}
}

func (g *TwilioGateway) IsConfigured() bool {
	return g.configured
}

func (g *TwilioGateway) Send(to, body string) (string, error) {
	if !g.configured {
		// Record-keeping mode: no credentials, log instead of sending.
		g.log.Info().Str("to", to).Str("body", body).Msg("SMS mock send")
		return "", nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetBody(body)

	resp, err := g.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("%w: twilio send to %s: %v", ErrExternalService, to, err)
	}
	if resp.Sid == nil {
		g.log.Warn().Str("to", to).Msg("Message accepted but no SID returned")
		return "", nil
	}
	return *resp.Sid, nil
}

func (g *TwilioGateway) ValidateSignature(url string, params map[string]string, signature string) bool {
	if !g.configured {
		// Dev mode: accept unsigned webhooks.
		return true
	}
	return g.validator.Validate(url, params, signature)
}
