package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"salonflow-backend/config"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// AnthropicNarrator implements Narrator against the Anthropic Messages API.
// Structured outputs (qualification, reorder advice) use a forced tool call
// so the model must conform to the schema; free-text drafts read the text
// blocks directly.
type AnthropicNarrator struct {
	apiKey      string
	model       string
	stylistName string
	salonName   string
	bookingLink string
	httpClient  *http.Client
	log         zerolog.Logger
}

func NewAnthropicNarrator(settings *config.Settings) *AnthropicNarrator {
	return &AnthropicNarrator{
		apiKey:      settings.AnthropicAPIKey,
		model:       settings.AnthropicModel,
		stylistName: settings.StylistName,
		salonName:   settings.SalonName,
		bookingLink: settings.BookingLink,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		log:         log.With().Str("component", "narrator").Logger(),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model      string             `json:"model"`
	MaxTokens  int                `json:"max_tokens"`
	System     string             `json:"system,omitempty"`
	Messages   []anthropicMessage `json:"messages"`
	Tools      []anthropicTool    `json:"tools,omitempty"`
	ToolChoice map[string]string  `json:"tool_choice,omitempty"`
	Stream     bool               `json:"stream,omitempty"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (n *AnthropicNarrator) call(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", n.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExternalService, err)
	}
	if resp.StatusCode >= 400 {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrExternalService, msg)
	}
	return &parsed, nil
}

// callStream runs a streaming request, forwarding each text delta to emit
// and returning the full concatenated text.
func (n *AnthropicNarrator) callStream(ctx context.Context, req anthropicRequest, emit func(chunk string) error) (string, error) {
	req.Stream = true
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", n.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: %s: %s", ErrExternalService, resp.Status, strings.TrimSpace(string(body)))
	}

	type streamEvent struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		if ev.Type == "content_block_delta" && ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
			if emit != nil {
				if err := emit(ev.Delta.Text); err != nil {
					return "", err
				}
			}
			full.WriteString(ev.Delta.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return full.String(), nil
}

func (n *AnthropicNarrator) firstText(resp *anthropicResponse) (string, error) {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("%w: response contained no text", ErrExternalService)
}

func leadProfile(lead LeadContext, salon, stylist string) string {
	return fmt.Sprintf(`EXTENSION LEAD PROFILE:
Name: %s
Source: %s

HAIR PROFILE:
- Current hair length: %s
- Hair texture: %s
- Desired length after extensions: %s
- Desired color: %s
- Preferred extension type: %s

BUDGET & TIMELINE:
- Budget range: %s
- Timeline (when they want it done): %s

NOTES: %s

CONTEXT: This lead is inquiring about hair extension services at %s.
%s specializes in tape-in, hand-tied weft, and keratin bond extensions.
Premium hair extension services typically range from $300-$1,400 depending on method and density.
Assess this lead's fit, readiness, and recommended next steps.`,
		orDash(lead.Name), orDash(lead.Source),
		orDash(lead.HairLength), orDash(lead.HairTexture),
		orDash(lead.DesiredLength), orDash(lead.DesiredColor),
		orDash(lead.ExtensionType),
		orDash(lead.BudgetRange), orDash(lead.Timeline),
		orDash(lead.Notes), salon, stylist)
}

func (n *AnthropicNarrator) QualifyLead(ctx context.Context, lead LeadContext) (Qualification, error) {
	tool := anthropicTool{
		Name:        "qualify_lead",
		Description: "Return a structured qualification assessment for this extension lead.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"score": map[string]interface{}{
					"type":        "integer",
					"description": "Lead score from 0 (completely unqualified) to 100 (perfect fit, ready to book)",
				},
				"tier": map[string]interface{}{
					"type": "string",
					"enum": []string{"hot", "warm", "cold", "unqualified"},
				},
				"recommended_extension_type": map[string]interface{}{
					"type":        "string",
					"description": "Best extension type for this client's hair and goals",
				},
				"concerns": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"recommended_action": map[string]interface{}{
					"type":        "string",
					"description": "Specific next action the stylist should take with this lead",
				},
				"consultation_priority": map[string]interface{}{
					"type": "string",
					"enum": []string{"immediate", "this_week", "flexible"},
				},
			},
			"required": []string{"score", "tier", "recommended_extension_type", "concerns", "recommended_action", "consultation_priority"},
		},
	}

	resp, err := n.call(ctx, anthropicRequest{
		Model:      n.model,
		MaxTokens:  1024,
		Tools:      []anthropicTool{tool},
		ToolChoice: map[string]string{"type": "tool", "name": "qualify_lead"},
		Messages:   []anthropicMessage{{Role: "user", Content: leadProfile(lead, n.salonName, n.stylistName)}},
	})
	if err != nil {
		return Qualification{}, err
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == "qualify_lead" {
			var q Qualification
			if err := json.Unmarshal(block.Input, &q); err != nil {
				return Qualification{}, fmt.Errorf("%w: malformed qualification: %v", ErrExternalService, err)
			}
			return q, nil
		}
	}
	return DefaultQualification(), nil
}

func (n *AnthropicNarrator) DraftQuote(ctx context.Context, lead LeadContext, emit func(chunk string) error) (string, error) {
	system := fmt.Sprintf(`You are %s of %s, writing a personalized quote message for a potential extension client.

Write in first person as %s. Be warm, professional, and specific to their hair goals.
Include:
1. A warm opening that references their specific hair situation
2. The recommended extension type and why it's right for them
3. An investment range for their service
4. What's included (consultation, install, aftercare guide)
5. A soft call-to-action to book a complimentary consultation

Keep it under 200 words. Sound like a real person, not a template. Avoid generic filler phrases.`,
		n.stylistName, n.salonName, n.stylistName)

	prompt := fmt.Sprintf("Write a quote message for this client:\n%s\n\nTheir qualification: %s lead.",
		leadProfile(lead, n.salonName, n.stylistName), orDash(lead.QualificationTier))

	return n.callStream(ctx, anthropicRequest{
		Model:     n.model,
		MaxTokens: 512,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}, emit)
}

func (n *AnthropicNarrator) DraftFollowUp(ctx context.Context, lead LeadContext) (string, error) {
	var toneInstruction string
	switch FollowUpTone(lead.FollowUpCount) {
	case ToneCurious:
		toneInstruction = "This is the first follow-up. Be warm and curious, not pushy."
	case ToneUrgency:
		toneInstruction = "This is the second follow-up. Create gentle urgency - mention limited availability."
	default:
		toneInstruction = "This is a final follow-up. Be gracious, leave the door open for the future."
	}

	service := lead.ExtensionType
	if service == "" {
		service = "extensions"
	}
	resp, err := n.call(ctx, anthropicRequest{
		Model:     n.model,
		MaxTokens: 200,
		System: fmt.Sprintf(`You are %s sending a follow-up text to a potential extension client.
Write a SHORT, personal SMS (under 160 characters ideally, max 320 characters).
%s
Sign off as %s. Sound human, not automated.`, n.stylistName, toneInstruction, n.stylistName),
		Messages: []anthropicMessage{{Role: "user", Content: fmt.Sprintf(
			"Draft a follow-up for:\nName: %s\nDays since initial inquiry: %d\nThey were interested in: %s\nFollow-up number: %d",
			lead.Name, lead.DaysSinceInquiry, service, lead.FollowUpCount+1)}},
	})
	if err != nil {
		return "", err
	}
	return n.firstText(resp)
}

func (n *AnthropicNarrator) DraftLapsedOutreach(ctx context.Context, client LapsedContext) (string, error) {
	resp, err := n.call(ctx, anthropicRequest{
		Model:     n.model,
		MaxTokens: 200,
		System: fmt.Sprintf(`You are %s texting a client you haven't seen in a while.
Write a warm, personal SMS under 160 characters.
Reference their last service naturally. Sound like you genuinely miss seeing them.
Don't use generic "we miss you" phrasing. Be specific and personal.
Sign as %s.`, n.stylistName, n.stylistName),
		Messages: []anthropicMessage{{Role: "user", Content: fmt.Sprintf(
			"Draft a re-engagement message:\nClient: %s\nLast service: %s\nWeeks since last visit: %d\nTotal visits: %d",
			client.FullName, client.LastService, client.WeeksSinceVisit, client.TotalVisits)}},
	})
	if err != nil {
		return "", err
	}
	return n.firstText(resp)
}

func (n *AnthropicNarrator) ChatReply(ctx context.Context, transcript []ChatTurn) (string, error) {
	booking := n.bookingLink
	if booking == "" {
		booking = "Contact us to book"
	}
	system := fmt.Sprintf(`You are %s's friendly virtual assistant for %s.
You help clients get answers 24/7 - even when %s is with another client or off the clock.

Your personality: warm, knowledgeable, professional. You sound like a real person, not a bot.

KEY INFORMATION:
- Salon: %s
- Stylist: %s
- Booking: %s

SERVICES & PRICING (approximate - confirm with stylist for exact quotes):
- Tape-In Extensions (partial set): $300-$500
- Tape-In Extensions (full head): $500-$900
- Hand-Tied Weft Extensions: $800-$1,400
- Keratin Bond Extensions: $700-$1,200
- Extension Removal: $75-$150
- Extension Reuse/Re-tape: $150-$250
- Haircut (clients only): $65-$95
- Color (balayage/highlights): $200-$400

EXTENSION CARE BASICS:
- Wash 2-3x per week with sulfate-free shampoo
- Brush gently from ends up, morning and night
- Use a silk pillowcase or loosely braid before sleep
- Avoid heat directly at bonds/tapes
- Come in every 6-8 weeks for maintenance

If you don't know something specific, say: "Great question - I'll make sure %s follows up with you personally. Can I get your name and best contact number?"

Keep responses concise. For SMS, aim for under 160 characters when possible.
Never make up prices. Always encourage booking a free consultation for custom quotes.`,
		n.stylistName, n.salonName, n.stylistName, n.salonName, n.stylistName, booking, n.stylistName)

	messages := make([]anthropicMessage, 0, len(transcript))
	for _, turn := range transcript {
		messages = append(messages, anthropicMessage{Role: turn.Role, Content: turn.Content})
	}

	resp, err := n.call(ctx, anthropicRequest{
		Model:     n.model,
		MaxTokens: 512,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}
	return n.firstText(resp)
}

func (n *AnthropicNarrator) RecommendReorder(ctx context.Context, inv ReorderContext) (ReorderAdvice, error) {
	tool := anthropicTool{
		Name:        "recommend_reorder",
		Description: "Return structured reorder recommendations for low-stock salon inventory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"items": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"product_name": map[string]interface{}{"type": "string"},
							"quantity":     map[string]interface{}{"type": "number"},
							"reason":       map[string]interface{}{"type": "string"},
						},
						"required": []string{"product_name", "quantity", "reason"},
					},
				},
				"summary": map[string]interface{}{"type": "string"},
			},
			"required": []string{"items", "summary"},
		},
	}

	contextJSON, err := json.Marshal(map[string]interface{}{
		"low_stock_items":   inv.LowStock,
		"weekly_usage":      inv.WeeklyUsage,
		"upcoming_services": inv.UpcomingServices,
	})
	if err != nil {
		return ReorderAdvice{}, err
	}

	resp, err := n.call(ctx, anthropicRequest{
		Model:      n.model,
		MaxTokens:  2048,
		Tools:      []anthropicTool{tool},
		ToolChoice: map[string]string{"type": "tool", "name": "recommend_reorder"},
		Messages: []anthropicMessage{{Role: "user", Content: fmt.Sprintf(
			"Recommend what to reorder for %s given this inventory snapshot. Consider current stock, weekly usage rates and upcoming booked services:\n%s",
			n.salonName, contextJSON)}},
	})
	if err != nil {
		return ReorderAdvice{}, err
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == "recommend_reorder" {
			var advice ReorderAdvice
			if err := json.Unmarshal(block.Input, &advice); err != nil {
				return ReorderAdvice{}, fmt.Errorf("%w: malformed reorder advice: %v", ErrExternalService, err)
			}
			return advice, nil
		}
	}
	return ReorderAdvice{}, fmt.Errorf("%w: response contained no recommendation", ErrExternalService)
}

func (n *AnthropicNarrator) MonthlySummary(ctx context.Context, report ReportContext, emit func(chunk string) error) (string, error) {
	system := fmt.Sprintf(`You are a business analyst writing a monthly performance summary for %s, a hair extension salon run by %s.
Write a clear, encouraging narrative for the salon owner. Highlight what went well, call out anything concerning, and suggest one or two concrete actions for next month.
Use plain language, no jargon. Keep it under 300 words.`, n.salonName, n.stylistName)

	data, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return n.callStream(ctx, anthropicRequest{
		Model:     n.model,
		MaxTokens: 2048,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: fmt.Sprintf("Write the monthly summary for this data:\n%s", data)}},
	}, emit)
}
