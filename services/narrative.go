package services

import (
	"context"
	"fmt"
	"strings"
)

// Qualification is the structured result of AI lead scoring. The generator
// must conform to this fixed field set; callers fall back to
// DefaultQualification when it can't.
type Qualification struct {
	Score                    int      `json:"score"` // 0-100
	Tier                     string   `json:"tier"`  // hot/warm/cold/unqualified
	RecommendedExtensionType string   `json:"recommended_extension_type"`
	Concerns                 []string `json:"concerns"`
	RecommendedAction        string   `json:"recommended_action"`
	ConsultationPriority     string   `json:"consultation_priority"` // immediate/this_week/flexible
}

// DefaultQualification is used whenever the generator can't produce a
// conforming result.
func DefaultQualification() Qualification {
	return Qualification{
		Score:                    50,
		Tier:                     "warm",
		RecommendedExtensionType: "tape-in (consultation needed)",
		Concerns:                 []string{"Incomplete lead information"},
		RecommendedAction:        "Schedule consultation to gather more information",
		ConsultationPriority:     "flexible",
	}
}

// ReorderItem is one line of a structured reorder recommendation.
type ReorderItem struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	Reason      string  `json:"reason"`
}

type ReorderAdvice struct {
	Items   []ReorderItem `json:"items"`
	Summary string        `json:"summary"`
}

// LeadContext carries the lead fields the generator needs for qualification,
// quotes and follow-ups.
type LeadContext struct {
	Name             string
	Source           string
	HairLength       string
	HairTexture      string
	DesiredLength    string
	DesiredColor     string
	ExtensionType    string
	BudgetRange      string
	Timeline         string
	Notes            string
	QualificationTier string
	DaysSinceInquiry int
	FollowUpCount    int
}

type LapsedContext struct {
	FullName        string
	LastService     string
	WeeksSinceVisit int
	TotalVisits     int
}

type ReorderContext struct {
	LowStock         []ReorderItem // current stock repurposed: Quantity=stock on hand
	WeeklyUsage      map[string]float64
	UpcomingServices []string
}

type ChatTurn struct {
	Role    string `json:"role"` // user/assistant
	Content string `json:"content"`
}

type ReportContext struct {
	Month             string
	RevenueTotal      float64
	AppointmentsCount int
	NewClientsCount   int
	LapsedRecovered   int
	LeadsConverted    int
	TopServices       []string
}

// Narrator drafts outreach copy. The production implementation wraps an LLM
// API; the template implementation below is used when no API key is set and
// as the deterministic fallback in tests. Streaming methods deliver chunks
// as produced; callers persist the full concatenation only after the stream
// completes.
type Narrator interface {
	DraftFollowUp(ctx context.Context, lead LeadContext) (string, error)
	DraftLapsedOutreach(ctx context.Context, client LapsedContext) (string, error)
	DraftQuote(ctx context.Context, lead LeadContext, emit func(chunk string) error) (string, error)
	QualifyLead(ctx context.Context, lead LeadContext) (Qualification, error)
	RecommendReorder(ctx context.Context, inv ReorderContext) (ReorderAdvice, error)
	ChatReply(ctx context.Context, transcript []ChatTurn) (string, error)
	MonthlySummary(ctx context.Context, report ReportContext, emit func(chunk string) error) (string, error)
}

type Tone string

const (
	ToneCurious  Tone = "curious"
	ToneUrgency  Tone = "urgency"
	ToneGracious Tone = "gracious"
)

// FollowUpTone selects the copy tone for a lead follow-up from the follow-up
// counter. First follow-up is curious, second creates urgency, everything
// after is a gracious final nudge.
func FollowUpTone(followUpCount int) Tone {
	switch {
	case followUpCount == 0:
		return ToneCurious
	case followUpCount == 1:
		return ToneUrgency
	default:
		return ToneGracious
	}
}

// TemplateNarrator produces deterministic copy without an AI backend.
type TemplateNarrator struct {
	StylistName string
	SalonName   string
}

func NewTemplateNarrator(stylist, salon string) *TemplateNarrator {
	return &TemplateNarrator{StylistName: stylist, SalonName: salon}
}

func (n *TemplateNarrator) DraftFollowUp(_ context.Context, lead LeadContext) (string, error) {
	service := lead.ExtensionType
	if service == "" {
		service = "extensions"
	}
	switch FollowUpTone(lead.FollowUpCount) {
	case ToneCurious:
		return fmt.Sprintf("Hi %s! Just checking in on your %s inquiry — happy to answer any questions. Would love to get you in for a free consultation! - %s",
			lead.Name, service, n.StylistName), nil
	case ToneUrgency:
		return fmt.Sprintf("Hi %s! My %s slots are filling up fast this month — want me to hold one for you? - %s",
			lead.Name, service, n.StylistName), nil
	default:
		return fmt.Sprintf("Hi %s! I'll stop bugging you about %s — but the door's always open whenever you're ready. - %s",
			lead.Name, service, n.StylistName), nil
	}
}

func (n *TemplateNarrator) DraftLapsedOutreach(_ context.Context, client LapsedContext) (string, error) {
	return fmt.Sprintf("Hi %s! It's been a while since your %s — I'd love to see you again! Reply BOOK to grab a slot. - %s",
		client.FullName, client.LastService, n.StylistName), nil
}

func (n *TemplateNarrator) DraftQuote(_ context.Context, lead LeadContext, emit func(string) error) (string, error) {
	ext := lead.ExtensionType
	if ext == "" {
		ext = "tape-in extensions"
	}
	chunks := []string{
		fmt.Sprintf("Hi %s! Thanks so much for your interest in %s.\n\n", lead.Name, ext),
		fmt.Sprintf("Based on your hair (%s, %s), I'd recommend %s. ", orDash(lead.HairLength), orDash(lead.HairTexture), ext),
		"Investment typically ranges $300-$1,400 depending on method and density, and includes your consultation, the install, and a full aftercare guide.\n\n",
		fmt.Sprintf("Reply BOOK and I'll set up a complimentary consultation! - %s", n.StylistName),
	}
	var full strings.Builder
	for _, c := range chunks {
		if emit != nil {
			if err := emit(c); err != nil {
				return "", err
			}
		}
		full.WriteString(c)
	}
	return full.String(), nil
}

func (n *TemplateNarrator) QualifyLead(_ context.Context, lead LeadContext) (Qualification, error) {
	// Without an AI backend there is nothing to score; hand back the
	// fallback so the pipeline still advances.
	q := DefaultQualification()
	if lead.ExtensionType != "" {
		q.RecommendedExtensionType = lead.ExtensionType
	}
	return q, nil
}

func (n *TemplateNarrator) RecommendReorder(_ context.Context, inv ReorderContext) (ReorderAdvice, error) {
	advice := ReorderAdvice{Summary: "Restock items at or below their reorder threshold."}
	for _, item := range inv.LowStock {
		advice.Items = append(advice.Items, ReorderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Reason:      "At or below reorder threshold",
		})
	}
	return advice, nil
}

func (n *TemplateNarrator) ChatReply(_ context.Context, _ []ChatTurn) (string, error) {
	return fmt.Sprintf("Hi! I'm %s's assistant for %s. Reply BOOK to schedule, CANCEL to cancel, or HELP for options.",
		n.StylistName, n.SalonName), nil
}

func (n *TemplateNarrator) MonthlySummary(_ context.Context, report ReportContext, emit func(string) error) (string, error) {
	chunks := []string{
		fmt.Sprintf("%s at a glance: $%.2f revenue across %d appointments. ", report.Month, report.RevenueTotal, report.AppointmentsCount),
		fmt.Sprintf("%d new clients joined, %d lapsed clients came back, and %d leads converted.",
			report.NewClientsCount, report.LapsedRecovered, report.LeadsConverted),
	}
	var full strings.Builder
	for _, c := range chunks {
		if emit != nil {
			if err := emit(c); err != nil {
				return "", err
			}
		}
		full.WriteString(c)
	}
	return full.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "not specified"
	}
	return s
}
