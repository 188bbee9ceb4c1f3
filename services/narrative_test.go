package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpTone(t *testing.T) {
	assert.Equal(t, ToneCurious, FollowUpTone(0))
	assert.Equal(t, ToneUrgency, FollowUpTone(1))
	assert.Equal(t, ToneGracious, FollowUpTone(2))
	assert.Equal(t, ToneGracious, FollowUpTone(7))
}

func TestTemplateFollowUpVariesWithCount(t *testing.T) {
	n := NewTemplateNarrator("Dana", "Luxe Lengths")
	lead := LeadContext{Name: "Dalia", ExtensionType: "tape-in"}

	first, err := n.DraftFollowUp(context.Background(), lead)
	require.NoError(t, err)
	assert.Contains(t, first, "Just checking in")

	lead.FollowUpCount = 1
	second, err := n.DraftFollowUp(context.Background(), lead)
	require.NoError(t, err)
	assert.Contains(t, second, "filling up fast")

	lead.FollowUpCount = 4
	final, err := n.DraftFollowUp(context.Background(), lead)
	require.NoError(t, err)
	assert.Contains(t, final, "door's always open")

	// Missing extension type falls back to a generic service name.
	generic, err := n.DraftFollowUp(context.Background(), LeadContext{Name: "Dalia"})
	require.NoError(t, err)
	assert.Contains(t, generic, "extensions")
}

func TestTemplateQuoteStreamsAllChunks(t *testing.T) {
	n := NewTemplateNarrator("Dana", "Luxe Lengths")

	var chunks []string
	full, err := n.DraftQuote(context.Background(), LeadContext{Name: "Dalia", ExtensionType: "weft"},
		func(chunk string) error {
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
	assert.Contains(t, full, "Dalia")
	assert.Contains(t, full, "Dana")
}

func TestTemplateQualifyUsesLeadPreference(t *testing.T) {
	n := NewTemplateNarrator("Dana", "Luxe Lengths")

	q, err := n.QualifyLead(context.Background(), LeadContext{ExtensionType: "keratin"})
	require.NoError(t, err)
	assert.Equal(t, "keratin", q.RecommendedExtensionType)
	assert.Equal(t, 50, q.Score)

	q, err = n.QualifyLead(context.Background(), LeadContext{})
	require.NoError(t, err)
	assert.Equal(t, DefaultQualification().RecommendedExtensionType, q.RecommendedExtensionType)
}

func TestTemplateReorderMirrorsLowStock(t *testing.T) {
	n := NewTemplateNarrator("Dana", "Luxe Lengths")

	advice, err := n.RecommendReorder(context.Background(), ReorderContext{
		LowStock: []ReorderItem{{ProductName: "Tape-In Packs", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, advice.Items, 1)
	assert.Equal(t, "Tape-In Packs", advice.Items[0].ProductName)
	assert.NotEmpty(t, advice.Summary)
}
