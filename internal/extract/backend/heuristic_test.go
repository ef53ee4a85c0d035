package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podrewind/guest-engine/internal/model"
)

func TestHeuristic_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       model.ExtractionRequest
		wantNames []string
	}{
		{
			name:      "featuring cue",
			req:       model.ExtractionRequest{Title: "Today, featuring John Smith, we discuss..."},
			wantNames: []string{"John Smith"},
		},
		{
			name:      "guest with colon",
			req:       model.ExtractionRequest{Description: "Guest: Jane Doe talks about her new book."},
			wantNames: []string{"Jane Doe"},
		},
		{
			name:      "joined today by",
			req:       model.ExtractionRequest{Description: "We're joined today by Maria Garcia."},
			wantNames: []string{"Maria Garcia"},
		},
		{
			name:      "interview cue",
			req:       model.ExtractionRequest{Title: "An interview with Alan Turing"},
			wantNames: []string{"Alan Turing"},
		},
		{
			name:      "apostrophe in surname",
			req:       model.ExtractionRequest{Description: "This week we welcome Sinead O'Connor to the show."},
			wantNames: []string{"Sinead O'Connor"},
		},
		{
			name: "multiple cues, multiple guests",
			req: model.ExtractionRequest{
				Title:       "Ep 42: conversation with Ada Lovelace",
				Description: "Later, featuring Grace Hopper.",
			},
			wantNames: []string{"Grace Hopper", "Ada Lovelace"},
		},
		{
			name:      "same guest matched by two cues dedupes",
			req:       model.ExtractionRequest{Description: "Featuring John Smith. An interview with John Smith."},
			wantNames: []string{"John Smith"},
		},
		{
			name:      "no cue phrase means no guests",
			req:       model.ExtractionRequest{Description: "John Smith builds compilers for a living."},
			wantNames: []string{},
		},
		{
			name:      "lowercase name is not a match",
			req:       model.ExtractionRequest{Description: "featuring john smith"},
			wantNames: []string{},
		},
		{
			name:      "empty text",
			req:       model.ExtractionRequest{},
			wantNames: []string{},
		},
	}

	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outcome, err := h.Extract(context.Background(), tt.req)
			require.NoError(t, err)

			names := make([]string, 0, len(outcome.Guests))
			for _, g := range outcome.Guests {
				names = append(names, g.Name)
			}
			assert.ElementsMatch(t, tt.wantNames, names)
		})
	}
}

func TestHeuristic_GuestMetadata(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	outcome, err := h.Extract(context.Background(), model.ExtractionRequest{
		Title: "Today, featuring John Smith, we discuss compilers",
	})
	require.NoError(t, err)
	require.Len(t, outcome.Guests, 1)

	g := outcome.Guests[0]
	assert.Equal(t, "John Smith", g.Name)
	assert.Equal(t, heuristicConfidence, g.Confidence)
	assert.Equal(t, model.MethodHeuristic, g.Source)
	assert.Contains(t, g.Context, "John Smith")

	// Free and local: no cost, no billable units.
	assert.Zero(t, outcome.CostUSD)
	assert.Zero(t, outcome.Units)
}

func TestDedupeGuests(t *testing.T) {
	t.Parallel()

	in := []model.Guest{
		{Name: "John Smith"},
		{Name: "john smith"},
		{Name: " John Smith "},
		{Name: "Jane Doe"},
		{Name: ""},
		{Name: "   "},
	}
	out := dedupeGuests(in)

	require.Len(t, out, 2)
	assert.Equal(t, "John Smith", out[0].Name)
	assert.Equal(t, "Jane Doe", out[1].Name)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "hello", truncate("hello", 0))

	// Never split a multi-byte rune.
	s := "héllo" // é is two bytes, starting at index 1
	assert.Equal(t, "h", truncate(s, 2))
	assert.Equal(t, "hé", truncate(s, 3))
}
