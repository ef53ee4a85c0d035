package backend

import (
	"context"
	"regexp"
	"strings"

	"github.com/podrewind/guest-engine/internal/model"
)

// heuristicConfidence is the fixed confidence assigned to pattern matches.
// A cue phrase plus a capitalized name is suggestive, not authoritative.
const heuristicConfidence = 0.6

// namePattern matches a capitalized two-token name. Each token starts with a
// capital; the optional tail admits surnames like O'Connor and Smith-Jones.
const namePattern = `([A-Z][a-z]*(?:['’-][A-Za-z]+)* [A-Z][a-z]*(?:['’-][A-Za-z]+)*)`

// guestCues are the linguistic templates that introduce a guest. The cue is
// matched case-insensitively; the name is not.
var guestCues = []*regexp.Regexp{
	regexp.MustCompile(`(?:(?i)featuring|feat\.?|ft\.)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)guests?)[:,]?\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)with)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)joined\s+(?:today\s+)?by)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)welcomes?)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)interview\s+with)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)(?:in\s+)?conversation\s+with)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)sits?\s+down\s+with)\s+` + namePattern),
	regexp.MustCompile(`(?:(?i)talks?\s+(?:to|with))\s+` + namePattern),
}

// Heuristic extracts guests by matching cue phrases against the text. It is
// free, local, and cannot fail: zero matches is a valid success.
type Heuristic struct{}

// NewHeuristic creates the heuristic backend.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (b *Heuristic) Method() model.Method { return model.MethodHeuristic }

func (b *Heuristic) Extract(_ context.Context, req model.ExtractionRequest) (Outcome, error) {
	text := req.Text()

	var guests []model.Guest
	for _, cue := range guestCues {
		for _, m := range cue.FindAllStringSubmatch(text, -1) {
			guests = append(guests, model.Guest{
				Name:       m[1],
				Confidence: heuristicConfidence,
				Source:     model.MethodHeuristic,
				Context:    strings.TrimSpace(m[0]),
			})
		}
	}

	return Outcome{Guests: dedupeGuests(guests)}, nil
}
