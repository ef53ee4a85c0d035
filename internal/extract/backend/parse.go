package backend

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/podrewind/guest-engine/internal/model"
)

type guestPayload struct {
	Guests []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
		Context    string  `json:"context"`
	} `json:"guests"`
}

// ParseGuestResponse decodes the model's raw text into a guest list. Models
// sometimes wrap the JSON in prose or code fences, so the parse starts at the
// first brace and ends at the last. The caller decides what a parse error
// means; here it carries no guests.
func ParseGuestResponse(raw string) ([]model.Guest, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, eris.New("no JSON object in response")
	}

	var payload guestPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, eris.Wrap(err, "decode guest payload")
	}

	guests := make([]model.Guest, 0, len(payload.Guests))
	for _, g := range payload.Guests {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		conf := g.Confidence
		if conf <= 0 {
			conf = 0.9
		}
		if conf > 1 {
			conf = 1
		}
		guests = append(guests, model.Guest{
			Name:       name,
			Confidence: conf,
			Context:    strings.TrimSpace(g.Context),
		})
	}
	return guests, nil
}
