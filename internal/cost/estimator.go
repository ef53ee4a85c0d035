// Package cost estimates the monetary cost of extraction backend calls.
package cost

import "math"

// Rates holds per-backend pricing. LLM pricing is USD per million tokens;
// NER pricing is USD per 100-character unit.
type Rates struct {
	LLMInputPerMTok  float64 `yaml:"llm_input_per_mtok" mapstructure:"llm_input_per_mtok"`
	LLMOutputPerMTok float64 `yaml:"llm_output_per_mtok" mapstructure:"llm_output_per_mtok"`
	NERPerUnit       float64 `yaml:"ner_per_unit" mapstructure:"ner_per_unit"`
}

// DefaultRates returns the default pricing rates (sonnet-class LLM pricing).
func DefaultRates() Rates {
	return Rates{
		LLMInputPerMTok:  3.00,
		LLMOutputPerMTok: 15.00,
		NERPerUnit:       0.0001,
	}
}

// Estimate is a pre-flight cost estimate derived from input text length.
// Used only before a call is issued; never persisted.
type Estimate struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	USD          float64 `json:"usd"`
}

// outputFraction is the assumed ratio of output to input tokens for a guest
// extraction prompt. Responses are short JSON lists.
const outputFraction = 0.3

// Estimator computes deterministic cost estimates from fixed rates. It does
// no I/O.
type Estimator struct {
	rates Rates
}

// NewEstimator creates an Estimator with the given rates.
func NewEstimator(rates Rates) *Estimator {
	return &Estimator{rates: rates}
}

// EstimateLLM maps text length to an approximate token count and a monetary
// estimate. Tokens are approximated as ceil(chars/4); output tokens as a
// fixed fraction of input tokens.
func (e *Estimator) EstimateLLM(text string) Estimate {
	inputTokens := (len(text) + 3) / 4
	outputTokens := int(math.Ceil(float64(inputTokens) * outputFraction))

	usd := (float64(inputTokens)/1e6)*e.rates.LLMInputPerMTok +
		(float64(outputTokens)/1e6)*e.rates.LLMOutputPerMTok

	return Estimate{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		USD:          usd,
	}
}

// ActualLLM computes the cost of a completed LLM call from reported usage.
func (e *Estimator) ActualLLM(inputTokens, outputTokens int64) float64 {
	return (float64(inputTokens)/1e6)*e.rates.LLMInputPerMTok +
		(float64(outputTokens)/1e6)*e.rates.LLMOutputPerMTok
}

// NERUnits returns the number of billable 100-character units for text.
func (e *Estimator) NERUnits(text string) int64 {
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 99) / 100)
}

// NERCost returns the flat request cost for running entity recognition on text.
func (e *Estimator) NERCost(text string) float64 {
	return float64(e.NERUnits(text)) * e.rates.NERPerUnit
}
