package tools

import (
	"fmt"
	"strings"
)

// Transcription is the payload of a successful transcribe_audio call.
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// DocumentAnswer is the payload of a successful query_document call.
type DocumentAnswer struct {
	Answer          string  `json:"answer"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Classification is the payload of a successful classify_ticket call.
type Classification struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// Payload is implemented by the three success payloads.
type Payload interface {
	// Observation is the text fed back to the LLM.
	Observation() string
	// KeyValue is the datum a final answer must mention to be grounded.
	KeyValue() string
	// Fields flattens the payload for storage metadata and JSON responses.
	Fields() map[string]any
}

func (t Transcription) Observation() string {
	return fmt.Sprintf("Transcription: %s (Language: %s)", t.Text, t.Language)
}

func (t Transcription) KeyValue() string { return t.Text }

func (t Transcription) Fields() map[string]any {
	return map[string]any{"text": t.Text, "language": t.Language}
}

func (d DocumentAnswer) Observation() string {
	return fmt.Sprintf("Answer: %s (Confidence: %s)", d.Answer, Percent(d.ConfidenceScore))
}

func (d DocumentAnswer) KeyValue() string { return d.Answer }

func (d DocumentAnswer) Fields() map[string]any {
	return map[string]any{"answer": d.Answer, "confidence_score": d.ConfidenceScore}
}

func (c Classification) Observation() string {
	return fmt.Sprintf("Category: %s (Probability: %s)", c.Category, Percent(c.Probability))
}

func (c Classification) KeyValue() string { return c.Category }

func (c Classification) Fields() map[string]any {
	return map[string]any{"category": c.Category, "probability": c.Probability}
}

// Percent formats a [0,1] score as a percentage with two decimals (0.92 -> "92.00%").
func Percent(score float64) string {
	return fmt.Sprintf("%.2f%%", score*100)
}

// Result is the uniform outcome of a tool invocation. Exactly one of
// Payload and Reason is set; use Success and Failure to build one.
type Result struct {
	Payload Payload
	Reason  string
	Kind    Kind
}

// Success builds a successful result.
func Success(kind Kind, payload Payload) Result {
	return Result{Kind: kind, Payload: payload}
}

// Failure builds a failed result. A blank reason is replaced so the
// observation is never empty.
func Failure(kind Kind, reason string) Result {
	if strings.TrimSpace(reason) == "" {
		reason = "tool failed without a reason"
	}
	return Result{Kind: kind, Reason: reason}
}

// Failuref builds a failed result from a format string.
func Failuref(kind Kind, format string, args ...any) Result {
	return Failure(kind, fmt.Sprintf(format, args...))
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Payload != nil
}

// Observation returns the text the LLM sees for this result.
func (r Result) Observation() string {
	if r.OK() {
		return r.Payload.Observation()
	}
	return "Error: " + r.Reason
}

// Outcome returns "success" or "error".
func (r Result) Outcome() string {
	if r.OK() {
		return "success"
	}
	return "error"
}

// validate checks payload invariants a capability may violate.
func (r Result) validate() Result {
	switch p := r.Payload.(type) {
	case DocumentAnswer:
		if !inUnitRange(p.ConfidenceScore) {
			return Failuref(r.Kind, "confidence score %v outside [0,1]", p.ConfidenceScore)
		}
	case Classification:
		if !inUnitRange(p.Probability) {
			return Failuref(r.Kind, "probability %v outside [0,1]", p.Probability)
		}
		if !validCategory(p.Category) {
			return Failuref(r.Kind, "unknown category %q", p.Category)
		}
	}
	return r
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func validCategory(c string) bool {
	for _, valid := range Categories() {
		if c == valid {
			return true
		}
	}
	return false
}
