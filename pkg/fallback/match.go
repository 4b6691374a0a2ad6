package fallback

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"sentinai/pkg/tools"
)

// Match identifies which fallback branch an input selects.
type Match int

const (
	MatchNone Match = iota
	MatchAudio
	MatchDocument
	MatchTicket
)

func (m Match) String() string {
	switch m {
	case MatchAudio:
		return "audio"
	case MatchDocument:
		return "document"
	case MatchTicket:
		return "ticket"
	default:
		return "none"
	}
}

// DefaultQuestion is used for document inputs that carry no question.
const DefaultQuestion = "extract all text"

//nolint:gochecknoglobals // Fixed lookup tables
var (
	supportKeywords = map[string]bool{
		"issue": true, "problem": true, "billing": true, "bill": true, "payment": true,
		"charge": true, "charged": true, "refund": true, "invoice": true, "subscription": true,
		"password": true, "account": true, "login": true, "error": true, "crash": true,
		"bug": true, "broken": true, "help": true, "support": true, "cancel": true,
	}
	// Matched on the original input so indexes stay byte aligned.
	questionMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?is)question:(.*)`),
		regexp.MustCompile(`(?is)query:(.*)`),
	}
)

// Plan is the routing decision for one input. Branches are tried in priority
// order (audio, document, ticket) and the first match wins.
type Plan struct {
	Path     string
	Question string
	Match    Match
}

// PlanFor computes the routing decision for input without side effects.
func PlanFor(input string) Plan {
	tokens := pathCandidates(input)

	if path := firstPath(tokens, tools.IsAudioPath); path != "" {
		return Plan{Match: MatchAudio, Path: path}
	}
	if path := firstPath(tokens, tools.IsDocumentPath); path != "" {
		return Plan{Match: MatchDocument, Path: path, Question: extractQuestion(input, path)}
	}
	if HasSupportKeyword(input) {
		return Plan{Match: MatchTicket}
	}
	return Plan{Match: MatchNone}
}

// pathCandidates splits input on whitespace and trims wrapping quotes,
// brackets and trailing punctuation from each token.
func pathCandidates(input string) []string {
	fields := strings.Fields(input)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "\"'`()[]{}<>")
		f = strings.TrimRight(f, ".,;:!?")
		f = strings.Trim(f, "\"'`()[]{}<>")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func firstPath(tokens []string, accept func(string) bool) string {
	for _, tok := range tokens {
		// A bare extension like ".wav" names no file.
		if len(tok) > len(filepath.Ext(tok)) && accept(tok) {
			return tok
		}
	}
	return ""
}

// extractQuestion finds the question for a document input: text after a
// question:/query: marker, else the input with the path replaced when it
// contains a literal '?', else DefaultQuestion.
func extractQuestion(input, path string) string {
	for _, marker := range questionMarkers {
		if m := marker.FindStringSubmatch(input); m != nil {
			if q := strings.TrimSpace(m[1]); q != "" {
				return q
			}
		}
	}
	if strings.Contains(input, "?") {
		q := strings.Join(strings.Fields(strings.Replace(input, path, "the document", 1)), " ")
		if q != "" && q != "?" {
			return q
		}
	}
	return DefaultQuestion
}

// HasSupportKeyword reports whether input contains a support keyword as a
// whole word. A trailing plural "s" is ignored ("issues" matches "issue").
func HasSupportKeyword(input string) bool {
	words := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if supportKeywords[w] || supportKeywords[strings.TrimSuffix(w, "s")] {
			return true
		}
	}
	return false
}
