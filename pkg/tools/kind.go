package tools

import "fmt"

// Kind identifies one of the fixed tool adapters.
type Kind int

const (
	KindTranscribeAudio Kind = iota
	KindQueryDocument
	KindClassifyTicket

	kindCount
)

// Tool names as advertised to the LLM.
const (
	NameTranscribeAudio = "transcribe_audio"
	NameQueryDocument   = "query_document"
	NameClassifyTicket  = "classify_ticket"
)

// Argument names.
const (
	ArgFilePath = "file_path"
	ArgQuery    = "query"
	ArgText     = "text"
)

// Ticket categories produced by the classifier.
const (
	CategoryBilling   = "Billing"
	CategoryTechnical = "Technical"
	CategoryAccount   = "Account"
)

// Categories lists every valid ticket category.
func Categories() []string {
	return []string{CategoryBilling, CategoryTechnical, CategoryAccount}
}

// definitions is indexed by Kind so every kind has exactly one entry.
//
//nolint:gochecknoglobals // Fixed tool table
var definitions = [kindCount]ToolDefinition{
	KindTranscribeAudio: {
		Name: NameTranscribeAudio,
		Description: "Transcribe speech from an audio file to text. " +
			"Use this when given an audio file path (.mp3, .wav, .m4a, etc.).",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				ArgFilePath: {Type: "string", Description: "Path to the audio file to transcribe"},
			},
			Required: []string{ArgFilePath},
		},
	},
	KindQueryDocument: {
		Name: NameQueryDocument,
		Description: "Extract information from a document (PDF or image) by asking questions. " +
			"Use this when given a document file path and a question about its contents.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				ArgFilePath: {Type: "string", Description: "Path to the document file (PDF or image)"},
				ArgQuery:    {Type: "string", Description: "Question to ask about the document"},
			},
			Required: []string{ArgFilePath, ArgQuery},
		},
	},
	KindClassifyTicket: {
		Name: NameClassifyTicket,
		Description: "Classify a support ticket into categories: Billing, Technical, or Account. " +
			"Use this when given text that appears to be a customer support request.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				ArgText: {Type: "string", Description: "Support ticket text to classify"},
			},
			Required: []string{ArgText},
		},
	},
}

// String returns the advertised tool name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return definitions[k].Name
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Definition returns the tool definition for k.
func (k Kind) Definition() ToolDefinition {
	return definitions[k]
}

// ParseKind maps a tool name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k := Kind(0); k < kindCount; k++ {
		if definitions[k].Name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", name)
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Definitions returns the provider-facing definitions for every kind.
func Definitions() []ToolDefinition {
	out := make([]ToolDefinition, kindCount)
	copy(out, definitions[:])
	return out
}
