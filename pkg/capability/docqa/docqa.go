// Package docqa answers questions about PDF and image documents with Gemini's
// multimodal API.
package docqa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"sentinai/pkg/logx"
	"sentinai/pkg/tools"
)

// MaxInlineBytes is the largest document sent inline to Gemini.
const MaxInlineBytes = 20 << 20

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("google API key is required")

//nolint:gochecknoglobals // Fixed lookup table
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

const instruction = "You answer questions about the attached document. " +
	"Answer only from the document content. Reply with JSON: " +
	`{"answer": "<short answer>", "confidence": <number between 0 and 1>}. ` +
	`If the document does not contain the answer, reply with an empty answer and confidence 0.`

// generator is the slice of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Answerer implements tools.DocumentAnswerer.
type Answerer struct {
	models generator
	model  string
	logger *logx.Logger
}

// New creates an Answerer backed by the Gemini API.
func New(ctx context.Context, apiKey, model string) (*Answerer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(g generator, model string) *Answerer {
	return &Answerer{models: g, model: model, logger: logx.NewLogger("docqa")}
}

type answerJSON struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Answer sends the document inline with query and parses the JSON reply.
func (a *Answerer) Answer(ctx context.Context, path, query string) (tools.DocumentAnswer, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return tools.DocumentAnswer{}, fmt.Errorf("file not found: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeTypes[ext]
	if !ok {
		return tools.DocumentAnswer{}, fmt.Errorf("unsupported file format: %q (supported: pdf, jpg, jpeg, png, bmp, tiff, webp)", ext)
	}
	if info.Size() > MaxInlineBytes {
		return tools.DocumentAnswer{}, fmt.Errorf("document too large: %d bytes (max %d)", info.Size(), MaxInlineBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tools.DocumentAnswer{}, fmt.Errorf("failed to read document: %w", err)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
			{Text: "Question: " + query},
		},
	}}
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		ResponseMIMEType:  "application/json",
	}

	a.logger.Debug("Querying %s (%s, %d bytes) with model %s", path, mime, len(data), a.model)
	resp, err := a.models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return tools.DocumentAnswer{}, fmt.Errorf("document processing failed: %w", err)
	}
	if resp == nil {
		return tools.DocumentAnswer{}, errors.New("document processing failed: empty response")
	}

	return parseAnswer(resp.Text())
}

func parseAnswer(text string) (tools.DocumentAnswer, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")

	var parsed answerJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return tools.DocumentAnswer{}, fmt.Errorf("document processing failed: unparseable reply: %w", err)
	}
	answer := strings.TrimSpace(parsed.Answer)
	if answer == "" {
		return tools.DocumentAnswer{}, errors.New("no answer could be extracted from the document")
	}
	confidence := parsed.Confidence
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return tools.DocumentAnswer{Answer: answer, ConfidenceScore: confidence}, nil
}
