// Package deepgram transcribes prerecorded audio files with the Deepgram REST API.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"sentinai/pkg/logx"
	"sentinai/pkg/tools"
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("deepgram API key is required")

// fileAPI is the slice of the Deepgram prerecorded client used here.
type fileAPI interface {
	FromFile(ctx context.Context, file string, options *interfaces.PreRecordedTranscriptionOptions) (*restinterfaces.PreRecordedResponse, error)
}

// Transcriber implements tools.Transcriber.
type Transcriber struct {
	api    fileAPI
	model  string
	logger *logx.Logger
}

var initOnce sync.Once

// New creates a transcriber using the given model (for example "nova-2").
func New(apiKey, model string) (*Transcriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	initOnce.Do(func() {
		listenClient.Init(listenClient.InitLib{LogLevel: listenClient.LogLevelErrorOnly})
	})
	rest := listenClient.NewREST(apiKey, &interfaces.ClientOptions{})
	return newWithAPI(prerecorded.New(rest), model), nil
}

func newWithAPI(api fileAPI, model string) *Transcriber {
	return &Transcriber{api: api, model: model, logger: logx.NewLogger("deepgram")}
}

// Transcribe checks that path is an existing audio file and returns its transcript.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (tools.Transcription, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return tools.Transcription{}, fmt.Errorf("file not found: %s", path)
	}
	if !tools.IsAudioPath(path) {
		return tools.Transcription{}, fmt.Errorf("unsupported audio format: %s", path)
	}

	opts := &interfaces.PreRecordedTranscriptionOptions{
		Model:          t.model,
		Punctuate:      true,
		SmartFormat:    true,
		DetectLanguage: true,
	}
	t.logger.Debug("Transcribing %s with model %s", path, t.model)

	resp, err := t.api.FromFile(ctx, path, opts)
	if err != nil {
		return tools.Transcription{}, fmt.Errorf("transcription failed: %w", err)
	}
	if resp == nil || resp.Results == nil || len(resp.Results.Channels) == 0 ||
		len(resp.Results.Channels[0].Alternatives) == 0 {
		return tools.Transcription{}, fmt.Errorf("transcription failed: empty response for %s", path)
	}

	channel := resp.Results.Channels[0]
	language := channel.DetectedLanguage
	if language == "" {
		language = "unknown"
	}
	return tools.Transcription{
		Text:     strings.TrimSpace(channel.Alternatives[0].Transcript),
		Language: language,
	}, nil
}
