package deepgram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
)

type fakeAPI struct {
	resp    *restinterfaces.PreRecordedResponse
	err     error
	gotFile string
	gotOpts *interfaces.PreRecordedTranscriptionOptions
}

func (f *fakeAPI) FromFile(_ context.Context, file string, opts *interfaces.PreRecordedTranscriptionOptions) (*restinterfaces.PreRecordedResponse, error) {
	f.gotFile, f.gotOpts = file, opts
	return f.resp, f.err
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))
	return path
}

func response(text, lang string) *restinterfaces.PreRecordedResponse {
	return &restinterfaces.PreRecordedResponse{
		Results: &restinterfaces.Result{
			Channels: []restinterfaces.Channel{{
				DetectedLanguage: lang,
				Alternatives:     []restinterfaces.Alternative{{Transcript: " " + text + " "}},
			}},
		},
	}
}

func TestTranscribe(t *testing.T) {
	api := &fakeAPI{resp: response("hello", "en")}
	tr := newWithAPI(api, "nova-2")
	path := writeFile(t, "call.wav")

	out, err := tr.Transcribe(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, "en", out.Language)
	assert.Equal(t, path, api.gotFile)
	assert.Equal(t, "nova-2", api.gotOpts.Model)
	assert.True(t, api.gotOpts.DetectLanguage)
}

func TestTranscribeErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		api  *fakeAPI
		want string
	}{
		{"missing file", filepath.Join(dir, "nope.wav"), &fakeAPI{}, "file not found"},
		{"directory", dir, &fakeAPI{}, "file not found"},
		{"wrong extension", writeFile(t, "notes.txt"), &fakeAPI{}, "unsupported audio format"},
		{"api error", writeFile(t, "a.mp3"), &fakeAPI{err: errors.New("401 unauthorized")}, "401 unauthorized"},
		{"empty response", writeFile(t, "b.mp3"), &fakeAPI{resp: &restinterfaces.PreRecordedResponse{}}, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newWithAPI(tt.api, "nova-2").Transcribe(context.Background(), tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnknownLanguage(t *testing.T) {
	out, err := newWithAPI(&fakeAPI{resp: response("hi", "")}, "nova-2").Transcribe(context.Background(), writeFile(t, "c.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "unknown", out.Language)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(" ", "nova-2")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
