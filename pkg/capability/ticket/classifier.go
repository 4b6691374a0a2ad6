// Package ticket classifies support tickets into Billing, Technical or
// Account with an in-process multinomial naive Bayes model over unigrams
// and bigrams.
package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"sentinai/pkg/logx"
	"sentinai/pkg/tools"
)

const modelVersion = 1

var (
	// ErrEmptyText is returned when classifying blank text.
	ErrEmptyText = errors.New("input text cannot be empty")
	// ErrNotTrained is returned when classifying before Train or Load.
	ErrNotTrained = errors.New("model not trained; run `sentinai train` first")
)

// Model is the serialized form of a trained classifier.
type Model struct {
	TrainedAt   time.Time                 `json:"trained_at"`
	DocCounts   map[string]int            `json:"doc_counts"`
	TokenCounts map[string]map[string]int `json:"token_counts"`
	TokenTotals map[string]int            `json:"token_totals"`
	Categories  []string                  `json:"categories"`
	Vocabulary  int                       `json:"vocabulary"`
	Samples     int                       `json:"samples"`
	Version     int                       `json:"version"`
}

// Classifier implements tools.TicketClassifier. It is safe for concurrent use.
type Classifier struct {
	model  *Model
	logger *logx.Logger
	mu     sync.RWMutex
}

// New returns an untrained classifier.
func New() *Classifier {
	return &Classifier{logger: logx.NewLogger("ticket")}
}

// LoadOrTrain loads the model at path, or trains on DefaultDataset and saves
// it there when no model exists. An empty path trains in memory only.
func LoadOrTrain(path string) (*Classifier, error) {
	c := New()
	if path != "" {
		err := c.Load(path)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Ignoring unreadable classifier model %s: %v", path, err)
		}
	}
	if err := c.Train(DefaultDataset()); err != nil {
		return nil, err
	}
	if path != "" {
		if err := c.Save(path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Trained reports whether a model is loaded.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Train fits the model on samples, replacing any previous model.
func (c *Classifier) Train(samples []Sample) error {
	if len(samples) == 0 {
		return errors.New("training failed: no samples")
	}

	m := &Model{
		Version:     modelVersion,
		Categories:  tools.Categories(),
		DocCounts:   map[string]int{},
		TokenCounts: map[string]map[string]int{},
		TokenTotals: map[string]int{},
		Samples:     len(samples),
		TrainedAt:   time.Now().UTC(),
	}
	vocab := map[string]struct{}{}
	for _, cat := range m.Categories {
		m.TokenCounts[cat] = map[string]int{}
	}

	for i, s := range samples {
		if _, ok := m.TokenCounts[s.Category]; !ok {
			return fmt.Errorf("training failed: sample %d has unknown category %q", i, s.Category)
		}
		m.DocCounts[s.Category]++
		for _, f := range features(s.Text) {
			m.TokenCounts[s.Category][f]++
			m.TokenTotals[s.Category]++
			vocab[f] = struct{}{}
		}
	}
	m.Vocabulary = len(vocab)

	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
	c.logger.Info("Model trained on %d samples with %d categories (%d features)", len(samples), len(m.Categories), m.Vocabulary)
	return nil
}

// Classify returns the most probable category and its posterior probability.
func (c *Classifier) Classify(_ context.Context, text string) (tools.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return tools.Classification{}, ErrEmptyText
	}
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m == nil {
		return tools.Classification{}, ErrNotTrained
	}

	feats := features(text)
	logp := make([]float64, len(m.Categories))
	vocab := float64(m.Vocabulary)
	for i, cat := range m.Categories {
		// Laplace smoothing on both the prior and the likelihoods.
		lp := math.Log(float64(m.DocCounts[cat]+1) / float64(m.Samples+len(m.Categories)))
		denom := float64(m.TokenTotals[cat]) + vocab
		for _, f := range feats {
			lp += math.Log((float64(m.TokenCounts[cat][f]) + 1) / denom)
		}
		logp[i] = lp
	}

	best, prob := softmaxMax(logp)
	return tools.Classification{
		Category:    m.Categories[best],
		Probability: math.Round(prob*1e4) / 1e4,
	}, nil
}

// softmaxMax returns the index of the largest log-probability and its
// normalized probability.
func softmaxMax(logp []float64) (int, float64) {
	best := 0
	for i := range logp {
		if logp[i] > logp[best] {
			best = i
		}
	}
	var sum float64
	for _, lp := range logp {
		sum += math.Exp(lp - logp[best])
	}
	return best, 1 / sum
}

// Save writes the model as JSON to path, creating parent directories.
func (c *Classifier) Save(path string) error {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m == nil {
		return ErrNotTrained
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	c.logger.Info("Model saved to %s", path)
	return nil
}

// Load replaces the model with the one stored at path.
func (c *Classifier) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("no model found at %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	if m.Version != modelVersion {
		return fmt.Errorf("failed to load model: unsupported version %d", m.Version)
	}
	if len(m.Categories) == 0 || m.Samples == 0 {
		return errors.New("failed to load model: model is empty")
	}

	c.mu.Lock()
	c.model = &m
	c.mu.Unlock()
	c.logger.Info("Model loaded from %s", path)
	return nil
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

//nolint:gochecknoglobals // Fixed stop word list
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "am": true, "it": true,
	"i": true, "me": true, "my": true, "we": true, "you": true, "your": true,
	"this": true, "that": true, "these": true, "those": true, "do": true,
	"does": true, "did": true, "can": true, "will": true, "would": true,
	"should": true, "could": true, "how": true, "why": true, "what": true,
	"when": true, "very": true, "so": true, "get": true, "x": true,
}

// features returns the unigrams and bigrams of text after stop-word removal.
func features(text string) []string {
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !stopWords[w] {
			words = append(words, w)
		}
	}
	out := make([]string, 0, 2*len(words))
	out = append(out, words...)
	for i := 1; i < len(words); i++ {
		out = append(out, words[i-1]+" "+words[i])
	}
	return out
}
