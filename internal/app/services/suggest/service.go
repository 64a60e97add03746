// Package suggest turns a task's text into suggested sub-task steps via a
// hosted language model.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/pkg/logger"
)

const prompt = "Break the following household task into 3 to 5 short, concrete steps. " +
	"Respond with a JSON array of strings and nothing else.\n\nTask: %s"

// Config configures the suggestion service.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	RateLimit  rate.Limit
	Burst      int
	Log        *logger.Logger
}

// Service calls the model API. Requests in flight are tracked by task text:
// two tasks that happen to share the same text share one in-flight slot.
// TODO: key in-flight state by task id once callers pass one through.
type Service struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New constructs a suggestion service. A missing API key is allowed here;
// each call then fails with a Configuration error before any network I/O.
func New(cfg Config) *Service {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Limit(1)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("suggest")
	}
	return &Service{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.Burst),
		log:        cfg.Log,
		inflight:   make(map[string]bool),
	}
}

// InFlight reports whether a suggestion for this task text is running.
func (s *Service) InFlight(taskText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[taskText]
}

// SuggestSubtasks asks the model to break taskText into steps.
func (s *Service) SuggestSubtasks(ctx context.Context, taskText string) ([]string, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, apperrors.Configuration("suggestion API key is not set")
	}
	if s.url == "" {
		return nil, apperrors.Configuration("suggestion API URL is not set")
	}
	taskText = strings.TrimSpace(taskText)
	if taskText == "" {
		return nil, apperrors.Validation("task text is required")
	}

	s.mu.Lock()
	if s.inflight[taskText] {
		s.mu.Unlock()
		return nil, apperrors.Validation("a suggestion for %q is already in progress", taskText)
	}
	s.inflight[taskText] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, taskText)
		s.mu.Unlock()
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Transport(err, "rate limit wait")
	}

	body, err := json.Marshal(map[string]any{
		"contents": []any{
			map[string]any{"parts": []any{
				map[string]any{"text": fmt.Sprintf(prompt, taskText)},
			}},
		},
		"generationConfig": map[string]any{"responseMimeType": "application/json"},
	})
	if err != nil {
		return nil, apperrors.Validation("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Transport(err, "build suggestion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Transport(err, "suggestion API unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, apperrors.Transport(nil, "suggestion API responded %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(err, "read suggestion response")
	}
	return parseEnvelope(data)
}

// parseEnvelope digs the steps array out of the model response: the first
// candidate's first part holds a string that is itself a JSON array.
func parseEnvelope(data []byte) ([]string, error) {
	inner := gjson.GetBytes(data, "candidates.0.content.parts.0.text")
	if !inner.Exists() {
		return nil, apperrors.Validation("suggestion response has no candidate text")
	}

	parsed := gjson.Parse(inner.String())
	if !parsed.IsArray() {
		return nil, apperrors.Validation("suggestion payload is not a JSON array")
	}

	var steps []string
	for _, entry := range parsed.Array() {
		if entry.Type != gjson.String {
			return nil, apperrors.Validation("suggestion payload contains a non-string entry")
		}
		if step := strings.TrimSpace(entry.String()); step != "" {
			steps = append(steps, step)
		}
	}
	if len(steps) == 0 {
		return nil, apperrors.Validation("suggestion payload is empty")
	}
	return steps, nil
}
