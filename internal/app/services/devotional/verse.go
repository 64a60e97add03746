package devotional

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/hearthhq/hearth/internal/errors"
)

// VerseAPI fetches a random verse from a bible-api.com style endpoint.
type VerseAPI struct {
	url        string
	httpClient *http.Client
}

var _ VerseFetcher = (*VerseAPI)(nil)

// NewVerseAPI creates a verse fetcher against url.
func NewVerseAPI(url string, httpClient *http.Client) (*VerseAPI, error) {
	if url == "" {
		return nil, apperrors.Configuration("verse API URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &VerseAPI{url: url, httpClient: httpClient}, nil
}

// Fetch returns one random verse.
func (v *VerseAPI) Fetch(ctx context.Context) (Verse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return Verse{}, apperrors.Transport(err, "build verse request")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Verse{}, apperrors.Transport(err, "verse API unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Verse{}, apperrors.Transport(nil, "verse API responded %d", resp.StatusCode)
	}

	var payload struct {
		Reference string `json:"reference"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Verse{}, apperrors.Transport(err, "decode verse response")
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return Verse{}, apperrors.Validation("verse API returned an empty verse")
	}
	return Verse{Text: text, Reference: payload.Reference}, nil
}
