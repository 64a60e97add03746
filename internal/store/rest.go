package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Rest is a Gateway backed by the hosted document store's REST API.
// Documents live in a single `documents` table keyed by (collection, id)
// with the fields in a JSON column; merge writes go through the
// merge_document_fields database function so sibling fields survive.
type Rest struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
	breaker    *breaker
	realtime   *Realtime
	log        *logger.Logger
}

var _ Gateway = (*Rest)(nil)

// RestConfig configures the REST gateway.
type RestConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Retry      *RetryPolicy
	Log        *logger.Logger
}

// NewRest creates a REST gateway.
func NewRest(cfg RestConfig) (*Rest, error) {
	if cfg.URL == "" {
		return nil, apperrors.Configuration("store URL is required")
	}
	if cfg.APIKey == "" {
		return nil, apperrors.Configuration("store API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("store-rest")
	}

	return &Rest{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		retry:      retry,
		breaker:    newBreaker(5, 30*time.Second),
		realtime:   NewRealtime(cfg.URL, cfg.APIKey, log),
		log:        log,
	}, nil
}

// row is the wire shape of one stored document.
type row struct {
	ID         string   `json:"id"`
	Collection string   `json:"collection,omitempty"`
	Data       Document `json:"data"`
}

func (r row) document() Document {
	doc := r.Data
	if doc == nil {
		doc = Document{}
	}
	doc["id"] = r.ID
	return doc
}

// Create adds a document with a fresh id to the collection.
func (r *Rest) Create(ctx context.Context, collection string, doc Document) (string, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return "", apperrors.Validation("not a collection path: %q", collection)
	}

	id := uuid.NewString()
	payload := row{ID: id, Collection: collection, Data: doc}
	resp, err := r.do(ctx, http.MethodPost, r.tableURL(nil), payload, "return=minimal")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := r.checkStatus(resp); err != nil {
		return "", err
	}
	return id, nil
}

// Get reads one document.
func (r *Rest) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	params := url.Values{}
	params.Set("collection", "eq."+collection)
	params.Set("id", "eq."+id)
	params.Set("select", "id,data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.tableURL(params), nil)
	if err != nil {
		return nil, apperrors.Transport(err, "build request")
	}
	r.setHeaders(req)
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	resp, err := resilientDo(r.httpClient, req, r.retry, r.breaker)
	if err != nil {
		return nil, apperrors.Transport(err, "get %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("document %s", path)
	}
	if err := r.checkStatus(resp); err != nil {
		return nil, err
	}

	var rw row
	if err := json.NewDecoder(resp.Body).Decode(&rw); err != nil {
		return nil, apperrors.Transport(err, "decode %s", path)
	}
	return rw.document(), nil
}

// Set writes fields to the document at path, creating it if needed.
func (r *Rest) Set(ctx context.Context, path string, fields Document, merge bool) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return apperrors.Validation("%v", err)
	}

	if merge {
		// Server-side JSON merge keeps sibling fields intact even when
		// another writer touched them since our last read.
		_, err := r.rpc(ctx, "merge_document_fields", map[string]any{
			"p_collection": collection,
			"p_id":         id,
			"p_fields":     fields,
		})
		return err
	}

	payload := row{ID: id, Collection: collection, Data: fields}
	resp, err := r.do(ctx, http.MethodPost, r.tableURL(nil), payload,
		"resolution=merge-duplicates,return=minimal")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return r.checkStatus(resp)
}

// Delete removes one document.
func (r *Rest) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return apperrors.Validation("%v", err)
	}

	params := url.Values{}
	params.Set("collection", "eq."+collection)
	params.Set("id", "eq."+id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.tableURL(params), nil)
	if err != nil {
		return apperrors.Transport(err, "build request")
	}
	r.setHeaders(req)

	resp, err := resilientDo(r.httpClient, req, r.retry, r.breaker)
	if err != nil {
		return apperrors.Transport(err, "delete %s", path)
	}
	defer resp.Body.Close()
	return r.checkStatus(resp)
}

// List reads the current contents of a collection.
func (r *Rest) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return nil, apperrors.Validation("not a collection path: %q", collection)
	}

	params := url.Values{}
	params.Set("collection", "eq."+collection)
	params.Set("select", "id,data")
	if q.OrderBy != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		params.Set("order", fmt.Sprintf("data->>%s.%s", q.OrderBy, dir))
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.tableURL(params), nil)
	if err != nil {
		return nil, apperrors.Transport(err, "build request")
	}
	r.setHeaders(req)

	resp, err := resilientDo(r.httpClient, req, r.retry, r.breaker)
	if err != nil {
		return nil, apperrors.Transport(err, "list %s", collection)
	}
	defer resp.Body.Close()
	if err := r.checkStatus(resp); err != nil {
		return nil, err
	}

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, apperrors.Transport(err, "decode %s", collection)
	}
	docs := make([]Document, 0, len(rows))
	for _, rw := range rows {
		docs = append(docs, rw.document())
	}
	return docs, nil
}

// Subscribe opens a changefeed: the realtime channel signals changes on the
// collection and each signal triggers a fresh List whose result is the
// snapshot.
func (r *Rest) Subscribe(collection string, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return nil, apperrors.Validation("not a collection path: %q", collection)
	}

	refetch := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		docs, err := r.List(ctx, collection, q)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onSnapshot(docs)
	}

	ch, err := r.realtime.Watch(collection, refetch, onError)
	if err != nil {
		return nil, err
	}

	// Initial snapshot.
	refetch()
	return ch, nil
}

func (r *Rest) rpc(ctx context.Context, fn string, params map[string]any) ([]byte, error) {
	resp, err := r.do(ctx, http.MethodPost, fmt.Sprintf("%s/rest/v1/rpc/%s", r.baseURL, fn), params, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := r.checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (r *Rest) do(ctx context.Context, method, rawURL string, body any, prefer string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Validation("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Transport(err, "build request")
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := resilientDo(r.httpClient, req, r.retry, r.breaker)
	if err != nil {
		return nil, apperrors.Transport(err, "%s %s", method, rawURL)
	}
	return resp, nil
}

func (r *Rest) tableURL(params url.Values) string {
	u := r.baseURL + "/rest/v1/documents"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (r *Rest) setHeaders(req *http.Request) {
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (r *Rest) checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized("store rejected request: %s", msg)
	default:
		return apperrors.Transport(fmt.Errorf("status %d: %s", resp.StatusCode, msg), "store request failed")
	}
}
