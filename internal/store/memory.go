package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hearthhq/hearth/internal/errors"
)

// Memory is an in-memory implementation of the Gateway. It is safe for
// concurrent use and is the primary backend for tests and local
// development, mirroring the hosted store's semantics including merge
// writes and non-cascading deletes.
type Memory struct {
	mu        sync.RWMutex
	docs      map[string]Document
	watchers  map[string]map[int64]*memorySub
	nextWatch int64
}

var _ Gateway = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]Document),
		watchers: make(map[string]map[int64]*memorySub),
	}
}

// Create adds a document with a fresh id to the collection.
func (m *Memory) Create(_ context.Context, collection string, doc Document) (string, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return "", apperrors.Validation("not a collection path: %q", collection)
	}

	id := uuid.NewString()
	stored := deepCopy(doc)
	stored["id"] = id

	m.mu.Lock()
	m.docs[collection+"/"+id] = stored
	m.mu.Unlock()

	m.notify(collection)
	return id, nil
}

// Get reads one document.
func (m *Memory) Get(_ context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	m.mu.RLock()
	doc, ok := m.docs[collection+"/"+id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("document %s", path)
	}
	return deepCopy(doc), nil
}

// Set writes fields to the document at path, creating it if needed.
func (m *Memory) Set(_ context.Context, path string, fields Document, merge bool) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return apperrors.Validation("%v", err)
	}
	key := collection + "/" + id

	m.mu.Lock()
	existing, ok := m.docs[key]
	if merge && ok {
		updated := deepCopy(existing)
		for k, v := range fields {
			updated[k] = deepValue(v)
		}
		updated["id"] = id
		m.docs[key] = updated
	} else {
		stored := deepCopy(fields)
		stored["id"] = id
		m.docs[key] = stored
	}
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

// Delete removes one document. Deleting an absent document succeeds;
// sub-collections under the document are left in place.
func (m *Memory) Delete(_ context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return apperrors.Validation("%v", err)
	}

	m.mu.Lock()
	delete(m.docs, collection+"/"+id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

// List reads the current contents of a collection.
func (m *Memory) List(_ context.Context, collection string, q Query) ([]Document, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return nil, apperrors.Validation("not a collection path: %q", collection)
	}

	m.mu.RLock()
	docs := m.collectLocked(collection)
	m.mu.RUnlock()

	return applyQuery(docs, q), nil
}

// Subscribe opens a changefeed on a collection. The current contents are
// delivered synchronously before Subscribe returns.
func (m *Memory) Subscribe(collection string, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	collection = strings.Trim(collection, "/")
	if !ValidCollection(collection) {
		return nil, apperrors.Validation("not a collection path: %q", collection)
	}

	sub := &memorySub{
		store:      m,
		collection: collection,
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
	}

	m.mu.Lock()
	m.nextWatch++
	sub.id = m.nextWatch
	if m.watchers[collection] == nil {
		m.watchers[collection] = make(map[int64]*memorySub)
	}
	m.watchers[collection][sub.id] = sub
	initial := m.collectLocked(collection)
	m.mu.Unlock()

	sub.deliver(applyQuery(initial, q))
	return sub, nil
}

// collectLocked gathers direct members of the collection. Documents in
// sub-collections have longer keys and are skipped.
func (m *Memory) collectLocked(collection string) []Document {
	prefix := collection + "/"
	var docs []Document
	for key, doc := range m.docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if strings.Contains(key[len(prefix):], "/") {
			continue
		}
		docs = append(docs, deepCopy(doc))
	}
	return docs
}

func (m *Memory) notify(collection string) {
	m.mu.RLock()
	subs := make([]*memorySub, 0, len(m.watchers[collection]))
	for _, sub := range m.watchers[collection] {
		subs = append(subs, sub)
	}
	docs := m.collectLocked(collection)
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(applyQuery(docs, sub.query))
	}
}

type memorySub struct {
	store      *Memory
	id         int64
	collection string
	query      Query
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	mu     sync.Mutex
	closed bool
}

func (s *memorySub) deliver(docs []Document) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.onSnapshot == nil {
		return
	}
	s.onSnapshot(docs)
}

// Close detaches the subscription. Further changes are not delivered.
func (s *memorySub) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.store.mu.Lock()
	if subs, ok := s.store.watchers[s.collection]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.store.watchers, s.collection)
		}
	}
	s.store.mu.Unlock()
	return nil
}

// applyQuery sorts and limits docs per the advisory query.
func applyQuery(docs []Document, q Query) []Document {
	out := docs
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compareValues orders the value shapes documents carry: times, numbers,
// strings, bools. Mixed or unknown types compare equal.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// deepCopy clones a document including nested maps and slices, so callers
// can transform their copy without aliasing stored state.
func deepCopy(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = deepValue(v)
	}
	return out
}

func deepValue(v any) any {
	switch val := v.(type) {
	case Document:
		return deepCopy(val)
	case map[string]any:
		return map[string]any(deepCopy(Document(val)))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepValue(item)
		}
		return out
	default:
		return v
	}
}
