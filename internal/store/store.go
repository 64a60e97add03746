// Package store abstracts the hosted document database behind a narrow
// gateway: hierarchical collections of documents, whole-field writes with
// optional merge, and snapshot subscriptions. Implementations exist for an
// in-memory store (tests, local mode) and the hosted REST + realtime API.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Document is one stored record. The "id" key is always populated on
// documents returned by the gateway.
type Document map[string]any

// ID returns the document identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// String returns the string value for key, or "" when absent.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the bool value for key, or false when absent.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Float returns the numeric value for key, coercing the integer shapes a
// JSON round-trip can produce.
func (d Document) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Int returns the integer value for key.
func (d Document) Int(key string) int64 {
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Time returns the timestamp for key. Accepts time.Time (memory store) and
// RFC 3339 strings (JSON round-trip); anything else yields the zero time.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	}
	return time.Time{}
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Query narrows and orders a collection listing. Ordering from the store is
// advisory; subscription consumers re-sort client-side.
type Query struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// SnapshotFunc receives the full current contents of a subscribed collection.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives subscription delivery errors. Errors are recoverable;
// the subscription stays active unless closed.
type ErrorFunc func(err error)

// Subscription is an open changefeed handle. Close is mandatory; the feed
// coordinator tracks open handles and asserts none leak on identity
// teardown.
type Subscription interface {
	Close() error
}

// Gateway is the contract every feature talks to the document store
// through. Paths alternate collection and document segments, for example
// "users/u1/privateTasks" (collection) and "users/u1/privateTasks/t1"
// (document). Sub-collections nest arbitrarily.
type Gateway interface {
	// Create adds a document with a fresh id to the collection and
	// returns the id.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Get reads one document. Returns a NotFound error when absent.
	Get(ctx context.Context, path string) (Document, error)

	// Set writes fields to the document at path, creating it if needed.
	// With merge=true only the named top-level fields are touched and
	// siblings survive; the devotional thought-merge and meal-plan cell
	// updates rely on this.
	Set(ctx context.Context, path string, fields Document, merge bool) error

	// Delete removes one document. Deleting a parent does not remove its
	// sub-collections.
	Delete(ctx context.Context, path string) error

	// List reads the current contents of a collection.
	List(ctx context.Context, collection string, q Query) ([]Document, error)

	// Subscribe opens a changefeed on a collection. The current contents
	// are delivered as the first snapshot, then again after every change.
	Subscribe(collection string, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
}

// SplitPath validates a document path and returns its parent collection and
// document id.
func SplitPath(path string) (collection, id string, err error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("not a document path: %q", path)
	}
	for _, s := range segs {
		if s == "" {
			return "", "", fmt.Errorf("empty segment in path %q", path)
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// ValidCollection reports whether path names a collection.
func ValidCollection(path string) bool {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs)%2 != 1 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// Join concatenates path segments.
func Join(segs ...string) string {
	return strings.Join(segs, "/")
}

// Now returns the timestamp written into createdAt fields, in UTC
// truncated to milliseconds to survive JSON round-trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
