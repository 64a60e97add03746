// Package feed keeps a local, sorted mirror of one store collection per
// household feature, push-updated from the store's changefeed and rewired
// whenever the session identity changes.
package feed

import (
	"sort"
	"sync"

	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Config describes one feed.
type Config[T any] struct {
	Store store.Gateway

	// Path builds the collection path for an identity. Returning "" leaves
	// the feed empty for that identity.
	Path func(session.Identity) string

	// Query is passed to the store; ordering there is advisory only, the
	// feed re-sorts every snapshot with Less.
	Query  store.Query
	Decode func(store.Document) (T, error)
	Less   func(a, b T) bool

	// Limit caps the mirror after sorting, 0 means unbounded.
	Limit int

	// Child, when set, merges one sub-collection into each decoded item.
	Child *Child[T]

	OnUpdate func([]T)
	OnError  store.ErrorFunc
	Log      *logger.Logger
}

// Feed mirrors a collection into memory. Start and Stop may be called any
// number of times; snapshots from a previous Start are discarded by a
// generation counter, so a stale subscription can never overwrite the
// current identity's view.
type Feed[T any] struct {
	cfg Config[T]

	mu    sync.Mutex
	gen   uint64
	sub   store.Subscription
	items []T
}

// New creates a stopped feed.
func New[T any](cfg Config[T]) *Feed[T] {
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("feed")
	}
	return &Feed[T]{cfg: cfg}
}

// Start subscribes the feed for identity, replacing any prior subscription.
func (f *Feed[T]) Start(identity session.Identity) error {
	f.Stop()

	path := f.cfg.Path(identity)
	if path == "" || identity.Zero() {
		return nil
	}

	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()

	sub, err := f.cfg.Store.Subscribe(path, f.cfg.Query, func(docs []store.Document) {
		f.apply(gen, path, docs)
	}, func(err error) {
		f.cfg.Log.WithError(err).WithField("path", path).Warn("feed subscription error")
		if f.cfg.OnError != nil {
			f.cfg.OnError(err)
		}
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		// Lost the race with another Start/Stop.
		f.mu.Unlock()
		return sub.Close()
	}
	f.sub = sub
	f.mu.Unlock()
	return nil
}

// Stop closes the subscription and clears the mirror. Snapshots already in
// flight are dropped.
func (f *Feed[T]) Stop() {
	f.mu.Lock()
	f.gen++
	sub := f.sub
	f.sub = nil
	f.items = nil
	f.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

// Items returns a copy of the current mirror.
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed[T]) apply(gen uint64, path string, docs []store.Document) {
	items := make([]T, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		item, err := f.cfg.Decode(doc)
		if err != nil {
			f.cfg.Log.WithError(err).WithField("id", doc.ID()).Warn("dropping undecodable document")
			continue
		}
		items = append(items, item)
		ids = append(ids, doc.ID())
	}

	if f.cfg.Child != nil {
		items = f.attachChildren(path, ids, items)
	}

	if f.cfg.Less != nil {
		sort.SliceStable(items, func(i, j int) bool { return f.cfg.Less(items[i], items[j]) })
	}
	if f.cfg.Limit > 0 && len(items) > f.cfg.Limit {
		items = items[:f.cfg.Limit]
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.items = items
	f.mu.Unlock()

	if f.cfg.OnUpdate != nil {
		f.cfg.OnUpdate(items)
	}
}
