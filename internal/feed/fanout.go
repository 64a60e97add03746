package feed

import (
	"context"
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Child merges one sub-collection into each decoded parent. The fetch is a
// one-shot read per snapshot, not a nested subscription.
type Child[T any] struct {
	Collection string
	Query      store.Query
	Attach     func(parent T, children []store.Document) T
}

const childFetchTimeout = 10 * time.Second

// attachChildren fetches each parent's sub-collection and merges it in. A
// failed fetch publishes that parent with an empty sub-collection; it never
// blocks the siblings or the snapshot.
func (f *Feed[T]) attachChildren(parentPath string, ids []string, items []T) []T {
	ctx, cancel := context.WithTimeout(context.Background(), childFetchTimeout)
	defer cancel()

	for i, id := range ids {
		childPath := store.Join(parentPath, id, f.cfg.Child.Collection)
		docs, err := f.cfg.Store.List(ctx, childPath, f.cfg.Child.Query)
		if err != nil {
			f.cfg.Log.WithError(err).WithField("path", childPath).Warn("child fetch failed")
			docs = nil
		}
		items[i] = f.cfg.Child.Attach(items[i], docs)
	}
	return items
}
