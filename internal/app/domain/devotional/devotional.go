// Package devotional defines the shared daily devotional entry. One
// document per day, shared by the whole household: the verse fields are
// filled once, and each member's reflection lives under their own
// thought field so merge writes never collide.
package devotional

import (
	"strings"

	"github.com/hearthhq/hearth/internal/store"
)

// Collection is the shared daily devotional collection. Public data nests
// under the public/data document so paths keep collection/document parity.
const Collection = "public/data/dailyDevotionals"

// DateKey is the document id format, YYYY-MM-DD.
const DateKey = "2006-01-02"

const thoughtPrefix = "thoughts."

// ThoughtField returns the flat field name holding one member's thought.
// Thoughts are stored as top-level fields so a single-field merge write
// updates one member without touching the others.
func ThoughtField(uid string) string { return thoughtPrefix + uid }

// Entry is one day's devotional.
type Entry struct {
	Date      string            `json:"date"`
	Text      string            `json:"devotionalText"`
	Reference string            `json:"devotionalReference"`
	Thoughts  map[string]string `json:"thoughts"`
}

// HasVerse reports whether the verse has been filled for this entry.
func (e Entry) HasVerse() bool { return e.Text != "" }

// Decode builds an Entry from a stored document.
func Decode(doc store.Document) Entry {
	entry := Entry{
		Date:      doc.ID(),
		Text:      doc.String("devotionalText"),
		Reference: doc.String("devotionalReference"),
		Thoughts:  make(map[string]string),
	}
	for key := range doc {
		if uid, ok := strings.CutPrefix(key, thoughtPrefix); ok && uid != "" {
			if thought := doc.String(key); thought != "" {
				entry.Thoughts[uid] = thought
			}
		}
	}
	return entry
}
