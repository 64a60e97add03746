// Package planner defines events, lists, and the nested section/item
// checklists they carry. Sections live inline on the parent document as one
// `sections` array; every mutation transforms the decoded value and the
// whole array is written back in a single set. There is no partial or
// indexed update, so two writers racing on the same parent lose one of the
// two edits (last write wins).
package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthhq/hearth/internal/store"
)

// Item is one checklist entry.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Section groups items under a heading.
type Section struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddSection appends an empty section. The input is not modified.
func AddSection(sections []Section, title string) []Section {
	out := cloneSections(sections)
	return append(out, Section{ID: uuid.NewString(), Title: title, Items: []Item{}, CreatedAt: store.Now()})
}

// AddItem appends an item to the named section. Unknown section ids leave
// the sections unchanged.
func AddItem(sections []Section, sectionID, text string) []Section {
	out := cloneSections(sections)
	for i := range out {
		if out[i].ID == sectionID {
			out[i].Items = append(out[i].Items, Item{ID: uuid.NewString(), Text: text, CreatedAt: store.Now()})
			break
		}
	}
	return out
}

// ToggleItem flips one item's completed state. Unknown section or item ids
// are a no-op.
func ToggleItem(sections []Section, sectionID, itemID string) []Section {
	out := cloneSections(sections)
	for i := range out {
		if out[i].ID != sectionID {
			continue
		}
		for j := range out[i].Items {
			if out[i].Items[j].ID == itemID {
				out[i].Items[j].Completed = !out[i].Items[j].Completed
			}
		}
	}
	return out
}

// DeleteSection removes a section and everything in it.
func DeleteSection(sections []Section, sectionID string) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.ID != sectionID {
			out = append(out, cloneSection(s))
		}
	}
	return out
}

// DeleteItem removes one item from the named section.
func DeleteItem(sections []Section, sectionID, itemID string) []Section {
	out := cloneSections(sections)
	for i := range out {
		if out[i].ID != sectionID {
			continue
		}
		items := make([]Item, 0, len(out[i].Items))
		for _, it := range out[i].Items {
			if it.ID != itemID {
				items = append(items, it)
			}
		}
		out[i].Items = items
	}
	return out
}

func cloneSections(sections []Section) []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = cloneSection(s)
	}
	return out
}

func cloneSection(s Section) Section {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

// EncodeSections converts sections to the stored array shape.
func EncodeSections(sections []Section) []any {
	out := make([]any, len(sections))
	for i, s := range sections {
		items := make([]any, len(s.Items))
		for j, it := range s.Items {
			items[j] = map[string]any{
				"id":        it.ID,
				"text":      it.Text,
				"completed": it.Completed,
				"createdAt": it.CreatedAt,
			}
		}
		out[i] = map[string]any{
			"id":        s.ID,
			"title":     s.Title,
			"items":     items,
			"createdAt": s.CreatedAt,
		}
	}
	return out
}

// DecodeSections reads the stored `sections` value. Malformed entries are
// skipped rather than failing the whole document.
func DecodeSections(v any) []Section {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Section, 0, len(raw))
	for _, entry := range raw {
		sm, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		sec := Section{
			ID:        store.Document(sm).String("id"),
			Title:     store.Document(sm).String("title"),
			Items:     []Item{},
			CreatedAt: store.Document(sm).Time("createdAt"),
		}
		if items, ok := sm["items"].([]any); ok {
			for _, ie := range items {
				im, ok := ie.(map[string]any)
				if !ok {
					continue
				}
				sec.Items = append(sec.Items, Item{
					ID:        store.Document(im).String("id"),
					Text:      store.Document(im).String("text"),
					Completed: store.Document(im).Bool("completed"),
					CreatedAt: store.Document(im).Time("createdAt"),
				})
			}
		}
		out = append(out, sec)
	}
	return out
}
