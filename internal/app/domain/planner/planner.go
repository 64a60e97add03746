package planner

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Event is a planned occasion, optionally dated for the calendar view.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"` // YYYY-MM-DD
	CreatedAt time.Time `json:"createdAt"`
	Sections  []Section `json:"sections"`
}

// List is an undated checklist with the same section structure.
type List struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Sections  []Section `json:"sections"`
}

// DecodeEvent builds an Event from a stored document.
func DecodeEvent(doc store.Document) (Event, error) {
	return Event{
		ID:        doc.ID(),
		Title:     doc.String("title"),
		Date:      doc.String("date"),
		CreatedAt: doc.Time("createdAt"),
		Sections:  DecodeSections(doc["sections"]),
	}, nil
}

// DecodeList builds a List from a stored document.
func DecodeList(doc store.Document) (List, error) {
	return List{
		ID:        doc.ID(),
		Title:     doc.String("title"),
		CreatedAt: doc.Time("createdAt"),
		Sections:  DecodeSections(doc["sections"]),
	}, nil
}

// EventLess orders events oldest first.
func EventLess(a, b Event) bool { return a.CreatedAt.Before(b.CreatedAt) }

// ListLess orders lists oldest first.
func ListLess(a, b List) bool { return a.CreatedAt.Before(b.CreatedAt) }
