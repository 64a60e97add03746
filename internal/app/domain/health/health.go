// Package health defines the append-only health metric log.
package health

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Metric types.
const (
	TypeExercise = "exercise"
	TypeWeight   = "weight"
	TypeSteps    = "steps"
	TypeSleep    = "sleep"
)

// ValidType reports whether t is a known metric type.
func ValidType(t string) bool {
	switch t {
	case TypeExercise, TypeWeight, TypeSteps, TypeSleep:
		return true
	}
	return false
}

// Metric is one logged reading. Entries are never edited, only appended.
type Metric struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Decode builds a Metric from a stored document.
func Decode(doc store.Document) (Metric, error) {
	return Metric{
		ID:        doc.ID(),
		Type:      doc.String("type"),
		Value:     doc.Float("value"),
		Note:      doc.String("note"),
		CreatedAt: doc.Time("createdAt"),
	}, nil
}

// Less orders metrics most recent first.
func Less(a, b Metric) bool { return a.CreatedAt.After(b.CreatedAt) }
