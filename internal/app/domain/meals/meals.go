// Package meals defines the weekly meal plan and the meal item catalog.
package meals

import (
	"strings"
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Days in display order.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Types in display order.
var Types = []string{"breakfast", "lunch", "dinner"}

// ValidDay reports whether day is a known weekday key.
func ValidDay(day string) bool {
	for _, d := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// ValidType reports whether mealType is known.
func ValidType(mealType string) bool {
	for _, t := range Types {
		if t == mealType {
			return true
		}
	}
	return false
}

// CellKey is the flat field name for one plan cell. Cells are top-level
// fields on the plan document so a merge write updates exactly one cell.
func CellKey(day, mealType string) string { return day + "." + mealType }

// WeekPlan is the decoded plan, cell key to meal name.
type WeekPlan struct {
	Cells map[string]string `json:"cells"`
}

// Get returns the meal planned for a cell, "" when unset.
func (p WeekPlan) Get(day, mealType string) string { return p.Cells[CellKey(day, mealType)] }

// DecodePlan builds a WeekPlan from the stored singleton.
func DecodePlan(doc store.Document) WeekPlan {
	plan := WeekPlan{Cells: make(map[string]string)}
	for _, day := range Days {
		for _, mealType := range Types {
			key := CellKey(day, mealType)
			if name := doc.String(key); name != "" {
				plan.Cells[key] = name
			}
		}
	}
	return plan
}

// Item is one catalog entry. The catalog is deduplicated by
// (lowercased name, type).
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// DecodeItem builds an Item from a stored document.
func DecodeItem(doc store.Document) (Item, error) {
	return Item{
		ID:        doc.ID(),
		Name:      doc.String("name"),
		Type:      doc.String("type"),
		CreatedAt: doc.Time("createdAt"),
	}, nil
}

// ItemLess orders catalog items oldest first.
func ItemLess(a, b Item) bool { return a.CreatedAt.Before(b.CreatedAt) }

// SameItem reports whether two entries collide under the dedupe rule.
func SameItem(a, b Item) bool {
	return strings.EqualFold(a.Name, b.Name) && a.Type == b.Type
}
