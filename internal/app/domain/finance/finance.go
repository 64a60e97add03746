// Package finance defines transactions, recurring finances, and the
// frequency conversion table the budget view is built on.
package finance

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Frequencies.
const (
	FrequencyWeekly      = "weekly"
	FrequencyFortnightly = "fortnightly"
	FrequencyMonthly     = "monthly"
	FrequencyAnnually    = "annually"
)

// weeksIn maps a frequency to its length in weeks. The table is flat and
// deliberately approximate: a month counts as four weeks.
func weeksIn(frequency string) float64 {
	switch frequency {
	case FrequencyWeekly:
		return 1
	case FrequencyFortnightly:
		return 2
	case FrequencyMonthly:
		return 4
	case FrequencyAnnually:
		return 52
	}
	return 0
}

// ValidFrequency reports whether frequency is in the table.
func ValidFrequency(frequency string) bool { return weeksIn(frequency) > 0 }

// ConvertToWeekly normalizes an amount paid at frequency to its weekly
// equivalent. Unknown frequencies yield 0.
func ConvertToWeekly(amount float64, frequency string) float64 {
	w := weeksIn(frequency)
	if w == 0 {
		return 0
	}
	return amount / w
}

// ConvertFromWeekly projects a weekly amount onto another frequency.
// Unknown frequencies yield 0.
func ConvertFromWeekly(weekly float64, frequency string) float64 {
	return weekly * weeksIn(frequency)
}

// Transaction is one logged income or expense. Date is the day the money
// moved (YYYY-MM-DD), UserID who logged it.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DecodeTransaction builds a Transaction from a stored document.
func DecodeTransaction(doc store.Document) (Transaction, error) {
	return Transaction{
		ID:          doc.ID(),
		Amount:      doc.Float("amount"),
		Type:        doc.String("type"),
		Category:    doc.String("category"),
		Description: doc.String("description"),
		Date:        doc.String("date"),
		UserID:      doc.String("userId"),
		CreatedAt:   doc.Time("createdAt"),
	}, nil
}

// TransactionLess orders transactions most recent first.
func TransactionLess(a, b Transaction) bool { return a.CreatedAt.After(b.CreatedAt) }

// Bill is one recurring outgoing. DueDate is display-only, never parsed.
type Bill struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"dueDate,omitempty"`
	Frequency string  `json:"frequency"`
}

// Recurring is the member's recurring finances singleton.
type Recurring struct {
	Income          float64 `json:"income"`
	IncomeFrequency string  `json:"incomeFrequency"`
	Bills           []Bill  `json:"bills"`
}

// DecodeRecurring builds Recurring from the stored singleton.
func DecodeRecurring(doc store.Document) Recurring {
	rec := Recurring{
		Income:          doc.Float("income"),
		IncomeFrequency: doc.String("incomeFrequency"),
	}
	if raw, ok := doc["bills"].([]any); ok {
		for _, entry := range raw {
			bm, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			bd := store.Document(bm)
			rec.Bills = append(rec.Bills, Bill{
				ID:        bd.String("id"),
				Name:      bd.String("name"),
				Amount:    bd.Float("amount"),
				DueDate:   bd.String("dueDate"),
				Frequency: bd.String("frequency"),
			})
		}
	}
	return rec
}

// EncodeBills converts bills to the stored array shape.
func EncodeBills(bills []Bill) []any {
	out := make([]any, len(bills))
	for i, b := range bills {
		out[i] = map[string]any{
			"id":        b.ID,
			"name":      b.Name,
			"amount":    b.Amount,
			"dueDate":   b.DueDate,
			"frequency": b.Frequency,
		}
	}
	return out
}

// NetBalance is the recurring income minus recurring bills, normalized to
// weekly and projected onto period.
func NetBalance(rec Recurring, period string) float64 {
	weekly := ConvertToWeekly(rec.Income, rec.IncomeFrequency)
	for _, bill := range rec.Bills {
		weekly -= ConvertToWeekly(bill.Amount, bill.Frequency)
	}
	return ConvertFromWeekly(weekly, period)
}
