// Package finance manages transactions and the recurring finances
// singleton that feeds the budget view.
package finance

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hearthhq/hearth/internal/app/domain/finance"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// TransactionsCollection returns the transaction log for an identity.
func TransactionsCollection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "transactions")
}

// RecurringPath returns the recurring finances singleton document.
func RecurringPath(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "recurringFinances", "data")
}

// Service owns finance reads and writes.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a finance service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("finance")
	}
	return &Service{store: gw, log: log}
}

// AddTransaction logs one income or expense, stamped with the caller and
// the current date.
func (s *Service) AddTransaction(ctx context.Context, identity session.Identity, amount float64, txType, category, description string) (finance.Transaction, error) {
	if amount <= 0 {
		return finance.Transaction{}, apperrors.Validation("amount must be positive, got %v", amount)
	}
	if txType != finance.TypeIncome && txType != finance.TypeExpense {
		return finance.Transaction{}, apperrors.Validation("transaction type must be income or expense, got %q", txType)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return finance.Transaction{}, apperrors.Validation("category is required")
	}
	collection := TransactionsCollection(identity)
	if collection == "" {
		return finance.Transaction{}, apperrors.Unauthorized("no active session")
	}

	tx := finance.Transaction{
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Description: strings.TrimSpace(description),
		UserID:      identity.UID,
		CreatedAt:   store.Now(),
	}
	tx.Date = tx.CreatedAt.Format("2006-01-02")
	doc := store.Document{
		"amount":    tx.Amount,
		"type":      tx.Type,
		"category":  tx.Category,
		"date":      tx.Date,
		"userId":    tx.UserID,
		"createdAt": tx.CreatedAt,
	}
	if tx.Description != "" {
		doc["description"] = tx.Description
	}

	id, err := s.store.Create(ctx, collection, doc)
	if err != nil {
		return finance.Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// DeleteTransaction removes one log entry.
func (s *Service) DeleteTransaction(ctx context.Context, identity session.Identity, txID string) error {
	collection := TransactionsCollection(identity)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if txID == "" {
		return apperrors.Validation("transaction id is required")
	}
	return s.store.Delete(ctx, store.Join(collection, txID))
}

// Transactions reads the log, most recent first.
func (s *Service) Transactions(ctx context.Context, identity session.Identity) ([]finance.Transaction, error) {
	collection := TransactionsCollection(identity)
	if collection == "" {
		return nil, apperrors.Unauthorized("no active session")
	}

	docs, err := s.store.List(ctx, collection, store.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	txs := make([]finance.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, _ := finance.DecodeTransaction(doc)
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool { return finance.TransactionLess(txs[i], txs[j]) })
	return txs, nil
}

// Recurring reads the recurring finances singleton, zero when never written.
func (s *Service) Recurring(ctx context.Context, identity session.Identity) (finance.Recurring, error) {
	path := RecurringPath(identity)
	if path == "" {
		return finance.Recurring{}, apperrors.Unauthorized("no active session")
	}

	doc, err := s.store.Get(ctx, path)
	if apperrors.IsNotFound(err) {
		return finance.Recurring{}, nil
	}
	if err != nil {
		return finance.Recurring{}, err
	}
	return finance.DecodeRecurring(doc), nil
}

// SetIncome records the recurring income and its frequency.
func (s *Service) SetIncome(ctx context.Context, identity session.Identity, amount float64, frequency string) error {
	if amount < 0 {
		return apperrors.Validation("income cannot be negative")
	}
	if !finance.ValidFrequency(frequency) {
		return apperrors.Validation("unknown frequency %q", frequency)
	}
	path := RecurringPath(identity)
	if path == "" {
		return apperrors.Unauthorized("no active session")
	}
	return s.store.Set(ctx, path, store.Document{
		"income":          amount,
		"incomeFrequency": frequency,
	}, true)
}

// AddBill appends a bill to the recurring finances. The bills slice is
// rewritten whole, so two concurrent AddBill calls that read the same state
// keep only the later write.
func (s *Service) AddBill(ctx context.Context, identity session.Identity, name string, amount float64, dueDate, frequency string) (finance.Bill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return finance.Bill{}, apperrors.Validation("bill name is required")
	}
	if amount <= 0 {
		return finance.Bill{}, apperrors.Validation("bill amount must be positive")
	}
	if !finance.ValidFrequency(frequency) {
		return finance.Bill{}, apperrors.Validation("unknown frequency %q", frequency)
	}

	rec, err := s.Recurring(ctx, identity)
	if err != nil {
		return finance.Bill{}, err
	}

	bill := finance.Bill{ID: uuid.NewString(), Name: name, Amount: amount, DueDate: strings.TrimSpace(dueDate), Frequency: frequency}
	bills := append(rec.Bills, bill)
	if err := s.store.Set(ctx, RecurringPath(identity), store.Document{
		"bills": finance.EncodeBills(bills),
	}, true); err != nil {
		return finance.Bill{}, err
	}
	return bill, nil
}

// DeleteBill removes a bill by id, rewriting the slice.
func (s *Service) DeleteBill(ctx context.Context, identity session.Identity, billID string) error {
	if billID == "" {
		return apperrors.Validation("bill id is required")
	}
	rec, err := s.Recurring(ctx, identity)
	if err != nil {
		return err
	}

	bills := make([]finance.Bill, 0, len(rec.Bills))
	for _, b := range rec.Bills {
		if b.ID != billID {
			bills = append(bills, b)
		}
	}
	return s.store.Set(ctx, RecurringPath(identity), store.Document{
		"bills": finance.EncodeBills(bills),
	}, true)
}

// NetBalance projects recurring income minus bills onto period.
func (s *Service) NetBalance(ctx context.Context, identity session.Identity, period string) (float64, error) {
	if !finance.ValidFrequency(period) {
		return 0, apperrors.Validation("unknown period %q", period)
	}
	rec, err := s.Recurring(ctx, identity)
	if err != nil {
		return 0, err
	}
	return finance.NetBalance(rec, period), nil
}
