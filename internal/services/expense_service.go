package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finman/internal/amqp"
	"finman/internal/core"
	"finman/internal/metrics"
)

// ErrReload marks a change that was stored but whose refreshed view could not
// be loaded. Callers must treat the change as done.
var ErrReload = errors.New("change stored but reload failed")

// ExpenseStore is the durable record set the service reads and writes.
type ExpenseStore interface {
	FetchAll(ctx context.Context) ([]core.Expense, error)
	Add(ctx context.Context, e core.NewExpense) (int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

// EventPublisher receives a notification after each successful change.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

// ExpenseInput is the raw, unvalidated form of a new expense.
type ExpenseInput struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	SplitCount  int    `json:"split_count"`
}

// Row is one expense as displayed: the record plus the user's share of it.
type Row struct {
	Expense core.Expense
	Share   decimal.Decimal
	// Note explains a split expense, empty otherwise.
	Note string
}

// Snapshot is the full view after a change: every active record and the
// per-category breakdown computed from them.
type Snapshot struct {
	Rows    []Row
	Summary core.Breakdown
}

// ExpenseService validates input, writes through the store and rebuilds the
// view from a fresh read after every change.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
	currency  string
}

// NewExpenseService wires the service. publisher may be nil.
func NewExpenseService(store ExpenseStore, publisher EventPublisher, currency string) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		currency:  currency,
	}
}

// Currency returns the symbol amounts are rendered with.
func (s *ExpenseService) Currency() string {
	return s.currency
}

// Validate turns raw input into a storable expense. A blank date means
// today and a zero split count means one person.
func Validate(in ExpenseInput) (core.NewExpense, error) {
	var ne core.NewExpense

	if strings.TrimSpace(in.Date) == "" {
		ne.Date = core.Today()
	} else {
		d, err := core.ParseDate(in.Date)
		if err != nil {
			return core.NewExpense{}, &core.ValidationError{Field: "date", Err: err}
		}
		ne.Date = d
	}

	cat, err := core.ParseCategory(in.Category)
	if err != nil {
		return core.NewExpense{}, &core.ValidationError{Field: "category", Err: err}
	}
	ne.Category = cat

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.NewExpense{}, &core.ValidationError{Field: "amount", Err: err}
	}
	ne.Amount = amount

	ne.Description = in.Description
	ne.SplitCount = in.SplitCount

	ne = ne.Normalize()
	if err := ne.Validate(); err != nil {
		return core.NewExpense{}, err
	}
	return ne, nil
}

// AddExpense validates and stores a new expense, then returns the reloaded
// view. Validation errors leave the store untouched. A non-zero id means the
// record was stored even when err is set; the error then wraps ErrReload.
func (s *ExpenseService) AddExpense(ctx context.Context, in ExpenseInput) (Snapshot, int64, error) {
	ne, err := Validate(in)
	if err != nil {
		return Snapshot{}, 0, err
	}

	id, err := s.store.Add(ctx, ne)
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("add expense: %w", err)
	}

	s.publish(ctx, amqp.EventExpenseAdded, id)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, id, fmt.Errorf("%w: %w", ErrReload, err)
	}
	return snap, id, nil
}

// DeleteExpense soft deletes a record and returns the reloaded view.
// Unknown ids are not an error. A failed reload wraps ErrReload.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) (Snapshot, error) {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return Snapshot{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventExpenseDeleted, id)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrReload, err)
	}
	return snap, nil
}

// Snapshot reads every active record and recomputes the breakdown.
func (s *ExpenseService) Snapshot(ctx context.Context) (Snapshot, error) {
	expenses, err := s.store.FetchAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load expenses: %w", err)
	}

	rows := make([]Row, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, s.row(e))
	}

	return Snapshot{
		Rows:    rows,
		Summary: core.SummarizeExpenses(expenses),
	}, nil
}

func (s *ExpenseService) row(e core.Expense) Row {
	r := Row{Expense: e, Share: e.Share()}
	if e.IsSplit() {
		r.Note = fmt.Sprintf("Original: %s / Split: %d people", core.FormatMoney(s.currency, e.Amount), e.SplitCount)
	}
	return r
}

// publish is best effort: the store already holds the change.
func (s *ExpenseService) publish(ctx context.Context, typ amqp.EventType, id int64) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(typ, id))
	metrics.ExpenseEvents.WithLabelValues(string(typ), metrics.Result(err)).Inc()
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish expense event",
			"component", "service",
			"type", typ,
			"expense_id", id,
			"error", err)
	}
}
