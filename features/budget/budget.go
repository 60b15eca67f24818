package budget

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finrag/features/transaction"
)

var (
	ErrNotFound = errors.New("budget not found")
	ErrInvalid  = errors.New("invalid budget")
)

type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

var categories = map[string]bool{
	"food":    true,
	"housing": true,
	"bills":   true,
	"health":  true,
}

type Budget struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Category   string          `json:"category"`
	Limit      decimal.Decimal `json:"limit"`
	PeriodType Period          `json:"period_type"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (b *Budget) Validate() error {
	if b.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	if !categories[b.Category] {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, b.Category)
	}
	if b.Limit.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: limit must be at least 1", ErrInvalid)
	}
	switch b.PeriodType {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
	case "":
		b.PeriodType = PeriodMonthly
	default:
		return fmt.Errorf("%w: period_type must be weekly, monthly or yearly", ErrInvalid)
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalid)
	}
	if b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalid)
	}
	return nil
}

// Patch holds the fields a client may change on update. Nil means unchanged.
type Patch struct {
	Category   *string
	Limit      *decimal.Decimal
	PeriodType *Period
	StartDate  *time.Time
	EndDate    *time.Time
}

func (p Patch) Apply(b *Budget) {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.PeriodType != nil {
		b.PeriodType = *p.PeriodType
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		b.EndDate = *p.EndDate
	}
}

// Status is a budget with its spending over [StartDate, EndDate].
type Status struct {
	Budget
	Spent       decimal.Decimal `json:"spent"`
	Left        decimal.Decimal `json:"left"`
	PercentUsed decimal.Decimal `json:"percent_used"`
}

// Track totals the expenses in b's category and window. Left goes negative
// once the budget is overspent.
func Track(b Budget, txs []transaction.Transaction) Status {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Type != transaction.TypeExpense || t.Category != b.Category {
			continue
		}
		if t.Date.Before(b.StartDate) || t.Date.After(b.EndDate) {
			continue
		}
		spent = spent.Add(t.Amount.Abs())
	}
	s := Status{Budget: b, Spent: spent, Left: b.Limit.Sub(spent), PercentUsed: decimal.Zero}
	if b.Limit.IsPositive() {
		s.PercentUsed = spent.Div(b.Limit).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
