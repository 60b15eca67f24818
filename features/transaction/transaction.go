package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("transaction not found")
	ErrInvalid  = errors.New("invalid transaction")
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

var categories = map[string]bool{
	"income":  true,
	"food":    true,
	"housing": true,
	"bills":   true,
	"health":  true,
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Type        Type            `json:"type"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks request shape only; amounts may be signed.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("%w: type must be income or expense", ErrInvalid)
	}
	if !categories[t.Category] {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, t.Category)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	return nil
}

// Patch holds the fields a client may change on update. Nil means unchanged.
type Patch struct {
	Title       *string
	Amount      *decimal.Decimal
	Type        *Type
	Category    *string
	Date        *time.Time
	Description *string
}

func (p Patch) Apply(t *Transaction) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
}

type Filter struct {
	Search   string
	Type     string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
}

type Summary struct {
	Count        int             `json:"count"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

func Summarize(txs []Transaction) Summary {
	s := Summary{
		Count:        len(txs),
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		Transactions: txs,
	}
	for _, t := range txs {
		switch t.Type {
		case TypeIncome:
			s.Income = s.Income.Add(t.Amount)
		case TypeExpense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	return s
}

// ReindexRequest is published whenever a user's ledger changes.
type ReindexRequest struct {
	UserID        string `json:"user_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
