package budget

import (
	"context"

	"finrag/features/transaction"
)

// Ledger is the read side of the transaction store.
type Ledger interface {
	List(ctx context.Context, userID string, f transaction.Filter) ([]transaction.Transaction, error)
}

type Service struct {
	repo   Repository
	ledger Ledger
}

func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

func (s *Service) Create(ctx context.Context, b *Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, b)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Status, error) {
	b, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	st, err := s.track(ctx, *b)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Status, error) {
	budgets, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.track(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Budget, error) {
	b, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Apply(b)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) track(ctx context.Context, b Budget) (Status, error) {
	from, to := b.StartDate, b.EndDate
	txs, err := s.ledger.List(ctx, b.UserID, transaction.Filter{
		Type:     string(transaction.TypeExpense),
		Category: b.Category,
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return Status{}, err
	}
	return Track(b, txs), nil
}
