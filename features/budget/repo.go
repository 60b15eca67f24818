package budget

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	Save(ctx context.Context, b *Budget) error
	Get(ctx context.Context, userID, id string) (*Budget, error)
	List(ctx context.Context, userID string) ([]Budget, error)
	Update(ctx context.Context, b *Budget) error
	Delete(ctx context.Context, userID, id string) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const selectColumns = `SELECT id, user_id, category, limit_amount, period_type, start_date, end_date, created_at, updated_at FROM budgets`

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (Budget, error) {
	var b Budget
	err := s.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.PeriodType, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *PostgresRepo) Save(ctx context.Context, b *Budget) error {
	query := `INSERT INTO budgets (user_id, category, limit_amount, period_type, start_date, end_date) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, b.UserID, b.Category, b.Limit, b.PeriodType, b.StartDate, b.EndDate).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (*Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE user_id = $1 ORDER BY start_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, b *Budget) error {
	query := `UPDATE budgets SET category = $1, limit_amount = $2, period_type = $3, start_date = $4, end_date = $5, updated_at = NOW() WHERE id = $6 AND user_id = $7 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, b.Category, b.Limit, b.PeriodType, b.StartDate, b.EndDate, b.ID, b.UserID).
		Scan(&b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
