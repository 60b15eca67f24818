package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type Repository interface {
	Save(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, userID, id string) (*Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]Transaction, error)
	List(ctx context.Context, userID string, f Filter) ([]Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, userID, id string) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const selectColumns = `SELECT id, user_id, title, amount, type, category, date, description, created_at, updated_at FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (Transaction, error) {
	var t Transaction
	err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount, &t.Type, &t.Category, &t.Date, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PostgresRepo) Save(ctx context.Context, t *Transaction) error {
	query := `INSERT INTO transactions (user_id, title, amount, type, category, date, description) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, t.UserID, t.Title, t.Amount, t.Type, t.Category, t.Date, t.Description).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	query := selectColumns + ` WHERE id = $1 AND user_id = $2`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUser returns every transaction owned by userID, newest first.
func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	return r.List(ctx, userID, Filter{})
}

func (r *PostgresRepo) List(ctx context.Context, userID string, f Filter) ([]Transaction, error) {
	var sb strings.Builder
	sb.WriteString(selectColumns)
	sb.WriteString(` WHERE user_id = $1`)
	args := []any{userID}

	add := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}
	if f.Search != "" {
		add("title ILIKE $%d", "%"+f.Search+"%")
	}
	if f.Type != "" && f.Type != "all" {
		add("type = $%d", f.Type)
	}
	if f.Category != "" && f.Category != "all" {
		add("category = $%d", f.Category)
	}
	if f.DateFrom != nil {
		add("date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("date <= $%d", *f.DateTo)
	}
	sb.WriteString(` ORDER BY date DESC, created_at DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, t *Transaction) error {
	query := `UPDATE transactions SET title = $1, amount = $2, type = $3, category = $4, date = $5, description = $6, updated_at = NOW() WHERE id = $7 AND user_id = $8 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, t.Title, t.Amount, t.Type, t.Category, t.Date, t.Description, t.ID, t.UserID).
		Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
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

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	return count, err
}
