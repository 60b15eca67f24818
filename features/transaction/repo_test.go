package transaction_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/features/transaction"
)

var columns = []string{"id", "user_id", "title", "amount", "type", "category", "date", "description", "created_at", "updated_at"}

const selectSQL = "SELECT id, user_id, title, amount, type, category, date, description, created_at, updated_at FROM transactions"

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	tx := &transaction.Transaction{
		UserID:   "u1",
		Title:    "Salary",
		Amount:   decimal.RequireFromString("1000"),
		Type:     transaction.TypeIncome,
		Category: "income",
		Date:     date,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions (user_id, title, amount, type, category, date, description) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at")).
		WithArgs("u1", "Salary", sqlmock.AnyArg(), "income", "income", date, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("tx-1", time.Now(), time.Now()))

	require.NoError(t, repo.Save(context.Background(), tx))
	assert.Equal(t, "tx-1", tx.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow("tx-1", "u1", "Rent", "1200.50", "expense", "housing", time.Now(), "", time.Now(), time.Now())
		mock.ExpectQuery(regexp.QuoteMeta(selectSQL + " WHERE id = $1 AND user_id = $2")).
			WithArgs("tx-1", "u1").
			WillReturnRows(rows)

		got, err := repo.Get(context.Background(), "u1", "tx-1")
		require.NoError(t, err)
		assert.Equal(t, "Rent", got.Title)
		assert.Equal(t, transaction.TypeExpense, got.Type)
		assert.True(t, decimal.RequireFromString("1200.5").Equal(got.Amount))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(selectSQL + " WHERE id = $1 AND user_id = $2")).
			WithArgs("missing", "u1").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "u1", "missing")
		assert.ErrorIs(t, err, transaction.ErrNotFound)
	})
}

func TestPostgresRepo_ListByUser_NewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)
	rows := sqlmock.NewRows(columns).
		AddRow("tx-2", "u1", "Groceries", "45", "expense", "food", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "weekly", time.Now(), time.Now()).
		AddRow("tx-1", "u1", "Salary", "1000", "income", "income", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "", time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(selectSQL + " WHERE user_id = $1 ORDER BY date DESC, created_at DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	txs, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, "weekly", txs[0].Description)
}

func TestPostgresRepo_List_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectSQL + " WHERE user_id = $1 AND title ILIKE $2 AND type = $3 AND date >= $4 ORDER BY date DESC, created_at DESC")).
		WithArgs("u1", "%rent%", "expense", from).
		WillReturnRows(sqlmock.NewRows(columns))

	txs, err := repo.List(context.Background(), "u1", transaction.Filter{
		Search:   "rent",
		Type:     "expense",
		Category: "all",
		DateFrom: &from,
	})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)
	query := regexp.QuoteMeta("UPDATE transactions SET title = $1, amount = $2, type = $3, category = $4, date = $5, description = $6, updated_at = NOW() WHERE id = $7 AND user_id = $8 RETURNING updated_at")
	tx := &transaction.Transaction{ID: "tx-1", UserID: "u1", Title: "Rent", Type: transaction.TypeExpense, Category: "housing"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		assert.NoError(t, repo.Update(context.Background(), tx))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(sql.ErrNoRows)
		assert.ErrorIs(t, repo.Update(context.Background(), tx), transaction.ErrNotFound)
	})
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := transaction.NewPostgresRepo(db)
	query := regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1 AND user_id = $2")

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("tx-1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), "u1", "tx-1"))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("tx-2", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(context.Background(), "u1", "tx-2"), transaction.ErrNotFound)
	})
}

func TestPostgresRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := transaction.NewPostgresRepo(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
