package budget_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/features/budget"
)

var columns = []string{"id", "user_id", "category", "limit_amount", "period_type", "start_date", "end_date", "created_at", "updated_at"}

const selectSQL = "SELECT id, user_id, category, limit_amount, period_type, start_date, end_date, created_at, updated_at FROM budgets"

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := march()
	b.ID = ""
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO budgets (user_id, category, limit_amount, period_type, start_date, end_date) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at")).
		WithArgs("u1", "food", sqlmock.AnyArg(), "monthly", b.StartDate, b.EndDate).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("b-1", time.Now(), time.Now()))

	require.NoError(t, budget.NewPostgresRepo(db).Save(context.Background(), &b))
	assert.Equal(t, "b-1", b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := budget.NewPostgresRepo(db)
	query := regexp.QuoteMeta(selectSQL + " WHERE id = $1 AND user_id = $2")

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("b-1", "u1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("b-1", "u1", "food", "400.00", "monthly", day("2024-03-01"), day("2024-03-31"), time.Now(), time.Now()))

		b, err := repo.Get(context.Background(), "u1", "b-1")
		require.NoError(t, err)
		assert.Equal(t, "400", b.Limit.String())
		assert.Equal(t, budget.PeriodMonthly, b.PeriodType)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("nope", "u1").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "u1", "nope")
		assert.ErrorIs(t, err, budget.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectSQL + " WHERE user_id = $1 ORDER BY start_date DESC, created_at DESC")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b-2", "u1", "bills", "90", "weekly", day("2024-04-01"), day("2024-04-07"), time.Now(), time.Now()).
			AddRow("b-1", "u1", "food", "400", "monthly", day("2024-03-01"), day("2024-03-31"), time.Now(), time.Now()))

	budgets, err := budget.NewPostgresRepo(db).List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "b-2", budgets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := march()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE budgets SET")).WillReturnError(sql.ErrNoRows)

	assert.ErrorIs(t, budget.NewPostgresRepo(db).Update(context.Background(), &b), budget.ErrNotFound)
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := budget.NewPostgresRepo(db)
	query := regexp.QuoteMeta("DELETE FROM budgets WHERE id = $1 AND user_id = $2")

	mock.ExpectExec(query).WithArgs("b-1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), "u1", "b-1"))

	mock.ExpectExec(query).WithArgs("b-1", "u2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u2", "b-1"), budget.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
