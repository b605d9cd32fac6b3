package countries

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestGetByCode(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, code, name, rules, updated_at FROM countries WHERE code = \$1`).
		WithArgs("IN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "rules", "updated_at"}).
			AddRow("c1", "IN", "India", `{"educationSystem":"10+2+3"}`, now))

	c, err := repo.GetByCode(context.Background(), "IN")
	require.NoError(t, err)
	assert.Equal(t, "India", c.Name)
	assert.JSONEq(t, `{"educationSystem":"10+2+3"}`, c.Rules)
}

func TestGetByCode_NotFoundAndError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM countries`).WithArgs("XX").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM countries`).WithArgs("DE").WillReturnError(errors.New("timeout"))

	_, err := repo.GetByCode(context.Background(), "XX")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetByCode(context.Background(), "DE")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO countries .*ON CONFLICT \(code\)`).
		WithArgs("c1", "FR", "France", "{}", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Country{ID: "c1", Code: "FR", Name: "France", Rules: "{}", UpdatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
