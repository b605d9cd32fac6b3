package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNullRoundTrip(t *testing.T) {
	s := "note"
	now := time.Now()
	n := 42

	assert.Equal(t, &s, StringPtr(NullString(&s)))
	assert.Nil(t, StringPtr(NullString(nil)))
	assert.Equal(t, now, *TimePtr(NullTime(&now)))
	assert.Nil(t, TimePtr(NullTime(nil)))
	assert.Equal(t, &n, IntPtr(NullInt(&n)))
	assert.Nil(t, IntPtr(sql.NullInt32{}))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
