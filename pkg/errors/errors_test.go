package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeTable(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		facing    bool
		details   bool
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, true, true, false},
		{CodeUnauthorized, http.StatusUnauthorized, true, false, false},
		{CodeForbidden, http.StatusForbidden, true, false, false},
		{CodeNotFound, http.StatusNotFound, true, false, false},
		{CodeConflict, http.StatusConflict, true, true, false},
		{CodeUnprocessable, http.StatusUnprocessableEntity, true, true, false},
		{CodeRateLimit, http.StatusTooManyRequests, true, false, false},
		{CodeInternal, http.StatusInternalServerError, false, false, true},
		{CodeDependency, http.StatusServiceUnavailable, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.code.Status())
			assert.Equal(t, tt.facing, tt.code.ClientFacing())
			assert.Equal(t, tt.details, tt.code.ShowsDetails())
			assert.Equal(t, tt.retryable, tt.code.Retryable())
			assert.NotEmpty(t, tt.code.Generic())
		})
	}
}

func TestUnknownCodeBehavesLikeInternal(t *testing.T) {
	unknown := Code("SOMETHING_ELSE")
	assert.Equal(t, http.StatusInternalServerError, unknown.Status())
	assert.False(t, unknown.ClientFacing())
	assert.Equal(t, "internal server error", unknown.Generic())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "insert edge")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "insert edge", wrapped.Message())
	assert.Equal(t, "CONFLICT: insert edge: boom", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: gone", New(CodeNotFound, "gone").Error())
}

func TestWithDetails(t *testing.T) {
	err := New(CodeUnprocessable, "rejected")
	assert.Nil(t, err.Details())
	err.WithDetails(map[string]string{"price": "required"})
	assert.Equal(t, map[string]string{"price": "required"}, err.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("x"))
	assert.Equal(t, CodeInternal, nilErr.Code())
}

func TestIsCodeThroughFmtWrapping(t *testing.T) {
	outer := fmt.Errorf("loading wishlist: %w", New(CodeNotFound, "product missing"))
	assert.True(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(outer, CodeConflict))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestPostgresFromEitherDriver(t *testing.T) {
	pgx := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key", TableName: "products"})
	info, ok := Postgres(pgx)
	require.True(t, ok)
	assert.Equal(t, "23505", info.Code)
	assert.Equal(t, "products_slug_key", info.Constraint)

	legacy := &pq.Error{Code: "23503", Constraint: "wishlist_items_product_id_fkey"}
	info, ok = Postgres(legacy)
	require.True(t, ok)
	assert.Equal(t, "23503", info.Code)

	_, ok = Postgres(stdErrors.New("not postgres"))
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	err := Wrap(CodeDependency, &pgconn.PgError{Code: "57P01", Message: "terminating connection"}, "insert wishlist edge")
	r := Describe(err)

	assert.Equal(t, CodeDependency, r.Code)
	assert.Equal(t, []string{"*errors.Error", "*pgconn.PgError"}, r.Chain)
	require.NotNil(t, r.PG)
	assert.Equal(t, "57P01", r.PG.Code)

	plain := Describe(stdErrors.New("x"))
	assert.Nil(t, plain.PG)
	assert.Equal(t, Report{}, Describe(nil))
}
