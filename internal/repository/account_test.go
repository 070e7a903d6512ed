package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sherise/internal/models"
	"sherise/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(testutil.NewTestDB(t))

	acct := &models.Account{Email: "  Asha@Example.com ", Name: "Asha", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, acct))
	assert.NotZero(t, acct.ID)
	assert.Equal(t, "asha@example.com", acct.Email)

	got, err := repo.GetByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acct.ID, got.ID)

	byID, err := repo.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.Name)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(testutil.NewTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.Account{Email: "a@b.c", Name: "A", PasswordHash: "x"}))
	err := repo.Create(ctx, &models.Account{Email: "A@B.C", Name: "B", PasswordHash: "y"})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestAccountRepository_Missing(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(testutil.NewTestDB(t))

	got, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.GetByID(ctx, 42)
	assert.Equal(t, 404, models.StatusFor(err))
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", assert.AnError, false},
		{"postgres unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: accounts.email"), true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}
