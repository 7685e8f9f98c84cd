// file: repository/code_repository_test.go

package repository

import (
	"database/sql"
	"jobagent-api/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepository(db)

	code := &model.AuthorizationCode{
		Code:                "code-1",
		UserID:              "user-1",
		RedirectURI:         "https://agent.example/callback",
		Scopes:              []string{model.ScopeJobsRead},
		CodeChallenge:       "challenge",
		CodeChallengeMethod: model.ChallengeMethodS256,
		ExpiresAt:           time.Now().Add(5 * time.Minute),
	}

	mock.ExpectQuery("INSERT INTO authorization_codes").
		WithArgs(code.Code, code.UserID, code.RedirectURI, model.ScopeJobsRead,
			code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	err = repo.Create(code)

	assert.NoError(t, err)
	assert.Equal(t, 1, code.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepository_GetByCode_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM authorization_codes").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByCode("missing")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepository_Consume(t *testing.T) {
	t.Run("first consume wins", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewCodeRepository(db)

		mock.ExpectExec("UPDATE authorization_codes SET used_at").
			WithArgs("code-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		consumed, err := repo.Consume("code-1")

		assert.NoError(t, err)
		assert.True(t, consumed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second consume loses", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewCodeRepository(db)

		// used_at is already set, so the conditional update matches no rows.
		mock.ExpectExec("UPDATE authorization_codes SET used_at").
			WithArgs("code-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		consumed, err := repo.Consume("code-1")

		assert.NoError(t, err)
		assert.False(t, consumed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
