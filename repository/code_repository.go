// file: repository/code_repository.go

package repository

import (
	"database/sql"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// ICodeRepository defines the contract for authorization code persistence.
type ICodeRepository interface {
	Create(code *model.AuthorizationCode) error
	GetByCode(code string) (*model.AuthorizationCode, error)
	Consume(code string) (bool, error)
}

// CodeRepository implements ICodeRepository.
type CodeRepository struct {
	DB *sql.DB
}

// NewCodeRepository creates a new CodeRepository.
func NewCodeRepository(db *sql.DB) *CodeRepository {
	return &CodeRepository{DB: db}
}

// Create inserts a new authorization code record.
func (r *CodeRepository) Create(code *model.AuthorizationCode) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    code.UserID,
		"expires_at": code.ExpiresAt,
	})
	log.Info("Executing query to create an authorization code")

	query := `INSERT INTO authorization_codes (code, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err := r.DB.QueryRow(query,
		code.Code, code.UserID, code.RedirectURI, model.JoinScopes(code.Scopes),
		code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create authorization code query")
		return err
	}
	return nil
}

// GetByCode retrieves an authorization code by its opaque value.
func (r *CodeRepository) GetByCode(codeValue string) (*model.AuthorizationCode, error) {
	log := logger.Log
	log.Info("Executing query to get authorization code")

	code := &model.AuthorizationCode{}
	var scopes string
	query := `SELECT id, code, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, used_at, created_at
		FROM authorization_codes WHERE code = $1`
	err := r.DB.QueryRow(query, codeValue).Scan(
		&code.ID, &code.Code, &code.UserID, &code.RedirectURI, &scopes,
		&code.CodeChallenge, &code.CodeChallengeMethod, &code.ExpiresAt, &code.UsedAt, &code.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get authorization code query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	code.Scopes = model.SplitScopes(scopes)
	return code, nil
}

// Consume marks the code used, but only if it has not been used yet. The
// conditional update is the serialization point for two concurrent exchanges
// of the same code: exactly one caller observes true.
func (r *CodeRepository) Consume(codeValue string) (bool, error) {
	log := logger.Log
	log.Info("Executing query to consume authorization code")

	query := `UPDATE authorization_codes SET used_at = now() WHERE code = $1 AND used_at IS NULL`
	res, err := r.DB.Exec(query, codeValue)
	if err != nil {
		log.WithError(err).Error("Failed to execute consume authorization code query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read rows affected for consume query")
		return false, err
	}
	return affected == 1, nil
}
