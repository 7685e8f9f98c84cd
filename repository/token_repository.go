// file: repository/token_repository.go

package repository

import (
	"database/sql"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(token *model.RefreshToken) error
	GetByTokenHash(tokenHash string) (*model.RefreshToken, error)
	GetByID(id int) (*model.RefreshToken, error)
	Rotate(oldID int, successor *model.RefreshToken) (bool, error)
	RevokeByID(id int) error
	RevokeAllForUser(userID string) error
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.DB.QueryRow(query, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hashed value.
func (r *TokenRepository) GetByTokenHash(tokenHash string) (*model.RefreshToken, error) {
	log := logger.Log
	log.Info("Executing query to get refresh token by hash")

	token := &model.RefreshToken{}
	query := `SELECT id, user_id, token_hash, expires_at, revoked_at, rotated_to, created_at FROM refresh_tokens WHERE token_hash = $1`
	err := r.DB.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt,
		&token.RevokedAt, &token.RotatedTo, &token.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get refresh token by hash query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return token, nil
}

// GetByID retrieves a refresh token by primary key.
func (r *TokenRepository) GetByID(id int) (*model.RefreshToken, error) {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to get refresh token by id")

	token := &model.RefreshToken{}
	query := `SELECT id, user_id, token_hash, expires_at, revoked_at, rotated_to, created_at FROM refresh_tokens WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt,
		&token.RevokedAt, &token.RotatedTo, &token.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get refresh token by id query")
		}
		return nil, err
	}
	return token, nil
}

// Rotate creates the successor token and retires the old one in a single
// transaction. The conditional update only succeeds while the old token is
// still live, so two concurrent rotations of the same token cannot both win;
// the loser gets (false, nil) and the transaction is rolled back.
func (r *TokenRepository) Rotate(oldID int, successor *model.RefreshToken) (bool, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":      successor.UserID,
		"old_token_id": oldID,
	})
	log.Info("Executing transactional refresh token rotation")

	tx, err := r.DB.Begin()
	if err != nil {
		log.WithError(err).Error("Failed to begin rotation transaction")
		return false, err
	}
	defer tx.Rollback()

	insert := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := tx.QueryRow(insert, successor.UserID, successor.TokenHash, successor.ExpiresAt).Scan(&successor.ID, &successor.CreatedAt); err != nil {
		log.WithError(err).Error("Failed to insert successor refresh token")
		return false, err
	}

	retire := `UPDATE refresh_tokens SET revoked_at = now(), rotated_to = $1 WHERE id = $2 AND revoked_at IS NULL AND rotated_to IS NULL`
	res, err := tx.Exec(retire, successor.ID, oldID)
	if err != nil {
		log.WithError(err).Error("Failed to retire old refresh token")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read rows affected for rotation")
		return false, err
	}
	if affected != 1 {
		// Lost the race: someone else already rotated or revoked the token.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("Failed to commit rotation transaction")
		return false, err
	}
	return true, nil
}

// RevokeByID marks a single refresh token revoked.
func (r *TokenRepository) RevokeByID(id int) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to revoke refresh token")

	query := `UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(query, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	return nil
}

// RevokeAllForUser revokes every live refresh token belonging to a user.
// This is the replay-detection and account-teardown path.
func (r *TokenRepository) RevokeAllForUser(userID string) error {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	query := `UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return err
	}
	return nil
}
