// file: repository/session_repository.go

package repository

import (
	"database/sql"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// ISessionRepository defines the contract for consent session persistence.
type ISessionRepository interface {
	Create(session *model.Session) error
	GetByID(id string) (*model.Session, error)
	GetByRefreshTokenID(tokenID int) (*model.Session, error)
	CountByUserID(userID string) (int, error)
	ListByUserID(userID string) ([]*model.Session, error)
	ListInfoByUserID(userID string) ([]*model.SessionInfo, error)
	UpdateRefreshToken(sessionID string, tokenID int) error
	Delete(id string) error
	DeleteAllForUser(userID string) error
}

// SessionRepository implements ISessionRepository.
type SessionRepository struct {
	DB *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(session *model.Session) error {
	log := logger.Log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
	})
	log.Info("Executing query to create a new session")

	query := `INSERT INTO sessions (id, user_id, scopes, granted_scopes, refresh_token_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, last_active`
	err := r.DB.QueryRow(query,
		session.ID, session.UserID, model.JoinScopes(session.Scopes),
		model.JoinScopes(session.GrantedScopes), session.RefreshTokenID,
	).Scan(&session.CreatedAt, &session.LastActive)
	if err != nil {
		log.WithError(err).Error("Failed to execute create session query")
		return err
	}
	return nil
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	log := logger.Log.WithField("session_id", id)
	log.Info("Executing query to get session by id")

	session := &model.Session{}
	var scopes, granted string
	query := `SELECT id, user_id, scopes, granted_scopes, refresh_token_id, created_at, last_active FROM sessions WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&session.ID, &session.UserID, &scopes, &granted,
		&session.RefreshTokenID, &session.CreatedAt, &session.LastActive,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get session by id query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	session.Scopes = model.SplitScopes(scopes)
	session.GrantedScopes = model.SplitScopes(granted)
	return session, nil
}

// GetByRefreshTokenID retrieves the session currently linked to a refresh token.
func (r *SessionRepository) GetByRefreshTokenID(tokenID int) (*model.Session, error) {
	log := logger.Log.WithField("token_id", tokenID)
	log.Info("Executing query to get session by refresh token id")

	session := &model.Session{}
	var scopes, granted string
	query := `SELECT id, user_id, scopes, granted_scopes, refresh_token_id, created_at, last_active FROM sessions WHERE refresh_token_id = $1`
	err := r.DB.QueryRow(query, tokenID).Scan(
		&session.ID, &session.UserID, &scopes, &granted,
		&session.RefreshTokenID, &session.CreatedAt, &session.LastActive,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get session by refresh token id query")
		}
		return nil, err
	}
	session.Scopes = model.SplitScopes(scopes)
	session.GrantedScopes = model.SplitScopes(granted)
	return session, nil
}

// CountByUserID returns the number of sessions a user currently holds.
func (r *SessionRepository) CountByUserID(userID string) (int, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to count sessions for a user")

	var count int
	query := `SELECT COUNT(*) FROM sessions WHERE user_id = $1`
	if err := r.DB.QueryRow(query, userID).Scan(&count); err != nil {
		log.WithError(err).Error("Failed to execute count sessions query")
		return 0, err
	}
	return count, nil
}

// ListByUserID retrieves all sessions for a user.
func (r *SessionRepository) ListByUserID(userID string) ([]*model.Session, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to list sessions for a user")

	query := `SELECT id, user_id, scopes, granted_scopes, refresh_token_id, created_at, last_active FROM sessions WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute list sessions query")
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var s model.Session
		var scopes, granted string
		if err := rows.Scan(&s.ID, &s.UserID, &scopes, &granted, &s.RefreshTokenID, &s.CreatedAt, &s.LastActive); err != nil {
			log.WithError(err).Error("Failed to scan session row")
			return nil, err
		}
		s.Scopes = model.SplitScopes(scopes)
		s.GrantedScopes = model.SplitScopes(granted)
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// ListInfoByUserID retrieves sessions joined with their refresh token expiry,
// in the shape the session-list endpoint returns.
func (r *SessionRepository) ListInfoByUserID(userID string) ([]*model.SessionInfo, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to list session info for a user")

	query := `SELECT s.id, s.scopes, s.granted_scopes, s.created_at, s.last_active, t.expires_at
		FROM sessions s JOIN refresh_tokens t ON t.id = s.refresh_token_id
		WHERE s.user_id = $1 ORDER BY s.created_at`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute list session info query")
		return nil, err
	}
	defer rows.Close()

	var infos []*model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		var scopes, granted string
		if err := rows.Scan(&info.ID, &scopes, &granted, &info.CreatedAt, &info.LastActive, &info.RefreshTokenExpiry); err != nil {
			log.WithError(err).Error("Failed to scan session info row")
			return nil, err
		}
		info.Scopes = model.SplitScopes(scopes)
		info.GrantedScopes = model.SplitScopes(granted)
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// UpdateRefreshToken replaces the session's refresh-token link and bumps
// last_active. Used on every rotation.
func (r *SessionRepository) UpdateRefreshToken(sessionID string, tokenID int) error {
	log := logger.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"token_id":   tokenID,
	})
	log.Info("Executing query to update session refresh token link")

	query := `UPDATE sessions SET refresh_token_id = $1, last_active = now() WHERE id = $2`
	_, err := r.DB.Exec(query, tokenID, sessionID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update session refresh token query")
		return err
	}
	return nil
}

// Delete removes a single session.
func (r *SessionRepository) Delete(id string) error {
	log := logger.Log.WithField("session_id", id)
	log.Info("Executing query to delete session")

	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.DB.Exec(query, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete session query")
		return err
	}
	return nil
}

// DeleteAllForUser removes every session belonging to a user.
func (r *SessionRepository) DeleteAllForUser(userID string) error {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to delete all sessions for a user")

	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.DB.Exec(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete all sessions query")
		return err
	}
	return nil
}
