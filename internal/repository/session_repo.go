package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clipsmith/clipsmith/internal/models"
)

// sessionRepo implements SessionRepository using GORM.
type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) *sessionRepo {
	return &sessionRepo{db: db}
}

// Create creates a new session.
func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by primary key.
func (r *sessionRepo) GetByID(ctx context.Context, id models.ULID) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session by ID: %w", err)
	}
	return &session, nil
}

// GetByKey retrieves a session by its (app_name, user_id, session_id) triple.
func (r *sessionRepo) GetByKey(ctx context.Context, appName, userID, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", appName, userID, sessionID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session by key: %w", err)
	}
	return &session, nil
}

// GetAll retrieves all sessions, newest first.
func (r *sessionRepo) GetAll(ctx context.Context) ([]*models.Session, error) {
	var sessions []*models.Session
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("getting all sessions: %w", err)
	}
	return sessions, nil
}

// GetByUser retrieves all sessions for an app/user pair, newest first.
func (r *sessionRepo) GetByUser(ctx context.Context, appName, userID string) ([]*models.Session, error) {
	var sessions []*models.Session
	err := r.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ?", appName, userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("getting sessions by user: %w", err)
	}
	return sessions, nil
}

// Update updates an existing session.
func (r *sessionRepo) Update(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// Delete deletes a session and its state and versions.
func (r *sessionRepo) Delete(ctx context.Context, id models.ULID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_pk = ?", id).Delete(&models.SessionState{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_pk = ?", id).Delete(&models.SessionVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// sessionStateRepo implements SessionStateRepository using GORM.
type sessionStateRepo struct {
	db *gorm.DB
}

// NewSessionStateRepository creates a new SessionStateRepository.
func NewSessionStateRepository(db *gorm.DB) *sessionStateRepo {
	return &sessionStateRepo{db: db}
}

// Get retrieves the value stored under key, or nil when absent.
func (r *sessionStateRepo) Get(ctx context.Context, sessionPK models.ULID, key string) (*models.SessionState, error) {
	var state models.SessionState
	err := r.db.WithContext(ctx).
		Where("session_pk = ? AND key = ?", sessionPK, key).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session state: %w", err)
	}
	return &state, nil
}

// Set creates or replaces the value stored under key.
func (r *sessionStateRepo) Set(ctx context.Context, sessionPK models.ULID, key, value string) error {
	state := models.SessionState{
		SessionPK: sessionPK,
		Key:       key,
		Value:     value,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_pk"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("setting session state: %w", err)
	}
	return nil
}

// GetAll retrieves all state entries for a session.
func (r *sessionStateRepo) GetAll(ctx context.Context, sessionPK models.ULID) ([]*models.SessionState, error) {
	var states []*models.SessionState
	if err := r.db.WithContext(ctx).Where("session_pk = ?", sessionPK).Find(&states).Error; err != nil {
		return nil, fmt.Errorf("getting all session state: %w", err)
	}
	return states, nil
}

// Delete removes the entry stored under key.
func (r *sessionStateRepo) Delete(ctx context.Context, sessionPK models.ULID, key string) error {
	err := r.db.WithContext(ctx).
		Where("session_pk = ? AND key = ?", sessionPK, key).
		Delete(&models.SessionState{}).Error
	if err != nil {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}

// sessionVersionRepo implements SessionVersionRepository using GORM.
type sessionVersionRepo struct {
	db *gorm.DB
}

// NewSessionVersionRepository creates a new SessionVersionRepository.
func NewSessionVersionRepository(db *gorm.DB) *sessionVersionRepo {
	return &sessionVersionRepo{db: db}
}

// Create records a new version snapshot.
func (r *sessionVersionRepo) Create(ctx context.Context, version *models.SessionVersion) error {
	if err := r.db.WithContext(ctx).Create(version).Error; err != nil {
		return fmt.Errorf("creating session version: %w", err)
	}
	return nil
}

// GetBySession retrieves all versions for a session, oldest first.
func (r *sessionVersionRepo) GetBySession(ctx context.Context, sessionPK models.ULID) ([]*models.SessionVersion, error) {
	var versions []*models.SessionVersion
	err := r.db.WithContext(ctx).
		Where("session_pk = ?", sessionPK).
		Order("version_number ASC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("getting session versions: %w", err)
	}
	return versions, nil
}

// NextVersionNumber returns one past the highest recorded version number.
func (r *sessionVersionRepo) NextVersionNumber(ctx context.Context, sessionPK models.ULID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.SessionVersion{}).
		Where("session_pk = ?", sessionPK).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("getting next version number: %w", err)
	}
	return max + 1, nil
}

// Compile-time interface checks.
var (
	_ SessionRepository        = (*sessionRepo)(nil)
	_ SessionStateRepository   = (*sessionStateRepo)(nil)
	_ SessionVersionRepository = (*sessionVersionRepo)(nil)
)
