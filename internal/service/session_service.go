// Package service provides the business logic layer for clipsmith
// operations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/repository"
)

// EditQueueStateKey is the session-state key the edit queue is stored
// under.
const EditQueueStateKey = "edit_queue"

// SessionService manages sessions, their key/value state, and version
// snapshots.
type SessionService struct {
	sessionRepo repository.SessionRepository
	stateRepo   repository.SessionStateRepository
	versionRepo repository.SessionVersionRepository
	logger      *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	stateRepo repository.SessionStateRepository,
	versionRepo repository.SessionVersionRepository,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		stateRepo:   stateRepo,
		versionRepo: versionRepo,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger for the service.
func (s *SessionService) WithLogger(logger *slog.Logger) *SessionService {
	s.logger = logger
	return s
}

// Create creates a new session. The (app_name, user_id, session_id)
// triple must be unique.
func (s *SessionService) Create(ctx context.Context, session *models.Session) error {
	if session.AppName == "" {
		return models.ErrAppNameRequired
	}
	if session.UserID == "" {
		return models.ErrUserIDRequired
	}
	if session.SessionID == "" {
		return models.ErrSessionIDRequired
	}

	existing, err := s.sessionRepo.GetByKey(ctx, session.AppName, session.UserID, session.SessionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("session %s/%s/%s already exists", session.AppName, session.UserID, session.SessionID)
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return err
	}

	s.logger.Info("created session",
		"id", session.ID.String(),
		"session_id", session.SessionID,
		"user_id", session.UserID,
	)
	return nil
}

// Get retrieves a session by its key triple.
func (s *SessionService) Get(ctx context.Context, appName, userID, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByKey(ctx, appName, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate retrieves a session, creating it when absent.
func (s *SessionService) GetOrCreate(ctx context.Context, appName, userID, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByKey(ctx, appName, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session = &models.Session{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}
	if err := s.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// List retrieves all sessions.
func (s *SessionService) List(ctx context.Context) ([]*models.Session, error) {
	return s.sessionRepo.GetAll(ctx)
}

// ListByUser retrieves all sessions for an app/user pair.
func (s *SessionService) ListByUser(ctx context.Context, appName, userID string) ([]*models.Session, error) {
	return s.sessionRepo.GetByUser(ctx, appName, userID)
}

// Update persists session field changes.
func (s *SessionService) Update(ctx context.Context, session *models.Session) error {
	return s.sessionRepo.Update(ctx, session)
}

// Delete removes a session and all of its state and versions.
func (s *SessionService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	session, err := s.Get(ctx, appName, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		return err
	}
	s.logger.Info("deleted session", "session_id", sessionID, "user_id", userID)
	return nil
}

// GetState returns the raw JSON value stored under key, or nil when
// absent.
func (s *SessionService) GetState(ctx context.Context, session *models.Session, key string) (json.RawMessage, error) {
	state, err := s.stateRepo.Get(ctx, session.ID, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return json.RawMessage(state.Value), nil
}

// SetState stores a JSON value under key.
func (s *SessionService) SetState(ctx context.Context, session *models.Session, key string, value json.RawMessage) error {
	return s.stateRepo.Set(ctx, session.ID, key, string(value))
}

// LoadEditQueue returns the session's edit queue, or ErrNoEditQueue when
// none has been initialized.
func (s *SessionService) LoadEditQueue(ctx context.Context, session *models.Session) (*models.EditQueue, error) {
	raw, err := s.GetState(ctx, session, EditQueueStateKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, models.ErrNoEditQueue
	}
	q, err := models.UnmarshalQueue(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding edit queue: %w", err)
	}
	return q, nil
}

// SaveEditQueue persists the edit queue under its fixed state key.
func (s *SessionService) SaveEditQueue(ctx context.Context, session *models.Session, q *models.EditQueue) error {
	raw, err := models.MarshalQueue(q)
	if err != nil {
		return fmt.Errorf("encoding edit queue: %w", err)
	}
	return s.SetState(ctx, session, EditQueueStateKey, raw)
}

// RecordVersion snapshots the session's rendered output under the next
// version number.
func (s *SessionService) RecordVersion(ctx context.Context, session *models.Session, videoURL string, snapshot json.RawMessage) (*models.SessionVersion, error) {
	n, err := s.versionRepo.NextVersionNumber(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	version := &models.SessionVersion{
		SessionPK:     session.ID,
		VersionNumber: n,
		VideoURL:      videoURL,
		StateSnapshot: string(snapshot),
	}
	if err := s.versionRepo.Create(ctx, version); err != nil {
		return nil, err
	}

	s.logger.Debug("recorded session version",
		"session_id", session.SessionID,
		"version", n,
	)
	return version, nil
}

// ListVersions returns all recorded versions for a session.
func (s *SessionService) ListVersions(ctx context.Context, session *models.Session) ([]*models.SessionVersion, error) {
	return s.versionRepo.GetBySession(ctx, session.ID)
}
