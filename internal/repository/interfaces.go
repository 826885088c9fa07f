// Package repository defines data access interfaces for clipsmith entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/clipsmith/clipsmith/internal/models"
)

// SessionRepository defines operations for session persistence.
type SessionRepository interface {
	// Create creates a new session.
	Create(ctx context.Context, session *models.Session) error
	// GetByID retrieves a session by primary key.
	GetByID(ctx context.Context, id models.ULID) (*models.Session, error)
	// GetByKey retrieves a session by its (app_name, user_id, session_id) triple.
	GetByKey(ctx context.Context, appName, userID, sessionID string) (*models.Session, error)
	// GetAll retrieves all sessions, newest first.
	GetAll(ctx context.Context) ([]*models.Session, error)
	// GetByUser retrieves all sessions for an app/user pair, newest first.
	GetByUser(ctx context.Context, appName, userID string) ([]*models.Session, error)
	// Update updates an existing session.
	Update(ctx context.Context, session *models.Session) error
	// Delete deletes a session and its state and versions.
	Delete(ctx context.Context, id models.ULID) error
}

// SessionStateRepository defines operations for the per-session key/value state.
type SessionStateRepository interface {
	// Get retrieves the value stored under key, or nil when absent.
	Get(ctx context.Context, sessionPK models.ULID, key string) (*models.SessionState, error)
	// Set creates or replaces the value stored under key.
	Set(ctx context.Context, sessionPK models.ULID, key, value string) error
	// GetAll retrieves all state entries for a session.
	GetAll(ctx context.Context, sessionPK models.ULID) ([]*models.SessionState, error)
	// Delete removes the entry stored under key.
	Delete(ctx context.Context, sessionPK models.ULID, key string) error
}

// SessionVersionRepository defines operations for rendered-output snapshots.
type SessionVersionRepository interface {
	// Create records a new version snapshot.
	Create(ctx context.Context, version *models.SessionVersion) error
	// GetBySession retrieves all versions for a session, oldest first.
	GetBySession(ctx context.Context, sessionPK models.ULID) ([]*models.SessionVersion, error)
	// NextVersionNumber returns one past the highest recorded version number.
	NextVersionNumber(ctx context.Context, sessionPK models.ULID) (int, error)
}
