package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/service"
)

// SessionHandler handles session API endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Register registers the session routes with the API.
func (h *SessionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "createSession",
		Method:      "POST",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}",
		Summary:     "Create session",
		Description: "Creates a new editing session for a user and video",
		Tags:        []string{"Sessions"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "listSessions",
		Method:      "GET",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions",
		Summary:     "List sessions",
		Description: "Returns all sessions for a user",
		Tags:        []string{"Sessions"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      "GET",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}",
		Summary:     "Get session",
		Description: "Returns a session by its key",
		Tags:        []string{"Sessions"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateSession",
		Method:      "PATCH",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}",
		Summary:     "Update session",
		Description: "Updates a session's video and feature bindings",
		Tags:        []string{"Sessions"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSession",
		Method:      "DELETE",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}",
		Summary:     "Delete session",
		Description: "Deletes a session with all of its state and versions",
		Tags:        []string{"Sessions"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "getSessionEditQueue",
		Method:      "GET",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}/edit-queue",
		Summary:     "Get edit queue",
		Description: "Returns the session's current edit queue",
		Tags:        []string{"Sessions"},
	}, h.GetEditQueue)

	huma.Register(api, huma.Operation{
		OperationID: "listSessionVersions",
		Method:      "GET",
		Path:        "/api/v1/apps/{app_name}/users/{user_id}/sessions/{session_id}/versions",
		Summary:     "List session versions",
		Description: "Returns every rendered version snapshot of a session",
		Tags:        []string{"Sessions"},
	}, h.ListVersions)
}

// SessionKeyInput identifies a session by its key triple.
type SessionKeyInput struct {
	AppName   string `path:"app_name" doc:"Application name"`
	UserID    string `path:"user_id" doc:"User ID"`
	SessionID string `path:"session_id" doc:"Session ID"`
}

// SessionResponse is the API representation of a session.
type SessionResponse struct {
	ID        string `json:"id"`
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	VideoID   string `json:"video_id,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	FeatureID string `json:"feature_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SessionFromModel converts a session model to its API representation.
func SessionFromModel(s *models.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID.String(),
		AppName:   s.AppName,
		UserID:    s.UserID,
		SessionID: s.SessionID,
		VideoID:   s.VideoID,
		VideoURL:  s.VideoURL,
		FeatureID: s.FeatureID,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateSessionInput is the input for creating a session.
type CreateSessionInput struct {
	SessionKeyInput
	Body struct {
		VideoID   string `json:"video_id,omitempty" doc:"Identifier of the video being edited"`
		VideoURL  string `json:"video_url,omitempty" doc:"Source video URL"`
		FeatureID string `json:"feature_id,omitempty" doc:"Feature configuration selector"`
	}
}

// CreateSessionOutput is the output for creating a session.
type CreateSessionOutput struct {
	Body SessionResponse
}

// Create creates a new session.
func (h *SessionHandler) Create(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	session := &models.Session{
		AppName:   input.AppName,
		UserID:    input.UserID,
		SessionID: input.SessionID,
		VideoID:   input.Body.VideoID,
		VideoURL:  input.Body.VideoURL,
		FeatureID: input.Body.FeatureID,
	}

	if err := h.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, models.ErrAppNameRequired) ||
			errors.Is(err, models.ErrUserIDRequired) ||
			errors.Is(err, models.ErrSessionIDRequired) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error409Conflict("failed to create session", err)
	}

	return &CreateSessionOutput{Body: SessionFromModel(session)}, nil
}

// ListSessionsInput is the input for listing a user's sessions.
type ListSessionsInput struct {
	AppName string `path:"app_name" doc:"Application name"`
	UserID  string `path:"user_id" doc:"User ID"`
}

// ListSessionsOutput is the output for listing sessions.
type ListSessionsOutput struct {
	Body struct {
		Sessions []SessionResponse `json:"sessions"`
	}
}

// List returns all sessions for a user.
func (h *SessionHandler) List(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	sessions, err := h.sessions.ListByUser(ctx, input.AppName, input.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list sessions", err)
	}

	resp := &ListSessionsOutput{}
	resp.Body.Sessions = make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp.Body.Sessions = append(resp.Body.Sessions, SessionFromModel(s))
	}
	return resp, nil
}

// GetSessionOutput is the output for getting a session.
type GetSessionOutput struct {
	Body SessionResponse
}

// Get returns a session by its key.
func (h *SessionHandler) Get(ctx context.Context, input *SessionKeyInput) (*GetSessionOutput, error) {
	session, err := h.sessions.Get(ctx, input.AppName, input.UserID, input.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s not found", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to get session", err)
	}
	return &GetSessionOutput{Body: SessionFromModel(session)}, nil
}

// UpdateSessionInput is the input for updating a session.
type UpdateSessionInput struct {
	SessionKeyInput
	Body struct {
		VideoID   *string `json:"video_id,omitempty" doc:"Identifier of the video being edited"`
		VideoURL  *string `json:"video_url,omitempty" doc:"Source video URL"`
		FeatureID *string `json:"feature_id,omitempty" doc:"Feature configuration selector"`
	}
}

// UpdateSessionOutput is the output for updating a session.
type UpdateSessionOutput struct {
	Body SessionResponse
}

// Update applies partial changes to a session's bindings.
func (h *SessionHandler) Update(ctx context.Context, input *UpdateSessionInput) (*UpdateSessionOutput, error) {
	session, err := h.sessions.Get(ctx, input.AppName, input.UserID, input.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s not found", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to get session", err)
	}

	if input.Body.VideoID != nil {
		session.VideoID = *input.Body.VideoID
	}
	if input.Body.VideoURL != nil {
		session.VideoURL = *input.Body.VideoURL
	}
	if input.Body.FeatureID != nil {
		session.FeatureID = *input.Body.FeatureID
	}

	if err := h.sessions.Update(ctx, session); err != nil {
		return nil, huma.Error500InternalServerError("failed to update session", err)
	}

	return &UpdateSessionOutput{Body: SessionFromModel(session)}, nil
}

// DeleteSessionOutput is the output for deleting a session.
type DeleteSessionOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// Delete deletes a session.
func (h *SessionHandler) Delete(ctx context.Context, input *SessionKeyInput) (*DeleteSessionOutput, error) {
	if err := h.sessions.Delete(ctx, input.AppName, input.UserID, input.SessionID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s not found", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to delete session", err)
	}

	resp := &DeleteSessionOutput{}
	resp.Body.Message = "session deleted"
	return resp, nil
}

// GetEditQueueOutput is the output for getting a session's edit queue.
type GetEditQueueOutput struct {
	Body models.EditQueue
}

// GetEditQueue returns the session's current edit queue.
func (h *SessionHandler) GetEditQueue(ctx context.Context, input *SessionKeyInput) (*GetEditQueueOutput, error) {
	session, err := h.sessions.Get(ctx, input.AppName, input.UserID, input.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s not found", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to get session", err)
	}

	q, err := h.sessions.LoadEditQueue(ctx, session)
	if err != nil {
		if errors.Is(err, models.ErrNoEditQueue) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s has no edit queue", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to load edit queue", err)
	}

	return &GetEditQueueOutput{Body: *q}, nil
}

// VersionResponse is the API representation of a session version.
type VersionResponse struct {
	VersionNumber int    `json:"version_number"`
	VideoURL      string `json:"video_url"`
	CreatedAt     string `json:"created_at"`
}

// ListVersionsOutput is the output for listing session versions.
type ListVersionsOutput struct {
	Body struct {
		Versions []VersionResponse `json:"versions"`
	}
}

// ListVersions returns every recorded version of a session.
func (h *SessionHandler) ListVersions(ctx context.Context, input *SessionKeyInput) (*ListVersionsOutput, error) {
	session, err := h.sessions.Get(ctx, input.AppName, input.UserID, input.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("session %s not found", input.SessionID))
		}
		return nil, huma.Error500InternalServerError("failed to get session", err)
	}

	versions, err := h.sessions.ListVersions(ctx, session)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list versions", err)
	}

	resp := &ListVersionsOutput{}
	resp.Body.Versions = make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		resp.Body.Versions = append(resp.Body.Versions, VersionResponse{
			VersionNumber: v.VersionNumber,
			VideoURL:      v.VideoURL,
			CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp, nil
}
