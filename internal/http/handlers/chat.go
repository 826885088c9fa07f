package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/clipsmith/clipsmith/internal/agent"
)

// ChatHandler handles conversational agent endpoints.
type ChatHandler struct {
	agent   *agent.Agent
	appName string
}

// NewChatHandler creates a new chat handler. appName namespaces the
// sessions the agent operates on.
func NewChatHandler(a *agent.Agent, appName string) *ChatHandler {
	return &ChatHandler{agent: a, appName: appName}
}

// Register registers the chat routes with the API.
func (h *ChatHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      "POST",
		Path:        "/api/v1/agent/chat",
		Summary:     "Chat with the editing agent",
		Description: "Sends a message to the video editing agent, which may add, update, or remove edits and regenerate the video",
		Tags:        []string{"Agent"},
	}, h.Chat)
}

// ChatInput is the input for a chat turn.
type ChatInput struct {
	Body struct {
		UserID    string `json:"user_id" minLength:"1" doc:"User ID"`
		SessionID string `json:"session_id" minLength:"1" doc:"Session ID"`
		FeatureID string `json:"feature_id,omitempty" doc:"Feature configuration selector"`
		Message   string `json:"message" minLength:"1" doc:"The user's message"`
	}
}

// ChatOutput is the output for a chat turn.
type ChatOutput struct {
	Body struct {
		Reply string `json:"reply"`
	}
}

// Chat runs one conversational turn against the agent.
func (h *ChatHandler) Chat(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
	reply, err := h.agent.Chat(ctx, agent.Scope{
		AppName:   h.appName,
		UserID:    input.Body.UserID,
		SessionID: input.Body.SessionID,
		FeatureID: input.Body.FeatureID,
	}, input.Body.Message)
	if err != nil {
		return nil, huma.Error500InternalServerError("agent turn failed", err)
	}

	resp := &ChatOutput{}
	resp.Body.Reply = reply
	return resp, nil
}
