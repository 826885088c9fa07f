package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/observability"
)

const systemInstruction = `You are a video editing assistant. You help users edit a video by
adding voiceovers and text overlays, adjusting their timing, removing
edits, and inspecting the current edit queue. Always use the provided
tools to perform edits; never claim an edit happened without calling a
tool. Times are given in milliseconds. After a successful edit, tell the
user the video has been updated and mention what changed.`

// PromptFunc resolves the extra feature-specific instruction for a
// request, if any.
type PromptFunc func(featureID string) string

// Agent drives the tool surface from natural-language chat messages via
// Gemini function calling.
type Agent struct {
	client    *genai.Client
	tools     *Tools
	model     string
	maxRounds int
	promptFor PromptFunc
	logger    *slog.Logger
}

// NewAgent creates a conversational agent. promptFor may be nil when no
// feature configuration is available.
func NewAgent(client *genai.Client, tools *Tools, cfg config.GeminiConfig, maxRounds int, promptFor PromptFunc, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRounds <= 0 {
		maxRounds = 8
	}
	if promptFor == nil {
		promptFor = func(string) string { return "" }
	}
	return &Agent{
		client:    client,
		tools:     tools,
		model:     cfg.AgentModel,
		maxRounds: maxRounds,
		promptFor: promptFor,
		logger:    observability.WithComponent(logger, "agent"),
	}
}

// Chat processes one user message, running tool calls until the model
// produces a final text answer or the round limit is reached.
func (a *Agent) Chat(ctx context.Context, scope Scope, message string) (string, error) {
	instruction := systemInstruction
	if extra := a.promptFor(scope.FeatureID); extra != "" {
		instruction = instruction + "\n\n" + extra
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
		Tools: []*genai.Tool{{FunctionDeclarations: functionDeclarations()}},
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: message}}},
	}

	for round := 0; round < a.maxRounds; round++ {
		resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("generating agent response: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("empty response from agent model")
		}

		content := resp.Candidates[0].Content
		contents = append(contents, content)

		calls := functionCalls(content)
		if len(calls) == 0 {
			return textOf(content), nil
		}

		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			a.logger.Info("executing tool call",
				"tool", call.Name,
				"session_id", scope.SessionID,
			)
			result := a.dispatch(ctx, scope, call)
			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: result.Map(),
				},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responseParts})
	}

	return "", fmt.Errorf("agent did not produce a final answer within %d rounds", a.maxRounds)
}

// dispatch routes a function call to the matching tool operation.
// Unknown tools and bad arguments become structured error results.
func (a *Agent) dispatch(ctx context.Context, scope Scope, call *genai.FunctionCall) ToolResult {
	args := callArgs(call.Args)

	switch call.Name {
	case "add_voiceover_edit":
		return a.tools.AddVoiceoverEdit(ctx, scope,
			args.str("text"),
			args.num("start_ms"),
			args.str("original_video_url"),
		)
	case "update_voiceover_timing":
		return a.tools.UpdateVoiceoverTiming(ctx, scope,
			args.str("edit_id"),
			args.num("new_start_ms"),
		)
	case "add_text_overlay_edit":
		return a.tools.AddTextOverlayEdit(ctx, scope,
			args.str("text"),
			args.num("start_ms"),
			args.num("end_ms"),
			args.str("original_video_url"),
			TextOverlayArgs{
				FontSize: args.num("fontsize"),
				Color:    args.str("color"),
				Position: args.str("position"),
			},
		)
	case "remove_edit":
		return a.tools.RemoveEdit(ctx, scope, args.str("edit_id"))
	case "get_edit_queue_info":
		return a.tools.GetEditQueueInfo(ctx, scope)
	case "find_voiceover_edit":
		return a.tools.FindVoiceoverEdit(ctx, scope)
	default:
		return ToolResult{Status: "error", Message: fmt.Sprintf("unknown tool: %s", call.Name)}
	}
}

// functionCalls collects the function call parts of a content block.
func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// textOf concatenates the text parts of a content block.
func textOf(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// callArgs wraps the loosely-typed argument map of a function call.
type callArgs map[string]any

func (a callArgs) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a callArgs) num(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// functionDeclarations describes the tool surface to the model.
func functionDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "add_voiceover_edit",
			Description: "Add a voiceover edit to the queue and regenerate the video.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":               {Type: genai.TypeString, Description: "The text to convert to speech"},
					"start_ms":           {Type: genai.TypeInteger, Description: "Start time in milliseconds"},
					"original_video_url": {Type: genai.TypeString, Description: "URL of the original video (optional)"},
				},
				Required: []string{"text", "start_ms"},
			},
		},
		{
			Name:        "update_voiceover_timing",
			Description: "Update the timing of an existing voiceover edit and regenerate the video.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"edit_id":      {Type: genai.TypeString, Description: "ID of the edit to update"},
					"new_start_ms": {Type: genai.TypeInteger, Description: "New start time in milliseconds"},
				},
				Required: []string{"edit_id", "new_start_ms"},
			},
		},
		{
			Name:        "add_text_overlay_edit",
			Description: "Add a text overlay edit to the queue and regenerate the video.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":               {Type: genai.TypeString, Description: "Text to display"},
					"start_ms":           {Type: genai.TypeInteger, Description: "Start time in milliseconds"},
					"end_ms":             {Type: genai.TypeInteger, Description: "End time in milliseconds"},
					"original_video_url": {Type: genai.TypeString, Description: "URL of the original video (optional)"},
					"fontsize":           {Type: genai.TypeInteger, Description: "Font size (default 70)"},
					"color":              {Type: genai.TypeString, Description: "Text color (default white)"},
					"position":           {Type: genai.TypeString, Description: "Text position: top, center, or bottom"},
				},
				Required: []string{"text", "start_ms", "end_ms"},
			},
		},
		{
			Name:        "remove_edit",
			Description: "Remove an edit from the queue and regenerate the video.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"edit_id": {Type: genai.TypeString, Description: "ID of the edit to remove"},
				},
				Required: []string{"edit_id"},
			},
		},
		{
			Name:        "get_edit_queue_info",
			Description: "Get information about the current edit queue.",
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
		},
		{
			Name:        "find_voiceover_edit",
			Description: "Find the most recent voiceover edit in the queue.",
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
		},
	}
}
