// Package assistant talks to the planning language model through an OpenAI-compatible
// chat-completions endpoint (Gemini by default).
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

const providerName = "gemini"

// SystemInstruction opens every conversation.
const SystemInstruction = "You are an expert urban planning AI assistant."

// Message is one turn of a conversation as the HTTP API exchanges it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is optional framing appended to the system instruction.
type ChatContext struct {
	Context  string
	Location *provider.Coordinates
}

// Client sends chat completions. A Client built without a key reports a
// ConfigurationError on every call instead of failing at startup.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a client for baseURL (an OpenAI-compatible API root).
func NewClient(apiKey, baseURL, model string) *Client {
	c := &Client{model: model}
	if apiKey == "" {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = provider.NewHTTPClient(60 * time.Second)
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// SystemPrompt renders the system instruction with the optional context and location.
func SystemPrompt(cc ChatContext) string {
	var b strings.Builder
	b.WriteString(SystemInstruction)
	if cc.Context != "" {
		fmt.Fprintf(&b, "\nContext: %s", cc.Context)
	}
	if cc.Location != nil {
		fmt.Fprintf(&b, "\nCurrent Location: Latitude %g, Longitude %g. Consider this location's geographic and urban context in your responses.",
			cc.Location.Lat, cc.Location.Lon)
	}
	return b.String()
}

// Chat sends the conversation and returns the model's reply text. Roles other than
// "user" are sent as assistant turns.
func (c *Client) Chat(ctx context.Context, msgs []Message, cc ChatContext) (string, error) {
	if c.api == nil {
		return "", &apperr.ConfigurationError{Key: "GEMINI_API_KEY"}
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(cc)},
		},
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleAssistant
		if m.Role == "user" {
			role = openai.ChatMessageRoleUser
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	start := time.Now()
	provider.LogRequest(providerName, "POST", "chat/completions", map[string]any{"model": c.model, "messages": len(msgs)})
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		provider.LogError(providerName, "chat", err)
		return "", apperr.Provider(providerName, "chat", err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("empty completion")
		provider.LogError(providerName, "chat", err)
		return "", apperr.Provider(providerName, "chat", err)
	}
	provider.LogResponse(providerName, 200, time.Since(start), len(resp.Choices))
	return resp.Choices[0].Message.Content, nil
}

// Ask is shorthand for a single user turn.
func (c *Client) Ask(ctx context.Context, prompt string, cc ChatContext) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, cc)
}

// UrbanOptimization asks for a people-focused infrastructure plan for in.
func (c *Client) UrbanOptimization(ctx context.Context, in OptimizationInput) (string, error) {
	return c.Ask(ctx, OptimizationPrompt(in), ChatContext{Context: "People-focused urban infrastructure optimization and planning"})
}

// PredictCongestion asks for a congestion forecast. Without a current reading it
// returns a fixed explanation and does not call the model.
func (c *Client) PredictCongestion(ctx context.Context, location string, tp TrafficPair) (string, error) {
	if tp.Current == nil {
		return NoTrafficDataText(location), nil
	}
	return c.Ask(ctx, CongestionPrompt(location, tp), ChatContext{Context: "Traffic congestion prediction and urban planning analysis"})
}

// AnalyzeTraffic asks for a free-form traffic analysis of a named place.
func (c *Client) AnalyzeTraffic(ctx context.Context, location string, coords []float64) (string, error) {
	return c.Ask(ctx, fmt.Sprintf("Analyze traffic for %s at %s", location, joinFloats(coords)), ChatContext{})
}

// Optimize asks for a short list of improvement actions for an area.
func (c *Client) Optimize(ctx context.Context, area string, data any) (string, error) {
	return c.Ask(ctx, OptimizePrompt(area, data), ChatContext{})
}
