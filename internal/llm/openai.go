package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message used by the orchestrator.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Options tunes a single completion. Zero fields fall back to the provider
// defaults.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client sends a full message history (system + prior turns + latest user)
// and returns the assistant's answer.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ErrEmptyCompletion is returned when the provider answers without content.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// ProviderConfig describes one OpenAI-compatible endpoint.
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// OpenAIClient calls an OpenAI-compatible chat completion API. The same type
// serves OpenAI and Moonshot (kimi) by pointing BaseURL at the provider.
type OpenAIClient struct {
	client   *openai.Client
	name     string
	defaults Options
}

// NewOpenAIClient constructs a client for one provider.
func NewOpenAIClient(cfg ProviderConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		// default to a modern small model; can be overridden via config
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		name:   cfg.Name,
		defaults: Options{
			Model:       model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// Name returns the provider name the client was built for.
func (c *OpenAIClient) Name() string { return c.name }

// Chat sends the message history to the chat completion API and returns the
// assistant's response.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			// coerce anything unknown to user
			role = RoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.defaults.Model,
		Messages:    oaMsgs,
		Temperature: c.defaults.Temperature,
		MaxTokens:   c.defaults.MaxTokens,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
