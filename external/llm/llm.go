// Package llm wraps the go-openai chat client behind the narrow LlmClient
// seam spec.md §6 assigns the LLM: it renders prose from a system prompt
// and message history, never the source of truth for any decision.
// Grounded on the teacher's ai.LLMService (ai/llm.go), trimmed down since
// tool-calling and streaming have no ConvergeAI caller.
package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one turn of chat history handed to the model.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Client is the LlmClient seam of spec.md §6.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, messages []Message, maxTokens int) (string, error)
}

// Config configures the OpenAI-compatible provider backing Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

type client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// New builds a go-openai-backed Client.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key required")
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	conf.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	return &client{
		api:         openai.NewClientWithConfig(conf),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *client) Generate(ctx context.Context, systemPrompt string, messages []Message, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range messages {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		Messages:    chatMsgs,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
