package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	maxTokens   = 500
	temperature = 0.3
)

// Provider turns a prompt into generated text
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// postJSON sends payload and decodes a 200 response into out
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIProvider calls the chat completions API
type openAIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func (p *openAIProvider) Name() string  { return "openai" }
func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("openai API key not configured")
	}

	var result struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	err := postJSON(ctx, p.client, strings.TrimRight(p.baseURL, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		map[string]any{
			"model":       p.model,
			"messages":    []chatMessage{{Role: "user", Content: prompt}},
			"max_tokens":  maxTokens,
			"temperature": temperature,
		}, &result)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// anthropicProvider calls the messages API
type anthropicProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("anthropic API key not configured")
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	err := postJSON(ctx, p.client, strings.TrimRight(p.baseURL, "/")+"/messages",
		map[string]string{
			"x-api-key":         p.apiKey,
			"anthropic-version": "2023-06-01",
		},
		map[string]any{
			"model":      p.model,
			"max_tokens": maxTokens,
			"messages":   []chatMessage{{Role: "user", Content: prompt}},
		}, &result)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty content")
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}

// localProvider calls an Ollama-style generate endpoint
type localProvider struct {
	client *http.Client
	url    string
	model  string
}

func (p *localProvider) Name() string  { return "local" }
func (p *localProvider) Model() string { return p.model }

func (p *localProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var result struct {
		Response string `json:"response"`
	}
	err := postJSON(ctx, p.client, p.url, nil, map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}, &result)
	if err != nil {
		return "", fmt.Errorf("local model: %w", err)
	}
	return strings.TrimSpace(result.Response), nil
}
