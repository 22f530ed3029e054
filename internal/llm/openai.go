package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint. Any OpenAI-compatible
	// server works via WithBaseURL.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultTimeout = 30 * time.Second

	generateTemperature = 0.1
	explainTemperature  = 0.2
)

// OpenAI is a Client backed by the OpenAI chat-completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Option configures an OpenAI client.
type Option func(*OpenAI)

// WithBaseURL points the client at an alternative API endpoint.
func WithBaseURL(url string) Option {
	return func(o *OpenAI) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(o *OpenAI) {
		if d > 0 {
			o.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenAI) {
		if c != nil {
			o.client = c
		}
	}
}

// NewOpenAI creates a chat-completions client.
func NewOpenAI(apiKey, model string, opts ...Option) *OpenAI {
	o := &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateSQL asks the model for a single SQL statement and strips any code
// fence from the reply.
func (o *OpenAI) GenerateSQL(ctx context.Context, req Request) (string, error) {
	content, err := o.complete(ctx, generateTemperature, []chatMessage{
		{Role: "system", Content: generatorPrompt},
		{Role: "user", Content: userContent(req)},
	})
	if err != nil {
		return "", err
	}
	return stripFences(content), nil
}

// Explain asks the model for a short explanation of a result preview.
func (o *OpenAI) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	return o.complete(ctx, explainTemperature, []chatMessage{
		{Role: "system", Content: explainerPrompt},
		{Role: "user", Content: explainContent(req)},
	})
}

// Ping performs a cheap authenticated request to verify the credential and
// endpoint without spending completion tokens.
func (o *OpenAI) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return &ProviderError{Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return &ProviderError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	return nil
}

func (o *OpenAI) complete(ctx context.Context, temperature float64, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", &ProviderError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ProviderError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Message: "response contained no choices"}
	}

	return parsed.Choices[0].Message.Content, nil
}

// readErrorMessage extracts the provider's error message from a non-200
// response body, falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(bytes.TrimSpace(raw))
}
