package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultChatModel = "gpt-3.5-turbo"

// Agent is the generative capability: it turns a question plus retrieved
// context into a natural-language answer via an OpenAI-compatible
// chat-completions endpoint.
type Agent struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func New(cfg Config) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Agent{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate builds the prompt from the retrieved passages (most similar first)
// and asks the chat model for an answer. Temperature stays low so answers are
// factual rather than creative.
func (a *Agent) Generate(ctx context.Context, question string, passages []string) (string, error) {
	start := time.Now()
	defer func() {
		fmt.Printf("[AGENT] answer took %v\n", time.Since(start))
	}()

	prompt := buildPrompt(question, passages)

	if count, err := CountTokens(a.model, prompt); err == nil {
		fmt.Printf("[AGENT] prompt size: %d tokens\n", count)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: "You are a helpful virtual teaching assistant for a data science course. " +
					"Answer questions using only the provided context and cite nothing you cannot find there.",
			},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty completion returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func buildPrompt(question string, passages []string) string {
	context := strings.Join(passages, "\n\n")
	if context == "" {
		context = "empty"
	}
	return fmt.Sprintf(`Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the question. If the context does not contain the answer, say so.
Question: %s
Answer:`, context, question)
}

// CountTokens reports the token length of text under the given model's
// encoding, for prompt budget logging.
func CountTokens(model, text string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
