package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/vocabmaster/pkg/models"
)

// OpenAIProvider asks a chat-completions endpoint for dictionary entries
type OpenAIProvider struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewOpenAIProvider creates a provider. url and model fall back to the public API defaults.
func NewOpenAIProvider(apiKey, url, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey:      apiKey,
		apiURL:      url,
		model:       model,
		maxTokens:   600,
		temperature: 0.3,
		client:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Message represents a message in the chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// ChatRequest represents a request to the chat-completions API
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents a response from the chat-completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = "You are a concise English dictionary assistant for language learners. Answer with JSON only."

// Lookup asks for the full entry: translation, phonetic, example, mnemonic,
// etymology and cognates
func (p *OpenAIProvider) Lookup(ctx context.Context, headword string) (*models.LookupEntry, error) {
	prompt := fmt.Sprintf(`Describe the English word %q for a learner.
Return JSON: {"word": string, "translation": string, "phonetic": string, "example": string,
"mnemonic": string, "etymology": [{"part": string, "type": "prefix"|"root"|"suffix", "meaning": string}],
"cognates": [string]}. If it is not an English word return {"word": ""}.`, headword)
	return p.ask(ctx, prompt)
}

// QuickDefine asks only for translation, phonetic and example
func (p *OpenAIProvider) QuickDefine(ctx context.Context, headword string) (*models.LookupEntry, error) {
	prompt := fmt.Sprintf(`Define the English word %q briefly.
Return JSON: {"word": string, "translation": string, "phonetic": string, "example": string}.
If it is not an English word return {"word": ""}.`, headword)
	return p.ask(ctx, prompt)
}

func (p *OpenAIProvider) ask(ctx context.Context, prompt string) (*models.LookupEntry, error) {
	request := ChatRequest{
		Model: p.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      p.maxTokens,
		Temperature:    p.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```json"), "```")

	var entry models.LookupEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &entry); err != nil {
		return nil, fmt.Errorf("failed to parse entry: %w", err)
	}
	if strings.TrimSpace(entry.Headword) == "" {
		return nil, nil
	}
	return &entry, nil
}
