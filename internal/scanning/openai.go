package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OpenAIConfig configures the OpenAI chat completions classifier.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default https://api.openai.com/v1
	Model   string // e.g. gpt-4o-mini
	Timeout time.Duration
}

// OpenAI implements the Classifier interface using the chat completions API
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI Classifier instance
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAI{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat map[string]any  `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the receipt to the chat completions endpoint and parses the answer
func (o *OpenAI) Classify(ctx context.Context, content Content) (*Classification, error) {
	reqID := uuid.New().String()
	start := time.Now()

	userMsg, err := o.userMessage(content)
	if err != nil {
		return nil, err
	}

	reqBody := openAIRequest{
		Model: o.cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			userMsg,
		},
		Temperature:    temperature,
		MaxTokens:      maxResponseTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	o.logger.Debug("Sending classification request",
		"req_id", reqID,
		"model", o.cfg.Model,
		"image", content.IsImage(),
		"content_length", len(jsonData),
	)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: "openai", Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp openAIResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &FormatError{Reason: "decoding chat response", Content: string(body), Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &FormatError{Reason: "no choices in response", Content: string(body)}
	}

	data, err := parseClassificationJSON(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Classification received",
		"req_id", reqID,
		"lines", len(data.Lines),
		"products", data.Products(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func (o *OpenAI) userMessage(content Content) (openAIMessage, error) {
	prompt := buildPrompt(content)
	if !content.IsImage() {
		return openAIMessage{Role: "user", Content: prompt}, nil
	}

	jpegData, err := PrepareImage(content.Image, content.ContentType)
	if err != nil {
		return openAIMessage{}, err
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)

	return openAIMessage{
		Role: "user",
		Content: []openAIPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL, Detail: "auto"}},
		},
	}, nil
}

// Close closes the OpenAI client (no-op for HTTP client)
func (o *OpenAI) Close() error {
	return nil
}
