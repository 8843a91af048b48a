package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Classifier interface using a local Ollama server
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Classifier instance
// Vision models that follow the JSON instructions well:
//   - llava:1.6
//   - qwen2-vl:7b (good OCR capabilities)
//   - llama3.2-vision
//
// Text mode works with any instruction-tuned model.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow on CPU
		},
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Classify sends the receipt to Ollama and parses the answer
func (o *Ollama) Classify(ctx context.Context, content Content) (*Classification, error) {
	user := ollamaMessage{Role: "user", Content: buildPrompt(content)}
	if content.IsImage() {
		jpegData, err := PrepareImage(content.Image, content.ContentType)
		if err != nil {
			return nil, err
		}
		user.Images = []string{base64.StdEncoding.EncodeToString(jpegData)}
	}

	reqBody := ollamaChatRequest{
		Model:    o.model,
		Stream:   false,
		Format:   "json",
		Messages: []ollamaMessage{{Role: "system", Content: systemPrompt}, user},
		Options:  ollamaOptions{Temperature: temperature, NumPredict: maxResponseTokens},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &FormatError{Reason: "decoding chat response", Err: err}
	}

	return parseClassificationJSON(chatResp.Message.Content)
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
