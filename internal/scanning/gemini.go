package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini implements the Classifier interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Classifier instance
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxResponseTokens)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Classify sends the receipt to Gemini and parses the answer
func (g *Gemini) Classify(ctx context.Context, content Content) (*Classification, error) {
	parts := []genai.Part{genai.Text(systemPrompt)}
	if content.IsImage() {
		jpegData, err := PrepareImage(content.Image, content.ContentType)
		if err != nil {
			return nil, err
		}
		// genai.ImageData expects just the format suffix, not the full MIME type
		parts = append(parts, genai.ImageData("jpeg", jpegData))
	}
	parts = append(parts, genai.Text(buildPrompt(content)))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &TransportError{Provider: "gemini", StatusCode: googleStatus(err), Body: err.Error(), Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &FormatError{Reason: "no response from gemini"}
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return parseClassificationJSON(responseText.String())
}

// googleStatus extracts the HTTP status from a Google API error, if any.
func googleStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
