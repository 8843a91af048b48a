package config

import (
	"github.com/peterbourgon/ff/v4"
)

// RegisterFlags adds the tesseract flags to fs, using the current values as defaults.
func (c *OCRConfig) RegisterFlags(fs *ff.FlagSet) {
	fs.StringVar(&c.Binary, 0, "tesseract", c.Binary, "Tesseract executable")
	fs.StringVar(&c.Lang, 0, "ocr-lang", c.Lang, "Tesseract language(s)")
	fs.StringVar(&c.TessdataDir, 0, "tessdata-dir", c.TessdataDir, "Tesseract tessdata directory (optional)")
	fs.IntVar(&c.PSM, 0, "ocr-psm", c.PSM, "Tesseract page segmentation mode (0 keeps tesseract's default)")
}

// RegisterFlags adds the oracle flags to fs, using the current values as defaults.
func (c *OracleConfig) RegisterFlags(fs *ff.FlagSet) {
	fs.StringVar(&c.Provider, 0, "provider", c.Provider, "Oracle provider: 'openai', 'gemini' or 'ollama'")
	fs.StringVar(&c.OpenAIKey, 0, "openai-key", c.OpenAIKey, "OpenAI API key")
	fs.StringVar(&c.OpenAIBaseURL, 0, "openai-url", c.OpenAIBaseURL, "OpenAI compatible API base URL")
	fs.StringVar(&c.OpenAIModel, 0, "openai-model", c.OpenAIModel, "OpenAI model name")
	fs.StringVar(&c.GeminiKey, 0, "gemini-key", c.GeminiKey, "Google Gemini API key")
	fs.StringVar(&c.GeminiModel, 0, "gemini-model", c.GeminiModel, "Google Gemini model name")
	fs.StringVar(&c.OllamaURL, 0, "ollama-url", c.OllamaURL, "Ollama API base URL")
	fs.StringVar(&c.OllamaModel, 0, "ollama-model", c.OllamaModel, "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
	fs.DurationVar(&c.Timeout, 0, "oracle-timeout", c.Timeout, "Timeout of one oracle request")
	fs.IntVar(&c.MaxAttempts, 0, "max-attempts", c.MaxAttempts, "Oracle attempts per receipt")
	fs.DurationVar(&c.RateLimitWait, 0, "rate-limit-wait", c.RateLimitWait, "Wait after a rate limited oracle call")
	fs.DurationVar(&c.BaseDelay, 0, "base-delay", c.BaseDelay, "First backoff delay after an oracle failure")
	fs.DurationVar(&c.Pace, 0, "pace", c.Pace, "Minimum gap between oracle submissions")
}

// RegisterFlags adds the logging flags to fs.
func (c *LogConfig) RegisterFlags(fs *ff.FlagSet) {
	if c.Level == "" {
		c.Level = "info"
	}
	fs.StringVar(&c.Level, 0, "log-level", c.Level, "Log level: debug, info, warn or error")
	fs.BoolVar(&c.JSON, 0, "log-json", "Write logs as JSON")
}
