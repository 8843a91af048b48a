// Package config gathers the command line settings into validated structs
// and builds the extraction components they describe.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Extraction modes.
const (
	ModeParser = "parser"
	ModeVision = "vision"
	ModeText   = "text"
)

// Oracle providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// OCRConfig configures the tesseract collaborator.
type OCRConfig struct {
	Binary      string `flag:"tesseract" validate:"required"`
	Lang        string `flag:"ocr-lang" validate:"required"`
	TessdataDir string `flag:"tessdata-dir" validate:"omitempty,dir"`
	PSM         int    `flag:"ocr-psm" validate:"min=0,max=13"`
}

// OracleConfig selects and tunes the classification oracle.
type OracleConfig struct {
	Provider string `flag:"provider" validate:"oneof=openai gemini ollama"`

	OpenAIKey     string `flag:"openai-key" validate:"required_if=Provider openai"`
	OpenAIBaseURL string `flag:"openai-url" validate:"omitempty,url"`
	OpenAIModel   string `flag:"openai-model"`

	GeminiKey   string `flag:"gemini-key" validate:"required_if=Provider gemini"`
	GeminiModel string `flag:"gemini-model"`

	OllamaURL   string `flag:"ollama-url" validate:"omitempty,url"`
	OllamaModel string `flag:"ollama-model"`

	Timeout       time.Duration `flag:"oracle-timeout" validate:"gt=0"`
	MaxAttempts   int           `flag:"max-attempts" validate:"min=1,max=10"`
	RateLimitWait time.Duration `flag:"rate-limit-wait" validate:"min=0"`
	BaseDelay     time.Duration `flag:"base-delay" validate:"min=0"`
	Pace          time.Duration `flag:"pace" validate:"min=0"`
}

// Batch is the configuration of a directory run.
type Batch struct {
	InputDir string `flag:"dir" validate:"required,dir"`
	Mode     string `flag:"mode" validate:"oneof=parser vision text"`
	Parallel bool   `flag:"parallel"`
	Workers  int    `flag:"workers" validate:"min=1,max=32"`

	CSVPath  string `flag:"csv" validate:"required_without_all=XLSXPath DBPath"`
	XLSXPath string `flag:"xlsx"`
	DBPath   string `flag:"db"`

	OCR    OCRConfig
	Oracle OracleConfig

	Log LogConfig
}

// Server is the configuration of the HTTP surface.
type Server struct {
	Port        int    `flag:"port" validate:"min=1,max=65535"`
	DBPath      string `flag:"db" validate:"required"`
	StoragePath string `flag:"storage" validate:"required"`
	Mode        string `flag:"mode" validate:"oneof=parser vision text"`
	AuthUser    string `flag:"auth-user" validate:"required_with=AuthPass"`
	AuthPass    string `flag:"auth-pass" validate:"required_with=AuthUser"`

	OCR    OCRConfig
	Oracle OracleConfig

	Log LogConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level string `flag:"log-level" validate:"oneof=debug info warn error"`
	JSON  bool   `flag:"log-json"`
}

// DefaultOCR returns tesseract reading Finnish and English.
func DefaultOCR() OCRConfig {
	return OCRConfig{Binary: "tesseract", Lang: "fin+eng"}
}

// DefaultOracle returns the OpenAI oracle with three attempts and one second pacing.
func DefaultOracle() OracleConfig {
	return OracleConfig{
		Provider:      ProviderOpenAI,
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIModel:   "gpt-4o-mini",
		GeminiModel:   "gemini-1.5-flash",
		OllamaURL:     "http://localhost:11434",
		OllamaModel:   "llava",
		Timeout:       120 * time.Second,
		MaxAttempts:   3,
		RateLimitWait: 60 * time.Second,
		BaseDelay:     time.Second,
		Pace:          time.Second,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report flag names rather than Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("flag"); name != "" {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// Validate checks the batch configuration. Oracle settings are ignored in parser mode.
func (c *Batch) Validate() error {
	return check(c, c.Mode)
}

// Validate checks the server configuration. Oracle settings are ignored in parser mode.
func (c *Server) Validate() error {
	return check(c, c.Mode)
}

func check(c any, mode string) error {
	var err error
	if mode == ModeParser {
		err = getValidator().StructExcept(c, "Oracle")
	} else {
		err = getValidator().Struct(c)
	}
	return describe(err)
}

// describe turns validator errors into one readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("--%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("--%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
