package chat

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"salesboard/internal/models"
)

// ErrNoAPIKey is returned by Ask when no key was configured.
var ErrNoAPIKey = errors.New("chat API key not configured; set OPENAI_API_KEY")

// ExternalServiceError is a failure of the chat completion backend.
type ExternalServiceError struct {
	Service string
	Status  int
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s answered with status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

type Config struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxRows      int           `yaml:"max_rows"`
	Timeout      time.Duration `yaml:"timeout"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("chat.", f)
}

func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Endpoint, prefix+"endpoint", "https://api.openai.com/v1", "Base URL of the OpenAI compatible chat completions API.")
	f.StringVar(&cfg.APIKey, prefix+"api-key", os.Getenv("OPENAI_API_KEY"), "API key for the chat API. Defaults to $OPENAI_API_KEY.")
	f.StringVar(&cfg.Model, prefix+"model", "gpt-3.5-turbo", "Chat model to ask.")
	f.StringVar(&cfg.SystemPrompt, prefix+"system-prompt", "Você é um assistente especializado em análise de dados.", "System message sent before every question.")
	f.IntVar(&cfg.MaxRows, prefix+"max-rows", 500, "Maximum number of table rows sent along with a question.")
	f.DurationVar(&cfg.Timeout, prefix+"timeout", time.Minute, "Timeout of a chat completion call.")
}

func (cfg *Config) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("chat endpoint must not be empty")
	}
	if cfg.MaxRows <= 0 {
		return errors.New("chat max rows must be positive")
	}
	return nil
}

// Client answers free-text questions about a table through a chat
// completions endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Ask sends the table and the question and returns the model's answer.
// truncated reports whether only the first MaxRows rows were sent.
func (c *Client) Ask(ctx context.Context, t *models.Table, question string) (answer string, truncated bool, err error) {
	if c.cfg.APIKey == "" {
		return "", false, ErrNoAPIKey
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", false, errors.New("question must not be empty")
	}

	data, truncated, err := Serialize(t, c.cfg.MaxRows)
	if err != nil {
		return "", false, err
	}
	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Os dados carregados são:\n%s\n\nPergunta: %s", data, question)},
		},
	})
	if err != nil {
		return "", false, errors.Wrap(err, "encode chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.cfg.Endpoint, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, &ExternalServiceError{Service: "chat", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, &ExternalServiceError{Service: "chat", Status: resp.StatusCode, Err: err}
	}
	var out completionResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", false, &ExternalServiceError{Service: "chat", Status: resp.StatusCode, Err: errors.New(msg)}
	}
	if decodeErr != nil {
		return "", false, &ExternalServiceError{Service: "chat", Status: resp.StatusCode, Err: errors.Wrap(decodeErr, "decode response")}
	}
	if len(out.Choices) == 0 {
		return "", false, &ExternalServiceError{Service: "chat", Status: resp.StatusCode, Err: errors.New("response has no choices")}
	}
	return out.Choices[0].Message.Content, truncated, nil
}

// Serialize renders at most maxRows rows of t as CSV text.
func Serialize(t *models.Table, maxRows int) (string, bool, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns()); err != nil {
		return "", false, errors.Wrap(err, "serialize table")
	}
	n := t.Len()
	truncated := false
	if maxRows > 0 && n > maxRows {
		n, truncated = maxRows, true
	}
	record := make([]string, len(t.Columns()))
	for i := 0; i < n; i++ {
		for c, v := range t.Row(i) {
			record[c] = v.Key()
		}
		if err := w.Write(record); err != nil {
			return "", false, errors.Wrap(err, "serialize table")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", false, errors.Wrap(err, "serialize table")
	}
	return buf.String(), truncated, nil
}
