package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/roelfdiedericks/docsum/internal/logging"
)

// OllamaSeq2Seq implements Seq2Seq on top of a local Ollama server. Ollama
// serves decoder models, so the summarization task is expressed as a prompt
// and the length bounds map to num_predict and an instruction.
type OllamaSeq2Seq struct {
	name   string
	url    string
	client *http.Client
}

// ollamaGenerateRequest is the request body for /api/generate
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

// ollamaOptions contains sampling and length options
type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Seed        int      `json:"seed,omitempty"`
}

// ollamaGenerateResponse is the response from /api/generate
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

const ollamaSystemPrompt = "You summarize documents. Reply with the summary only."

// NewOllamaSeq2Seq creates an Ollama-backed summarizer from LocalConfig.
func NewOllamaSeq2Seq(name string, cfg LocalConfig) (*OllamaSeq2Seq, error) {
	if cfg.URL == "" {
		return nil, ErrUnavailable{Provider: name, Reason: "ollama URL not configured"}
	}
	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 300 // 5 minutes default
	}
	url := strings.TrimSuffix(cfg.URL, "/")
	L_debug("ollama summarizer created", "name", name, "url", url, "timeout", timeoutSeconds)
	return &OllamaSeq2Seq{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}, nil
}

// Name returns the client instance name
func (o *OllamaSeq2Seq) Name() string {
	return o.name
}

// Summarize sends one chunk to /api/generate.
func (o *OllamaSeq2Seq) Summarize(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("%s: no model specified", o.name)
	}

	prompt := "Summarize the following text"
	if req.MinLength > 0 {
		prompt += fmt.Sprintf(" in at least %d words", req.MinLength)
	}
	prompt += ":\n\n" + req.Text

	opts := &ollamaOptions{NumPredict: req.MaxNewTokens}
	if req.Deterministic {
		zero := 0.0
		opts.Temperature = &zero
		opts.TopK = 1
		opts.Seed = 42
	}

	reqBody := ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  prompt,
		System:  ollamaSystemPrompt,
		Stream:  false,
		Options: opts,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", o.name, err)
	}

	url := o.url + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", o.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	L_trace("ollama: request prepared", "url", url, "model", req.Model, "numPredict", req.MaxNewTokens)

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: send request: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s: ollama returned status %d: %s", o.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", o.name, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%s: %s", o.name, result.Error)
	}

	L_debug("ollama: chunk summarized", "model", req.Model, "duration", time.Since(start).Round(time.Millisecond), "responseChars", len(result.Response))
	return strings.TrimSpace(result.Response), nil
}
