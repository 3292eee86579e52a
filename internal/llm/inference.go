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

// InferenceServer implements Seq2Seq against a Hugging Face style inference
// server (text-generation-inference, the HF inference toolkit, or a compatible
// local service) exposing POST {url}/models/{model}.
type InferenceServer struct {
	name   string
	url    string
	client *http.Client
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	MaxNewTokens int    `json:"max_new_tokens,omitempty"`
	MinLength    int    `json:"min_length,omitempty"`
	DoSample     bool   `json:"do_sample"`
	Truncation   string `json:"truncation,omitempty"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type inferenceResult struct {
	SummaryText   string `json:"summary_text"`
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// NewInferenceServer creates a seq2seq client for the server at cfg.URL.
func NewInferenceServer(name string, cfg LocalConfig) (*InferenceServer, error) {
	if cfg.URL == "" {
		return nil, ErrUnavailable{Provider: name, Reason: "inference server URL not configured"}
	}
	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 300 // model cold starts are slow
	}
	url := strings.TrimSuffix(cfg.URL, "/")
	L_debug("inference server created", "name", name, "url", url, "timeout", timeoutSeconds)
	return &InferenceServer{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}, nil
}

// Name returns the client instance name
func (s *InferenceServer) Name() string {
	return s.name
}

// Summarize runs one summarization call and returns the trimmed summary text.
func (s *InferenceServer) Summarize(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("%s: no model specified", s.name)
	}
	body := inferenceRequest{
		Inputs: req.Text,
		Parameters: inferenceParameters{
			MaxNewTokens: req.MaxNewTokens,
			MinLength:    req.MinLength,
			DoSample:     !req.Deterministic,
		},
		Options: inferenceOptions{WaitForModel: true},
	}
	if req.Truncate {
		body.Parameters.Truncation = "only_first"
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", s.name, err)
	}

	endpoint := s.url + "/models/" + req.Model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("%s: status %d: %s", s.name, resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("%s: status %d: %s", s.name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var results []inferenceResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return "", fmt.Errorf("%s: malformed response: %w", s.name, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%s: empty response", s.name)
	}
	text := results[0].SummaryText
	if text == "" {
		text = results[0].GeneratedText
	}

	L_trace("inference: chunk summarized",
		"model", req.Model,
		"maxNewTokens", req.MaxNewTokens,
		"chars", len(text),
		"duration", time.Since(start).Round(time.Millisecond))
	return strings.TrimSpace(text), nil
}
