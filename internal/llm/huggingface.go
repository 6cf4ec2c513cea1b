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
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models"

// HuggingFaceProvider calls a hosted text-generation inference endpoint.
// The endpoint answers with one of several JSON shapes depending on the
// model's task, so Content is passed through untouched for NormalizeText.
type HuggingFaceProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewHuggingFaceProvider creates a provider for the given model repository id.
func NewHuggingFaceProvider(cfg HuggingFaceConfig, model string) (*HuggingFaceProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("huggingface model is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	return &HuggingFaceProvider{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
		model:      model,
	}, nil
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           *float64 `json:"top_p,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	payload := hfRequest{
		Inputs: flattenPrompt(req),
		Parameters: hfParameters{
			MaxNewTokens: req.MaxTokens,
		},
	}
	if req.Temperature > 0 {
		payload.Parameters.Temperature = &req.Temperature
	}
	if req.TopP > 0 {
		payload.Parameters.TopP = &req.TopP
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+p.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapHuggingFaceError(resp.StatusCode, raw)
	}

	return &Response{
		Content:    json.RawMessage(raw),
		Model:      p.model,
		StopReason: "end",
	}, nil
}

func (p *HuggingFaceProvider) ModelID() string {
	return p.model
}

// flattenPrompt renders a Request as a single text prompt.
func flattenPrompt(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for i, m := range req.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

func mapHuggingFaceError(status int, raw []byte) error {
	var body hfError
	_ = json.Unmarshal(raw, &body)

	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	err := fmt.Errorf("huggingface: status %d: %s", status, msg)

	if status == http.StatusServiceUnavailable || strings.Contains(strings.ToLower(msg), "loading") {
		return &ErrModelLoading{
			EstimatedTime: time.Duration(body.EstimatedTime * float64(time.Second)),
			Err:           err,
		}
	}
	return mapStatusError(status, err)
}
