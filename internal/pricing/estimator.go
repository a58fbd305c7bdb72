// Package pricing asks an LLM completion endpoint for a job price and shapes
// the answer into an Estimate.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	httpTimeout    = 20 * time.Second

	// Discount is applied to every model price before rounding.
	Discount = 0.15
)

// ErrEstimateUnavailable covers every failure to get a usable price: network
// errors, non-2xx responses, malformed JSON and a missing numeric price.
var ErrEstimateUnavailable = errors.New("unable to estimate")

const systemPrompt = `You price home-service jobs in the New York City area for Helpr.
Reply with a single JSON object and nothing else:
{"price": number|null, "needs_clarification": bool, "questions": [string], "safety_concern": bool, "reason": string}

Cleaning price bands (USD, before any discount):
- studio or 1 bedroom: standard 90-130, deep 150-200, move-out 180-240
- 2 bedrooms: standard 130-180, deep 200-270, move-out 240-320
- 3 bedrooms: standard 180-240, deep 270-360, move-out 320-420
- 4+ bedrooms or houses: standard 240-340, deep 360-480, move-out 420-560
Moving: 120 per mover-hour, minimum 2 movers and 2 hours, add 60 per flight of stairs.
Errands and assembly: 45-70 per hour, minimum 1 hour.

If the property size, cleaning depth or item count is missing, set
needs_clarification=true, price=null and ask at most three short questions.
If the task is dangerous or needs a licensed specialist, set
safety_concern=true, price=null and explain in reason.`

// Request is what the customer has told us about the job so far.
type Request struct {
	ServiceType string   `json:"service_type"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	Answers     []string `json:"answers,omitempty"`
}

// Estimate is the shaped result. Exactly one of Price, Clarify and
// SafetyConcern is meaningful.
type Estimate struct {
	Price         float64  `json:"price,omitempty"`
	RawPrice      float64  `json:"raw_price,omitempty"`
	Clarify       bool     `json:"needs_clarification"`
	Questions     []string `json:"questions,omitempty"`
	SafetyConcern bool     `json:"safety_concern"`
	Reason        string   `json:"reason,omitempty"`
}

// Config configures the Estimator. Only APIKey is required.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Hazards    []string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Estimator talks to an OpenAI-compatible chat completions endpoint.
type Estimator struct {
	apiKey  string
	baseURL string
	model   string
	hazards []string
	client  *http.Client
	log     *logging.Logger
}

// NewEstimator fills defaults. A missing key is allowed; Estimate then fails
// with ErrEstimateUnavailable.
func NewEstimator(cfg Config) *Estimator {
	e := &Estimator{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		hazards: cfg.Hazards,
		client:  cfg.HTTPClient,
		log:     cfg.Logger,
	}
	if e.baseURL == "" {
		e.baseURL = defaultBaseURL
	}
	if e.model == "" {
		e.model = defaultModel
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: httpTimeout}
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	return e
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// modelAnswer is the JSON object the prompt asks for. Price is a pointer so a
// null or missing price can be told apart from zero.
type modelAnswer struct {
	Price              *float64 `json:"price"`
	NeedsClarification bool     `json:"needs_clarification"`
	Questions          []string `json:"questions"`
	SafetyConcern      bool     `json:"safety_concern"`
	Reason             string   `json:"reason"`
}

// Estimate makes one completion call, after the optional local hazard screen.
// There is no retry.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	if strings.TrimSpace(req.Description) == "" {
		return &Estimate{Clarify: true, Questions: []string{"What do you need done?"}}, nil
	}
	if term := ContainsHazard(req.ServiceType, req.Description, e.hazards); term != "" {
		return &Estimate{SafetyConcern: true, Reason: fmt.Sprintf("tasks involving %s need a licensed specialist", term)}, nil
	}
	if e.apiKey == "" {
		e.log.Warn("LLM_API_KEY not set, skipping estimate")
		return nil, ErrEstimateUnavailable
	}

	content, err := e.complete(ctx, req)
	if err != nil {
		e.log.Warn("estimate request failed", "serviceType", req.ServiceType, "err", err)
		return nil, ErrEstimateUnavailable
	}
	est, err := ParseAnswer(content)
	if err != nil {
		e.log.Warn("estimate response unusable", "serviceType", req.ServiceType, "err", err)
		return nil, ErrEstimateUnavailable
	}
	return est, nil
}

func (e *Estimator) complete(ctx context.Context, req Request) (string, error) {
	user, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(user)},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http POST: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// ParseAnswer shapes the model's JSON object. Clarification wins over a safety
// concern, which wins over a price.
func ParseAnswer(content string) (*Estimate, error) {
	var a modelAnswer
	if err := json.Unmarshal([]byte(stripFences(content)), &a); err != nil {
		return nil, fmt.Errorf("parse answer: %w", err)
	}
	switch {
	case a.NeedsClarification:
		return &Estimate{Clarify: true, Questions: a.Questions, Reason: a.Reason}, nil
	case a.SafetyConcern:
		return &Estimate{SafetyConcern: true, Reason: a.Reason}, nil
	case a.Price == nil || *a.Price <= 0 || math.IsNaN(*a.Price) || math.IsInf(*a.Price, 0):
		return nil, errors.New("answer has no usable price")
	}
	return &Estimate{Price: Discounted(*a.Price), RawPrice: *a.Price, Reason: a.Reason}, nil
}

// Discounted applies Discount and rounds to whole dollars.
func Discounted(price float64) float64 {
	return math.Round(price * (1 - Discount))
}

// stripFences removes a ```json fence some models wrap around the object.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
