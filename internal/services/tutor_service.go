package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"grammarbuddy/internal/models"
	"grammarbuddy/internal/prompts"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// ErrNoDutchFound is returned when a screenshot contains no Dutch text.
var ErrNoDutchFound = errors.New("no dutch text found in screenshot")

// UpstreamError carries a user-facing message for a failed model call,
// keyed off the upstream HTTP status. Handlers propagate the status and
// show the message in place of the expected result.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// TutorService proxies the language-model operations: translation,
// word-by-word breakdown, grammar chat, and screenshot text extraction.
// Each call is a single stateless request to the Anthropic messages API.
type TutorService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	prompts    *prompts.Provider
}

// NewTutorService creates the service. The 60s timeout bounds every
// outbound call; the original relied on transport defaults.
func NewTutorService(apiKey, model string, promptProvider *prompts.Provider) *TutorService {
	return &TutorService{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: anthropicMessagesURL,
		apiKey:  apiKey,
		model:   model,
		prompts: promptProvider,
	}
}

// anthropic message content block; Text for text blocks, Source for images.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

// Translate returns the English translation of a Dutch phrase, and nothing
// else; the prompt forbids quotes and preamble.
func (s *TutorService) Translate(ctx context.Context, phrase string) (string, error) {
	prompt := fmt.Sprintf(s.prompts.Current().Translate, strings.TrimSpace(phrase))

	text, err := s.complete(ctx, "translate", anthropicRequest{
		Model:     s.model,
		MaxTokens: 300,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Breakdown returns the word-by-word breakdown for a phrase and its
// translation, parsed from the model's JSON output.
func (s *TutorService) Breakdown(ctx context.Context, phrase, translation string) ([]models.BreakdownToken, error) {
	prompt := fmt.Sprintf(s.prompts.Current().Breakdown, strings.TrimSpace(phrase), translation)

	text, err := s.complete(ctx, "breakdown", anthropicRequest{
		Model:     s.model,
		MaxTokens: 500,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	// Models occasionally wrap the array in a fenced block despite the
	// instructions.
	clean := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))

	var breakdown []models.BreakdownToken
	if err := json.Unmarshal([]byte(clean), &breakdown); err != nil {
		log.Printf("⚠️ [TUTOR] Unparseable breakdown output: %q", clean)
		return nil, fmt.Errorf("failed to parse breakdown: %w", err)
	}
	return breakdown, nil
}

// Chat returns the tutor's next reply in a grammar conversation. The phrase
// and translation are baked into the first user message so the model has
// context without a server-side conversation record.
func (s *TutorService) Chat(ctx context.Context, phrase, translation string, messages []models.ChatMessage) (string, error) {
	contextPrefix := fmt.Sprintf(s.prompts.Current().ChatContext, strings.TrimSpace(phrase), translation)

	apiMessages := make([]anthropicMessage, 0, len(messages))
	for i, msg := range messages {
		content := msg.Content
		if i == 0 && msg.Role == "user" {
			content = contextPrefix + content
		}
		apiMessages = append(apiMessages, anthropicMessage{Role: msg.Role, Content: content})
	}

	return s.complete(ctx, "chat", anthropicRequest{
		Model:     s.model,
		MaxTokens: 1000,
		System:    s.prompts.Current().TutorSystem,
		Messages:  apiMessages,
	})
}

// ParseScreenshot extracts the Dutch phrases from a base64-encoded image,
// one per line. Returns ErrNoDutchFound when the model reports none.
func (s *TutorService) ParseScreenshot(ctx context.Context, imageB64, mediaType string) ([]string, error) {
	if mediaType == "" {
		mediaType = "image/png"
	}

	text, err := s.complete(ctx, "screenshot", anthropicRequest{
		Model:     s.model,
		MaxTokens: 300,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: mediaType,
							Data:      imageB64,
						},
					},
					{Type: "text", Text: s.prompts.Current().Screenshot},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if text == "NO_DUTCH_FOUND" {
		return nil, ErrNoDutchFound
	}

	var phrases []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			phrases = append(phrases, line)
		}
	}
	if len(phrases) == 0 {
		return nil, ErrNoDutchFound
	}
	return phrases, nil
}

// complete sends one messages-API request and returns the concatenated
// text blocks of the response, trimmed.
func (s *TutorService) complete(ctx context.Context, operation string, reqBody anthropicRequest) (string, error) {
	start := time.Now()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.count(operation, "transport_error")
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.count(operation, "transport_error")
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if m := GetMetrics(); m != nil {
		m.LLMLatency.Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [TUTOR] %s failed: %d - %s", operation, resp.StatusCode, string(respBody))
		s.count(operation, fmt.Sprintf("%d", resp.StatusCode))
		return "", upstreamErrorFor(resp.StatusCode, respBody)
	}
	s.count(operation, "ok")

	var apiResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (s *TutorService) count(operation, outcome string) {
	if m := GetMetrics(); m != nil {
		m.LLMRequests.WithLabelValues(operation, outcome).Inc()
	}
}

// upstreamErrorFor maps an upstream failure to the message shown to the
// user in place of the result.
func upstreamErrorFor(status int, body []byte) *UpstreamError {
	var parsed struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	message := "Request failed. Please try again."
	switch {
	case status == 401:
		message = "Invalid API key. Check your ANTHROPIC_API_KEY environment variable."
	case status == 403:
		message = "API key doesn't have permission. Check your key at console.anthropic.com."
	case status == 429:
		message = "Rate limited — too many requests. Wait a moment and try again."
	case status == 529:
		message = "Anthropic's API is temporarily overloaded. Try again in a minute."
	case parsed.Error.Type == "insufficient_credits" || strings.Contains(parsed.Error.Message, "credit"):
		message = "API credits depleted. Top up at console.anthropic.com/settings/billing."
	}

	return &UpstreamError{Status: status, Message: message}
}
