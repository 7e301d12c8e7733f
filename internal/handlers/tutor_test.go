package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"grammarbuddy/internal/models"
	"grammarbuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// fakeTutor returns canned results, or err when set.
type fakeTutor struct {
	translation string
	breakdown   []models.BreakdownToken
	reply       string
	phrases     []string
	err         error
}

func (f *fakeTutor) Translate(_ context.Context, _ string) (string, error) {
	return f.translation, f.err
}

func (f *fakeTutor) Breakdown(_ context.Context, _, _ string) ([]models.BreakdownToken, error) {
	return f.breakdown, f.err
}

func (f *fakeTutor) Chat(_ context.Context, _, _ string, _ []models.ChatMessage) (string, error) {
	return f.reply, f.err
}

func (f *fakeTutor) ParseScreenshot(_ context.Context, _, _ string) ([]string, error) {
	return f.phrases, f.err
}

func newTutorApp(tutor Tutor) *fiber.App {
	app := fiber.New()
	handler := NewTutorHandler(tutor)
	app.Post("/api/translate", handler.Translate)
	app.Post("/api/breakdown", handler.Breakdown)
	app.Post("/api/chat", handler.Chat)
	app.Post("/api/parse-screenshot", handler.ParseScreenshot)
	return app
}

func postBody(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func TestTranslateEndpoint(t *testing.T) {
	t.Run("empty phrase rejected", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{})
		resp := postBody(t, app, "/api/translate", map[string]string{"phrase": "   "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("returns translation", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{translation: "I find the cheese tasty."})
		resp := postBody(t, app, "/api/translate", map[string]string{"phrase": "Ik vind de kaas lekker."})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		if body["translation"] != "I find the cheese tasty." {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("upstream status and message propagate", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{err: &services.UpstreamError{
			Status:  429,
			Message: "Rate limited — too many requests. Wait a moment and try again.",
		}})
		resp := postBody(t, app, "/api/translate", map[string]string{"phrase": "hallo"})
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429 to propagate, got %d", resp.StatusCode)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		if body["error"] != "Rate limited — too many requests. Wait a moment and try again." {
			t.Errorf("unexpected error message: %q", body["error"])
		}
	})

	t.Run("other errors become a 500 with the fallback message", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{err: context.DeadlineExceeded})
		resp := postBody(t, app, "/api/translate", map[string]string{"phrase": "hallo"})
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		if body["error"] != "Translation failed. Please try again." {
			t.Errorf("unexpected error message: %q", body["error"])
		}
	})
}

func TestChatEndpointRequiresMessages(t *testing.T) {
	app := newTutorApp(&fakeTutor{reply: "ignored"})
	resp := postBody(t, app, "/api/chat", map[string]interface{}{
		"dutchPhrase": "De kaas",
		"translation": "The cheese",
		"messages":    []string{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty conversation, got %d", resp.StatusCode)
	}
}

func TestParseScreenshotEndpoint(t *testing.T) {
	t.Run("missing image rejected", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{})
		resp := postBody(t, app, "/api/parse-screenshot", map[string]string{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("no dutch found is a friendly 400", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{err: services.ErrNoDutchFound})
		resp := postBody(t, app, "/api/parse-screenshot", map[string]string{"image": "aGVsbG8="})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		if body["error"] == "" {
			t.Error("expected a human-readable message")
		}
	})

	t.Run("multiple phrases become a selectable list", func(t *testing.T) {
		app := newTutorApp(&fakeTutor{phrases: []string{"Ik vind de kaas lekker.", "De hond slaapt."}})
		resp := postBody(t, app, "/api/parse-screenshot", map[string]string{"image": "aGVsbG8="})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var body struct {
			Phrase  string   `json:"phrase"`
			Phrases []string `json:"phrases"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Phrase != "Ik vind de kaas lekker." || len(body.Phrases) != 2 {
			t.Errorf("unexpected body: %+v", body)
		}
	})
}
