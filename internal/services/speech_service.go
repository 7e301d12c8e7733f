package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

const googleTTSURL = "https://texttospeech.googleapis.com/v1/text:synthesize"

// SpeechService synthesizes Dutch pronunciation audio via Google Cloud TTS.
// Synthesized clips are cached in memory: the same phrase is replayed often
// from the history list and TTS calls are billed per character.
type SpeechService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	audioCache *cache.Cache
}

// NewSpeechService creates the service with a 24h audio cache.
func NewSpeechService(apiKey string) *SpeechService {
	return &SpeechService{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    googleTTSURL,
		apiKey:     apiKey,
		audioCache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

// Synthesize returns base64-encoded MP3 audio for the given Dutch text.
func (s *SpeechService) Synthesize(ctx context.Context, text string) (string, error) {
	if audio, found := s.audioCache.Get(text); found {
		if m := GetMetrics(); m != nil {
			m.TTSCacheHits.Inc()
		}
		return audio.(string), nil
	}

	payload := map[string]interface{}{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"languageCode": "nl-NL",
			"name":         "nl-NL-Wavenet-A",
		},
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"?key="+s.apiKey, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.count("transport_error")
		return "", fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.count("transport_error")
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [SPEECH] Google TTS error: %d - %s", resp.StatusCode, string(respBody))
		s.count(fmt.Sprintf("%d", resp.StatusCode))

		message := "Pronunciation failed. Please try again."
		if resp.StatusCode == http.StatusForbidden {
			message = "Google TTS API not enabled or key invalid. Check your Google Cloud console."
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: message}
	}
	s.count("ok")

	var apiResp struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	s.audioCache.Set(text, apiResp.AudioContent, cache.DefaultExpiration)
	return apiResp.AudioContent, nil
}

func (s *SpeechService) count(outcome string) {
	if m := GetMetrics(); m != nil {
		m.TTSRequests.WithLabelValues(outcome).Inc()
	}
}
