package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
)

// validReportJSON builds a minimal response carrying every required section.
func validReportJSON(t *testing.T) string {
	t.Helper()

	report := map[string]interface{}{}
	for _, section := range domain.RequiredSections {
		report[section] = map[string]interface{}{}
	}
	report["ai_analysis_metadata"] = map[string]interface{}{
		"confidence_in_analysis": "High",
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	return string(raw)
}

func chatCompletion(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func analysisConfig(baseURL string, maxRetries int) *config.AnalysisConfig {
	return &config.AnalysisConfig{
		BaseURL:          baseURL,
		Model:            "test-model",
		Timeout:          5 * time.Second,
		MaxRetries:       maxRetries,
		MinContentLength: 500,
		MaxContentLength: 50000,
	}
}

func longContent(n int) string {
	return strings.Repeat("a", n)
}

func TestAnalyzeRejectsShortContentWithoutCalling(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	svc := NewAnalysisService(analysisConfig(server.URL, 3))
	_, err := svc.Analyze(context.Background(), longContent(100), "https://example.com/a", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContentTooShort))
	assert.EqualValues(t, 0, calls.Load(), "short content must never reach the endpoint")
}

func TestDefaultBackoffSchedule(t *testing.T) {
	assert.Equal(t, time.Second, defaultBackoff(0))
	assert.Equal(t, 2*time.Second, defaultBackoff(1))
	assert.Equal(t, 4*time.Second, defaultBackoff(2))
}

func TestAnalyzeRetriesThenSucceeds(t *testing.T) {
	valid := validReportJSON(t)
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletion(valid)))
	}))
	defer server.Close()

	svc := NewAnalysisService(analysisConfig(server.URL, 3))
	var waits []int
	svc.SetBackoff(func(attempt int) time.Duration {
		waits = append(waits, attempt)
		return 0
	})

	outcome, err := svc.Analyze(context.Background(), longContent(600), "https://example.com/a", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Attempts)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []int{0, 1}, waits, "backoff runs between attempts, not after the last")
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewAnalysisService(analysisConfig(server.URL, 3))
	svc.SetBackoff(func(int) time.Duration { return 0 })

	_, err := svc.Analyze(context.Background(), longContent(600), "https://example.com/a", nil)
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestAnalyzeRejectsMissingSection(t *testing.T) {
	// Valid JSON, HTTP 200, but one required section absent.
	report := map[string]interface{}{}
	for _, section := range domain.RequiredSections {
		if section == "indicators_of_compromise" {
			continue
		}
		report[section] = map[string]interface{}{}
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletion(string(raw))))
	}))
	defer server.Close()

	svc := NewAnalysisService(analysisConfig(server.URL, 2))
	svc.SetBackoff(func(int) time.Duration { return 0 })

	_, err = svc.Analyze(context.Background(), longContent(600), "https://example.com/a", nil)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.MissingSections, "indicators_of_compromise")
	assert.EqualValues(t, 2, calls.Load(), "each invalid response consumes one attempt")
}

func TestAnalyzeStampsMetadataAndTruncates(t *testing.T) {
	valid := validReportJSON(t)
	var receivedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			receivedPrompt = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletion(valid)))
	}))
	defer server.Close()

	cfg := analysisConfig(server.URL, 3)
	cfg.MaxContentLength = 550
	svc := NewAnalysisService(cfg)

	outcome, err := svc.Analyze(context.Background(), longContent(600), "https://intel.example.com/report/1", nil)
	require.NoError(t, err)

	meta := outcome.Report.AIAnalysisMetadata
	assert.Equal(t, "test-model", meta.AIModelUsed)
	assert.Equal(t, "cybersec_intel_extractor_v2.0", meta.PromptVersion)
	assert.NotEmpty(t, meta.AnalysisTimestamp)
	require.NotNil(t, meta.ProcessingTimeSeconds)

	src := outcome.Report.SourceMetadata
	assert.Equal(t, "https://intel.example.com/report/1", src.SourceURL)
	assert.Equal(t, "intel.example.com", src.SourceDomain)
	assert.Equal(t, 550, src.ContentLength, "over-length content is truncated before sending")

	assert.Equal(t, 1, outcome.Attempts)
	assert.NotContains(t, receivedPrompt, longContent(551), "prompt carries at most max_content_length body bytes")

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(outcome.Payload), &payload))
	for _, section := range domain.RequiredSections {
		assert.Contains(t, payload, section)
	}
}
