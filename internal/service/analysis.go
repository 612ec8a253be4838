package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/prompts"
)

// ErrContentTooShort marks content below the minimum analyzable length. The
// caller must not consume an analysis attempt for it.
var ErrContentTooShort = errors.New("content too short for analysis")

// ValidationError reports a structurally invalid extraction response.
type ValidationError struct {
	MissingSections []string
	Reason          string
}

// Error returns a human-readable description of the validation failure.
// Parameters: none.
// Returns:
//   - string: failure description including missing section names.
func (e *ValidationError) Error() string {
	if len(e.MissingSections) > 0 {
		return fmt.Sprintf("invalid extraction response: missing sections %v", e.MissingSections)
	}
	return fmt.Sprintf("invalid extraction response: %s", e.Reason)
}

// AnalysisOutcome is the result of one successful extraction call.
type AnalysisOutcome struct {
	Report            *domain.Report
	Payload           string
	Attempts          int
	ProcessingSeconds float64
}

// chatRequest is the OpenAI-compatible chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completion response the service reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AnalysisService calls the extraction model endpoint and validates its
// structured response. Transport failures and malformed responses are retried
// with exponential backoff; content bound violations are not.
type AnalysisService struct {
	http    *resty.Client
	cfg     *config.AnalysisConfig
	backoff func(attempt int) time.Duration
}

// NewAnalysisService creates a new AnalysisService.
// Parameters:
//   - cfg: extraction endpoint and content bound configuration.
//
// Returns:
//   - *AnalysisService: service with default exponential backoff.
func NewAnalysisService(cfg *config.AnalysisConfig) *AnalysisService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &AnalysisService{
		http:    client,
		cfg:     cfg,
		backoff: defaultBackoff,
	}
}

// defaultBackoff doubles the wait per attempt: 1s, 2s, 4s for attempts 0-2.
func defaultBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// SetBackoff overrides the retry wait schedule.
// Parameters:
//   - fn: wait duration for a given zero-based attempt index.
func (s *AnalysisService) SetBackoff(fn func(attempt int) time.Duration) {
	s.backoff = fn
}

// Analyze extracts structured intelligence from article content. Content below
// the minimum length returns ErrContentTooShort without touching the endpoint;
// content above the maximum is truncated and processed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - content: article body text.
//   - sourceURL: canonical URL the content came from.
//   - meta: optional article metadata woven into the prompt.
//
// Returns:
//   - *AnalysisOutcome: validated report with stamped metadata.
//   - error: ErrContentTooShort, a *ValidationError from the final attempt, or
//     a transport error when every attempt fails.
func (s *AnalysisService) Analyze(ctx context.Context, content, sourceURL string, meta *prompts.ArticleMeta) (*AnalysisOutcome, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	if len(content) < s.cfg.MinContentLength {
		return nil, fmt.Errorf("%w: %d bytes, minimum %d", ErrContentTooShort, len(content), s.cfg.MinContentLength)
	}
	if len(content) > s.cfg.MaxContentLength {
		log.WithFields(logger.Fields{
			"content_length": len(content),
			"max_length":     s.cfg.MaxContentLength,
		}).Warn("Content too long, truncating")
		content = content[:s.cfg.MaxContentLength]
	}

	prompt := prompts.BuildUserPrompt(content, sourceURL, meta)

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff(attempt - 1)
			log.WithFields(logger.Fields{
				"attempt": attempt + 1,
				"wait":    wait.String(),
			}).Info("Retrying extraction request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		report, err := s.requestExtraction(ctx, prompt)
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("attempt", attempt+1).Warn("Extraction attempt failed")
			continue
		}

		processing := time.Since(start).Seconds()
		s.stampMetadata(report, sourceURL, len(content), processing)

		payload, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("encode extraction payload: %w", err)
		}
		log.WithFields(logger.Fields{
			"attempts":             attempt + 1,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Info("Content analysis completed")
		return &AnalysisOutcome{
			Report:            report,
			Payload:           string(payload),
			Attempts:          attempt + 1,
			ProcessingSeconds: processing,
		}, nil
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

// requestExtraction performs one model call and validates the response shape.
func (s *AnalysisService) requestExtraction(ctx context.Context, prompt string) (*domain.Report, error) {
	body := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.SystemRole},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   4000,
		Stream:      false,
	}

	var parsed chatResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("extraction endpoint returned status %d", resp.StatusCode())
	}
	if len(parsed.Choices) == 0 {
		return nil, &ValidationError{Reason: "response carried no choices"}
	}
	return parseReport(parsed.Choices[0].Message.Content)
}

// parseReport decodes the model output and enforces that every required
// section is present. A response missing any section is rejected whole.
func parseReport(raw string) (*domain.Report, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("response is not valid JSON: %v", err)}
	}

	var missing []string
	for _, name := range domain.RequiredSections {
		if _, ok := sections[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingSections: missing}
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("response does not match schema: %v", err)}
	}
	return &report, nil
}

// stampMetadata fills the fields the model cannot know about its own run.
func (s *AnalysisService) stampMetadata(report *domain.Report, sourceURL string, contentLength int, processing float64) {
	rounded := math.Round(processing*100) / 100
	report.AIAnalysisMetadata.AnalysisTimestamp = time.Now().UTC().Format(time.RFC3339)
	report.AIAnalysisMetadata.AIModelUsed = s.cfg.Model
	report.AIAnalysisMetadata.PromptVersion = prompts.Version
	report.AIAnalysisMetadata.ProcessingTimeSeconds = &rounded

	report.SourceMetadata.SourceURL = sourceURL
	report.SourceMetadata.ContentLength = contentLength
	if u, err := url.Parse(sourceURL); err == nil {
		report.SourceMetadata.SourceDomain = u.Hostname()
	}
}
