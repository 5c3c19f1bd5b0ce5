package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pagetran/pagetran/internal/normalize"
	"github.com/pagetran/pagetran/internal/prompt"
	"github.com/pagetran/pagetran/internal/sanitize"
)

const (
	// maxAttempts bounds retries on timeout; other failures are not
	// retried.
	maxAttempts = 3

	// Generation parameters for the chat-completion payload. Low
	// temperature and a tight token budget keep single-word and
	// short-phrase translations from rambling.
	temperature = 0.3
	maxTokens   = 100
)

// stopSequences cut the model off before it starts echoing the prompt
// or appending a second answer.
var stopSequences = []string{"\n\n", "Input:", "Translate"}

// OpenAIService talks to any OpenAI-compatible chat-completion
// endpoint (LM Studio, llama-server, vLLM, OpenRouter, ...).
type OpenAIService struct {
	endpoint string
	model    string
	client   *http.Client
	log      *zap.Logger
}

// NewOpenAIService creates a client for the given chat-completion
// endpoint. A nil logger is replaced by a nop.
func NewOpenAIService(endpoint, model string, logger *zap.Logger) *OpenAIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIService{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{},
		log:      logger,
	}
}

func (s *OpenAIService) Name() string { return "openai" }

// Translate sends one chat-completion request and normalizes the
// reply. Timeouts are retried up to maxAttempts times with capped
// exponential backoff; the response envelope is validated and cleaned
// by the normalize package.
func (s *OpenAIService) Translate(ctx context.Context, req Request) (*Result, error) {
	text, err := sanitize.Text(req.Text, sanitize.MaxTextLength)
	if err != nil {
		return nil, &ServiceError{Kind: KindInvalidRequest, Err: err}
	}

	payload := map[string]any{
		"model":       s.model,
		"messages":    prompt.Messages(text, req.SourceLang, req.TargetLang, sanitize.Context(req.Context)),
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"stop":        stopSequences,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Kind: KindInvalidRequest, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, &ServiceError{Kind: KindTimeout, Err: err}
			}
		}

		raw, err := s.post(ctx, body)
		if err == nil {
			cleaned, suspicious, nerr := extractAndReport(raw, text)
			if nerr != nil {
				return nil, nerr
			}
			if suspicious {
				s.log.Warn("translation suspiciously long",
					zap.Int("source_len", len(text)),
					zap.Int("result_len", len(cleaned)))
			}
			return &Result{Translation: cleaned}, nil
		}

		lastErr = err
		var se *ServiceError
		if errors.As(err, &se) && se.Kind == KindTimeout {
			s.log.Warn("translation request timed out",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxAttempts))
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OpenAIService) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Kind: KindInvalidRequest, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ServiceError{Kind: KindTimeout, Err: err}
		}
		return nil, &ServiceError{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Kind: KindServerError, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &ServiceError{Kind: KindServerError, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &ServiceError{Kind: KindInvalidRequest, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return raw, nil
}

// extractAndReport runs the normalizer and forwards its diagnostic.
func extractAndReport(raw []byte, original string) (string, bool, error) {
	cleaned, err := normalize.Extract(raw, original)
	if err != nil {
		return "", false, err
	}
	// Re-run the length diagnostic on the final text; Extract already
	// cleaned it so this cannot fail.
	_, suspicious, _ := normalize.CleanReport(cleaned, original)
	return cleaned, suspicious, nil
}

// backoff waits min(2^attempt, 8) seconds or until ctx is done.
func backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(1<<attempt) * time.Second
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
