// Package extraction is the HTTP client for the external LLM extraction
// collaborator. One call analyzes one article and returns the structured
// nucleus/actors/actions signal the clusterer consumes.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

// Client calls the extraction service with per-failure-class retry delays
// behind a circuit breaker. Exhausting retries returns an error; the caller
// skips the article for the current cycle only.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	maxAttempts int
	breaker     *gobreaker.CircuitBreaker
	metrics     *observability.Collector
	logger      *zap.Logger

	// sleep is replaceable in tests so retry timing is assertable without
	// real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Compile-time interface check
var _ ports.Extractor = (*Client)(nil)

// NewClient creates an extraction client from configuration.
func NewClient(cfg config.ExtractionConfig, metrics *observability.Collector, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "extraction",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("extraction circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		endpoint:    cfg.Endpoint,
		maxAttempts: cfg.MaxAttempts,
		breaker:     breaker,
		metrics:     metrics,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

type extractRequest struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

type extractResponse struct {
	NucleusEntity string         `json:"nucleus_entity"`
	Actors        []string       `json:"actors"`
	ActorSalience map[string]int `json:"actor_salience"`
	Actions       []string       `json:"actions"`
	Tensions      []string       `json:"tensions"`
}

// Extract analyzes one article, retrying transient failures. Delay policy:
// rate limit backs off exponentially (5s, 10s, 20s), overload backs off
// linearly (10s, 20s, 30s), malformed responses retry after a short fixed
// delay. Validation failures and open breaker abort immediately.
func (c *Client) Extract(ctx context.Context, article *entities.Article) (entities.Extraction, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		extraction, err := c.callOnce(ctx, article)
		if err == nil {
			return extraction, nil
		}
		lastErr = err

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return entities.Extraction{}, pkgerrors.NewOverloaded("extraction circuit open", err)
		}
		if !pkgerrors.IsRetryable(err) || attempt == c.maxAttempts {
			break
		}

		delay := retryDelay(err, attempt)
		c.metrics.ExtractionRetries.Inc()
		c.logger.Debug("retrying extraction",
			zap.String("article_id", article.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return entities.Extraction{}, err
		}
	}

	c.metrics.ExtractionFailures.Inc()
	return entities.Extraction{}, pkgerrors.Wrap(lastErr, "extraction exhausted retries")
}

func (c *Client) callOnce(ctx context.Context, article *entities.Article) (entities.Extraction, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, article)
	})
	if err != nil {
		return entities.Extraction{}, err
	}
	return result.(entities.Extraction), nil
}

func (c *Client) doRequest(ctx context.Context, article *entities.Article) (entities.Extraction, error) {
	body, err := json.Marshal(extractRequest{
		ArticleID: article.ID,
		Title:     article.Title,
		Text:      article.Text,
	})
	if err != nil {
		return entities.Extraction{}, pkgerrors.NewValidation("failed to encode extraction request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return entities.Extraction{}, pkgerrors.NewValidation("invalid extraction endpoint")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entities.Extraction{}, pkgerrors.NewOverloaded("extraction request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return entities.Extraction{}, pkgerrors.NewRateLimited("extraction rate limited", nil)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return entities.Extraction{}, pkgerrors.NewOverloaded("extraction service overloaded", nil)
	case resp.StatusCode >= 500:
		return entities.Extraction{}, pkgerrors.NewOverloaded(
			fmt.Sprintf("extraction service error: %d", resp.StatusCode), nil)
	default:
		return entities.Extraction{}, pkgerrors.NewValidation(
			fmt.Sprintf("extraction rejected request: %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return entities.Extraction{}, pkgerrors.NewMalformed("failed to read extraction response", err)
	}

	var decoded extractResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return entities.Extraction{}, pkgerrors.NewMalformed("extraction returned malformed JSON", err)
	}

	return entities.Extraction{
		NucleusEntity: decoded.NucleusEntity,
		Actors:        decoded.Actors,
		ActorSalience: decoded.ActorSalience,
		Actions:       decoded.Actions,
		Tensions:      decoded.Tensions,
	}, nil
}

// retryDelay maps the failure class to its wait before the next attempt.
func retryDelay(err error, attempt int) time.Duration {
	switch {
	case pkgerrors.IsRateLimited(err):
		// 5s, 10s, 20s
		return 5 * time.Second << (attempt - 1)
	case pkgerrors.IsOverloaded(err):
		// 10s, 20s, 30s
		return time.Duration(attempt) * 10 * time.Second
	case pkgerrors.IsMalformed(err):
		return 2 * time.Second
	default:
		return 5 * time.Second
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
