// Package delivery provides reporter delivery functions.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/errq/internal/core/record"
	"github.com/hay-kot/errq/internal/reporter"
)

const (
	DefaultTimeout   = 10 * time.Second
	defaultUserAgent = "errq/0.1"
)

var ErrNoEndpoint = errors.New("delivery endpoint is required")

// HTTP posts each record as a JSON object to Endpoint. Any 2xx response
// counts as delivered.
type HTTP struct {
	endpoint  *url.URL
	client    *http.Client
	logger    zerolog.Logger
	userAgent string
}

// NewHTTP builds an HTTP delivery for endpoint. A zero timeout uses
// DefaultTimeout.
func NewHTTP(endpoint string, timeout time.Duration, logger zerolog.Logger) (*HTTP, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTP{
		endpoint:  u,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		userAgent: defaultUserAgent,
	}, nil
}

// Endpoint returns the target URL.
func (h *HTTP) Endpoint() string {
	return h.endpoint.String()
}

// Deliver satisfies reporter.DeliverFunc.
func (h *HTTP) Deliver(ctx context.Context, r *record.Record, done reporter.Completion) {
	err := h.post(ctx, r)
	if err != nil {
		h.logger.Warn().Ctx(ctx).Err(err).Msg("post record failed")
	}
	done(err == nil, r)
}

func (h *HTTP) post(ctx context.Context, r *record.Record) error {
	body, err := json.Marshal(r.ToMap())
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Discard reports every record as delivered without sending it.
func Discard(_ context.Context, r *record.Record, done reporter.Completion) {
	done(true, r)
}

// Log returns a delivery function that writes each record to logger and
// reports it delivered.
func Log(logger zerolog.Logger) reporter.DeliverFunc {
	return func(ctx context.Context, r *record.Record, done reporter.Completion) {
		logger.Info().Ctx(ctx).Dict("record", zerolog.Dict().Fields(r.ToMap())).Msg("record")
		done(true, r)
	}
}

var (
	_ reporter.DeliverFunc = Discard
	_ reporter.DeliverFunc = (*HTTP)(nil).Deliver
)
