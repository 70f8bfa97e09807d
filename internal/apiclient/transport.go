package apiclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingTransport logs every round trip with its timing.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func newLoggingTransport(next http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(r)

	duration := time.Since(start)
	if err != nil {
		t.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get(RequestIDHeader)).
			Dur("duration", duration).
			Msg("http request failed")
		return nil, err
	}

	event := t.logger.Debug()
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		event = t.logger.Error()
	case resp.StatusCode >= http.StatusBadRequest:
		event = t.logger.Warn()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", resp.StatusCode).
		Str("request_id", r.Header.Get(RequestIDHeader)).
		Dur("duration", duration).
		Msg("http request")

	return resp, nil
}
