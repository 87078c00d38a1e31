// Package errorreporting forwards panics and unexpected errors to Sentry.
// Every function is a no-op until Init is called with a DSN.
package errorreporting

import (
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sipas/persuratan/internal/config"
)

var enabled atomic.Bool

var piiPatterns = []*regexp.Regexp{
	// NIP (18-digit civil servant number)
	regexp.MustCompile(`\b\d{18}\b`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(password|token|secret)["\s:=]+\S+`),
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
}

// Init initializes Sentry error reporting. An empty DSN leaves reporting off.
func Init(cfg config.SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}

	release := cfg.Release
	if release == "" {
		release = "dev"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	enabled.Store(true)
	return nil
}

// Enabled reports whether Init configured a client
func Enabled() bool {
	return enabled.Load()
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = ScrubPII(event.Exception[i].Value)
	}
	event.Message = ScrubPII(event.Message)

	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = ScrubPII(str)
		}
	}

	if event.Request != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
		// download links carry the token in the query string
		event.Request.QueryString = ""
		event.Request.Data = ""
	}

	return event
}

// ScrubPII removes NIPs, credentials and e-mail addresses from text
func ScrubPII(text string) string {
	for _, pattern := range piiPatterns {
		text = pattern.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// CaptureError captures an error with optional tags
func CaptureError(err error, tags map[string]string) {
	if err == nil || !Enabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic from an HTTP handler
func CapturePanic(r *http.Request, recovered interface{}, requestID string) {
	if !Enabled() {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(r)
	hub.Scope().SetLevel(sentry.LevelFatal)
	hub.Scope().SetTag("method", r.Method)
	hub.Scope().SetTag("path", r.URL.Path)
	if requestID != "" {
		hub.Scope().SetTag("request_id", requestID)
	}

	if err, ok := recovered.(error); ok {
		hub.CaptureException(err)
		return
	}
	hub.CaptureMessage(ScrubPII(fmt.Sprint(recovered)))
}

// Flush waits for buffered events to be sent
func Flush(timeout time.Duration) bool {
	if !Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
