package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/store"
)

// LoggingProvider is a decorator that records every generation call as an
// llm_request_log row. Logging is fire-and-forget: a storage failure is
// reported at Warn level and never fails the request.
type LoggingProvider struct {
	inner  Provider
	events store.EventRepo
	log    *zap.Logger
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, events store.EventRepo, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingProvider{inner: p, events: events, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		UserID:    UserFrom(ctx),
		Purpose:   PurposeFrom(ctx),
		Provider:  l.inner.ModelID(),
		Model:     l.inner.ModelID(),
		Prompt:    serializePrompt(req),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.Response = string(resp.Content)
	}

	if err != nil {
		data.ErrorMessage = err.Error()
	}

	if logErr := l.events.AppendLLMRequest(ctx, data); logErr != nil {
		l.log.Warn("failed to log LLM request", zap.Error(logErr),
			zap.String("purpose", data.Purpose))
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializePrompt builds a readable representation of the request for the
// diagnostics log.
func serializePrompt(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	b.WriteString("[user]\n")
	b.WriteString(req.User)
	b.WriteString("\n")

	return b.String()
}
