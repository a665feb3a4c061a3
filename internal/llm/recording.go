package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/store"
)

// Recorder persists one row per model call.
type Recorder interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// RecordingProvider logs every call and appends it to a Recorder. Record
// failures are logged and never fail the call.
type RecordingProvider struct {
	inner    Provider
	provider string
	rec      Recorder
	log      *zap.Logger
}

// WithRecording wraps p. rec may be nil to log only.
func WithRecording(p Provider, providerName string, rec Recorder, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordingProvider{inner: p, provider: providerName, rec: rec, log: log}
}

func (r *RecordingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := r.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:  r.provider,
		Model:     r.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("provider", data.Provider),
		zap.String("model", data.Model),
		zap.String("purpose", data.Purpose),
		zap.Int64("latency_ms", data.LatencyMs),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
	}
	if err != nil {
		r.log.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		r.log.Debug("llm request", fields...)
	}

	if r.rec != nil {
		if recErr := r.rec.AppendLLMRequest(ctx, data); recErr != nil {
			r.log.Warn("record llm request", zap.Error(recErr))
		}
	}
	return resp, err
}

func (r *RecordingProvider) ModelID() string { return r.inner.ModelID() }
