package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/abhisek/skillquest/internal/store"
)

type fakeRecorder struct {
	mu   sync.Mutex
	rows []store.LLMRequestEventData
	err  error
}

func (f *fakeRecorder) AppendLLMRequest(_ context.Context, d store.LLMRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, d)
	return f.err
}

func TestRecordingProvider_RecordsEachAttempt(t *testing.T) {
	rec := &fakeRecorder{}
	mock := NewMockProvider(
		down(),
		MockResponse{Content: json.RawMessage(`{"ok":true}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}},
	)
	p := WithRetry(WithRecording(mock, "mock", rec, nil), fastRetry())

	if _, err := p.Generate(WithPurpose(context.Background(), "review"), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.rows) != 2 {
		t.Fatalf("recorded %d rows, want 2", len(rec.rows))
	}
	if rec.rows[0].Success || rec.rows[0].ErrorMessage == "" {
		t.Errorf("first row = %+v", rec.rows[0])
	}
	last := rec.rows[1]
	if !last.Success || last.Purpose != "review" || last.InputTokens != 7 || last.Provider != "mock" {
		t.Errorf("second row = %+v", last)
	}
}

func TestRecordingProvider_RecorderFailureIgnored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	if _, err := WithRecording(mock, "mock", rec, nil).Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("recorder failure leaked into call: %v", err)
	}
}
