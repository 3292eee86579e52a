package backend

import (
	"context"
	"sync"
	"time"

	"github.com/roelfdiedericks/docsum/internal/llm"
)

type call struct {
	model  string
	prompt string
}

// fakeProvider answers per model; unknown models return "ok".
type fakeProvider struct {
	state *fakeState
	model string
}

type fakeState struct {
	mu      sync.Mutex
	replies map[string]func(prompt string) (string, error)
	calls   []call
}

func newFakeProvider(replies map[string]func(string) (string, error)) *fakeProvider {
	return &fakeProvider{state: &fakeState{replies: replies}}
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Type() string  { return "fake" }
func (f *fakeProvider) Model() string { return f.model }

func (f *fakeProvider) WithModel(model string) llm.Provider {
	return &fakeProvider{state: f.state, model: model}
}

func (f *fakeProvider) SimpleMessage(_ context.Context, user, _ string) (string, error) {
	f.state.mu.Lock()
	f.state.calls = append(f.state.calls, call{model: f.model, prompt: user})
	reply := f.state.replies[f.model]
	f.state.mu.Unlock()
	if reply == nil {
		return "ok", nil
	}
	return reply(user)
}

func (f *fakeProvider) calls() []call {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return append([]call(nil), f.state.calls...)
}

func reply(text string, err error) func(string) (string, error) {
	return func(string) (string, error) { return text, err }
}

type fakeSeq2Seq struct {
	mu   sync.Mutex
	reqs []llm.GenerateRequest
	fn   func(req llm.GenerateRequest) (string, error)
}

func (f *fakeSeq2Seq) Name() string { return "fake-local" }

func (f *fakeSeq2Seq) Summarize(_ context.Context, req llm.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return nil
}
