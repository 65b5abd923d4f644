package llm

import (
	"context"
	"sync"

	llmclient "appforge/internal/llm/client"
)

// FakeClient returns deterministic payloads per phase for offline runs and tests.
type FakeClient struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	calls    []FakeCall
}

// FakeCall records one request seen by FakeClient.
type FakeCall struct {
	Phase   string
	Request llmclient.Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		replies: map[string]string{
			PhaseAnalyze: `{"appName":"Demo App","description":"A demo application","coreFeature":"Text generation",` +
				`"aiPromptExample":"Write a haiku","dataModels":[{"name":"Note","fields":[{"name":"title","type":"string","description":"Title"}]}]}`,
		},
		failures: map[string]error{},
	}
}

// Reply sets the canned reply for a phase. An empty reply counts as no content.
func (f *FakeClient) Reply(phase, text string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[phase] = text
	delete(f.failures, phase)
	return f
}

// Fail makes every call for phase return err.
func (f *FakeClient) Fail(phase string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[phase] = err
	return f
}

// Calls returns the requests observed so far.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{Phase: phase, Request: req})
	if err, ok := f.failures[phase]; ok {
		return "", err
	}
	out := f.replies[phase]
	if out == "" {
		return "", llmclient.ErrEmptyCompletion
	}
	return out, nil
}
