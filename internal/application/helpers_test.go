package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

type memoryStore struct {
	mu         sync.Mutex
	files      map[string]string
	fetchErr   error
	replaceErr error
	writes     int
}

func newMemoryStore(files map[string]string) *memoryStore {
	return &memoryStore{files: files}
}

func (s *memoryStore) Fetch(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make(map[string]string, len(s.files))
	for name, content := range s.files {
		out[name] = content
	}
	return out, nil
}

func (s *memoryStore) Replace(_ context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.files == nil {
		s.files = map[string]string{}
	}
	s.files[name] = content
	s.writes++
	return nil
}

func (s *memoryStore) FailReplace(err error) {
	s.mu.Lock()
	s.replaceErr = err
	s.mu.Unlock()
}

func (s *memoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memoryStore) Content(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[name]
}

type probeFunc func(ctx context.Context, target domain.ProbeTarget) domain.ProbeOutcome

func (f probeFunc) Probe(ctx context.Context, target domain.ProbeTarget) domain.ProbeOutcome {
	return f(ctx, target)
}

// outcomesByIndex answers every probe from a fixed table.
func outcomesByIndex(outcomes map[int]domain.ProbeOutcome) probeFunc {
	return func(_ context.Context, target domain.ProbeTarget) domain.ProbeOutcome {
		outcome, ok := outcomes[target.Index]
		if !ok {
			return domain.Unchanged(200)
		}
		return outcome
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Kinds(kind domain.EventKind) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.Event
	for _, event := range p.events {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

func twoAccountDocument() domain.Document {
	return domain.Document{
		Accounts: []domain.Account{
			{Email: "first@example.com", Cookies: map[string]string{"SESSION": "cookie-0"}},
			{Email: "second@example.com", Cookies: map[string]string{"SESSION": "oldval"}, ServerID: "srv-2"},
		},
		ActiveAccountIndex: intPtr(0),
		CurrentServerID:    "srv-1",
		LastSyncTime:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func encodeForTest(t *testing.T, doc domain.Document) string {
	t.Helper()

	content, err := encodeDocument(doc)
	require.NoError(t, err)
	return content
}
