package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// captureSink records consumed events and close calls.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestHubDeliversOnClose(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: time.Hour}, sink)

	for i := 0; i < 5; i++ {
		hub.Emit(Event{SiteID: "site-1", Stage: StagePageStaged, Count: i + 1})
	}
	require.NoError(t, hub.Close(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 5)
	require.Equal(t, 1, got[0].Count)
	require.Equal(t, 5, got[4].Count)

	s := sink
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	require.True(t, closed)
}

func TestHubFlushesOnBatchSize(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchEvents: 2, MaxBatchWait: time.Hour}, sink)
	defer hub.Close(context.Background())

	hub.Emit(Event{SiteID: "s", Stage: StagePageStaged})
	hub.Emit(Event{SiteID: "s", Stage: StagePageStaged})

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{Stage: StagePageStaged})    // no site id
	hub.Emit(Event{SiteID: "s"})               // no stage
	hub.Emit(Event{SiteID: "s", Stage: StageJobStart})
	require.NoError(t, hub.Close(context.Background()))

	require.Len(t, sink.snapshot(), 1)
}

// blockingSink holds its first Consume call open until released.
type blockingSink struct {
	gate    chan struct{}
	release sync.Once
}

func (s *blockingSink) Consume(context.Context, []Event) error {
	<-s.gate
	return nil
}

func (s *blockingSink) Close(context.Context) error {
	s.release.Do(func() { close(s.gate) })
	return nil
}

func TestHubNeverBlocksUnderBackpressure(t *testing.T) {
	t.Parallel()

	sink := &blockingSink{gate: make(chan struct{})}
	hub := NewHub(Config{BufferSize: 1, MaxBatchEvents: 1, MaxBatchWait: time.Hour}, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			hub.Emit(Event{SiteID: "s", Stage: StagePageStaged})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked under backpressure")
	}
	sink.release.Do(func() { close(sink.gate) })
	require.NoError(t, hub.Close(context.Background()))
	require.GreaterOrEqual(t, hub.Dropped(), int64(2))
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))
	hub.Emit(Event{SiteID: "s", Stage: StageJobStart})
	require.Empty(t, sink.snapshot())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Event{}.Validate())
	require.Error(t, Event{SiteID: "s"}.Validate())
	require.Error(t, Event{Stage: StageJobStart}.Validate())
	require.NoError(t, Event{SiteID: "s", Stage: StageJobStart}.Validate())
}
