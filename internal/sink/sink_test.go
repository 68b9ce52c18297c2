package sink

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/voguh/unichat-sub000/internal/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func removal(id string) event.Event {
	return &event.RemoveMessage{Header: event.Header{Platform: event.PlatformTwitch, Timestamp: 1}, MessageID: id}
}

func ids(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		select {
		case e := <-sub.C():
			out = append(out, e.(*event.RemoveMessage).MessageID)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events", i)
		}
	}
	return out
}

func TestPublishFansOut(t *testing.T) {
	s := New()
	defer s.Close()
	a, err := s.Subscribe(4)
	require.NoError(t, err)
	b, err := s.Subscribe(4)
	require.NoError(t, err)

	require.NoError(t, s.Publish(removal("1")))
	require.NoError(t, s.Publish(removal("2")))

	assert.Equal(t, []string{"1", "2"}, ids(t, a, 2))
	assert.Equal(t, []string{"1", "2"}, ids(t, b, 2))
	assert.Equal(t, Stats{Published: 2, Subscribers: 2}, s.Stats())
}

func TestOverflowDropsOldest(t *testing.T) {
	s := New()
	defer s.Close()
	sub, err := s.Subscribe(3)
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, s.Publish(removal(id)))
	}

	assert.Equal(t, []string{"3", "4", "5"}, ids(t, sub, 3))
	assert.Equal(t, uint64(2), sub.Dropped())
	assert.Equal(t, uint64(2), s.Stats().Dropped)
}

func TestPublishNeverBlocksOnSlowConsumer(t *testing.T) {
	s := New(WithBufferSize(1))
	defer s.Close()
	_, err := s.Subscribe(0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			_ = s.Publish(removal("x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked")
	}
}

func TestConcurrentPublishers(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(64)
	require.NoError(t, err)

	var received sync.WaitGroup
	received.Add(1)
	count := 0
	go func() {
		defer received.Done()
		for range sub.C() {
			count++
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = s.Publish(removal("x"))
			}
		}()
	}
	wg.Wait()
	s.Close()
	received.Wait()

	st := s.Stats()
	assert.Equal(t, uint64(4000), st.Published)
	assert.Equal(t, uint64(4000), uint64(count)+st.Dropped)
}

func TestSubscriptionClose(t *testing.T) {
	s := New()
	defer s.Close()
	sub, err := s.Subscribe(1)
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Stats().Subscribers)
	assert.NoError(t, s.Publish(removal("1")))
}

func TestClosedSink(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(1)
	require.NoError(t, err)
	s.Close()
	s.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Publish(removal("1")), ErrClosed)
	_, err = s.Subscribe(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriteJSONLines(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(8)
	require.NoError(t, err)
	require.NoError(t, s.Publish(removal("1")))
	require.NoError(t, s.Publish(&event.Clear{Header: event.Header{Platform: event.PlatformYouTube, Timestamp: 2}}))
	s.Close()

	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(context.Background(), sub, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	first, err := event.Unmarshal([]byte(lines[0]))
	require.NoError(t, err)
	assert.Equal(t, event.KindRemoveMessage, first.Kind())
	assert.Contains(t, lines[1], `"type":"unichat:clear"`)
}

func TestWriteJSONLinesStopsOnCancel(t *testing.T) {
	s := New()
	defer s.Close()
	sub, err := s.Subscribe(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, WriteJSONLines(ctx, sub, &bytes.Buffer{}), context.Canceled)
}
