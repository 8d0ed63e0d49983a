package useCases

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

type handlerFunc func(ctx context.Context, ev domain.Event) error

func (f handlerFunc) Handle(ctx context.Context, ev domain.Event) error { return f(ctx, ev) }

func TestRunner_SequentialPerChat(t *testing.T) {
	var (
		mu      sync.Mutex
		active  = map[int64]int{}
		overlap atomic.Bool
		order   = map[int64][]string{}
		wg      sync.WaitGroup
	)
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error {
		defer wg.Done()
		mu.Lock()
		active[ev.ChatID]++
		if active[ev.ChatID] > 1 {
			overlap.Store(true)
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		active[ev.ChatID]--
		order[ev.ChatID] = append(order[ev.ChatID], ev.Text)
		mu.Unlock()
		return nil
	})

	r := NewRunner(h, discardLogger(), time.Minute)
	defer r.Close()

	texts := []string{"a", "b", "c", "d", "e"}
	for _, chat := range []int64{1, 2, 3} {
		for _, txt := range texts {
			wg.Add(1)
			require.NoError(t, r.Enqueue(context.Background(), domain.Event{ChatID: chat, Kind: domain.EventText, Text: txt}))
		}
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "events of one chat must not run concurrently")
	for _, chat := range []int64{1, 2, 3} {
		assert.Equal(t, texts, order[chat])
	}
}

func TestRunner_DoReturnsHandlerResult(t *testing.T) {
	boom := errors.New("boom")
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error {
		assert.NotEmpty(t, ev.ID)
		if ev.Text == "fail" {
			return boom
		}
		return nil
	})
	r := NewRunner(h, discardLogger(), time.Minute)
	defer r.Close()

	assert.NoError(t, r.Do(context.Background(), domain.Event{ChatID: 1, Text: "ok"}))
	assert.ErrorIs(t, r.Do(context.Background(), domain.Event{ChatID: 1, Text: "fail"}), boom)
}

func TestRunner_RecoversPanic(t *testing.T) {
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error {
		if ev.Text == "panic" {
			panic("unexpected")
		}
		return nil
	})
	r := NewRunner(h, discardLogger(), time.Minute)
	defer r.Close()

	err := r.Do(context.Background(), domain.Event{ChatID: 1, Text: "panic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")

	// очередь чата продолжает работать
	assert.NoError(t, r.Do(context.Background(), domain.Event{ChatID: 1, Text: "next"}))
}

func TestRunner_IdleQueueIsReaped(t *testing.T) {
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error { return nil })
	r := NewRunner(h, discardLogger(), 20*time.Millisecond)
	defer r.Close()

	require.NoError(t, r.Do(context.Background(), domain.Event{ChatID: 7}))

	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.workers) == 0
	}, time.Second, 5*time.Millisecond)

	// после остановки очередь создаётся заново
	assert.NoError(t, r.Do(context.Background(), domain.Event{ChatID: 7}))
}

func TestRunner_RunConsumesChannel(t *testing.T) {
	var got atomic.Int32
	done := make(chan struct{})
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error {
		if got.Add(1) == 3 {
			close(done)
		}
		return nil
	})
	r := NewRunner(h, discardLogger(), time.Minute)
	defer r.Close()

	events := make(chan domain.Event, 3)
	for i := int64(1); i <= 3; i++ {
		events <- domain.Event{ChatID: i}
	}
	close(events)

	require.NoError(t, r.Run(context.Background(), events))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events were not handled")
	}
}

func TestRunner_StoppedRejects(t *testing.T) {
	r := NewRunner(handlerFunc(func(ctx context.Context, ev domain.Event) error { return nil }), discardLogger(), time.Minute)
	r.Close()

	assert.ErrorIs(t, r.Enqueue(context.Background(), domain.Event{ChatID: 1}), ErrRunnerStopped)
	assert.ErrorIs(t, r.Do(context.Background(), domain.Event{ChatID: 1}), ErrRunnerStopped)
}

func TestRunner_StuckChatDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	served := make(chan int64, 1)
	h := handlerFunc(func(ctx context.Context, ev domain.Event) error {
		if ev.ChatID == 1 {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}
		served <- ev.ChatID
		return nil
	})
	r := NewRunner(h, discardLogger(), time.Minute)
	defer r.Close()
	defer close(release)

	events := make(chan domain.Event)
	go func() { _ = r.Run(context.Background(), events) }()

	for i := 0; i < 40; i++ {
		events <- domain.Event{ChatID: 1, Kind: domain.EventCallback}
	}
	events <- domain.Event{ChatID: 2, Kind: domain.EventText}

	select {
	case chat := <-served:
		assert.Equal(t, int64(2), chat)
	case <-time.After(time.Second):
		t.Fatal("chat 2 waited for the stuck chat 1")
	}
	close(events)
}

func TestRunner_QueueLimit(t *testing.T) {
	release := make(chan struct{})
	r := NewRunner(handlerFunc(func(ctx context.Context, ev domain.Event) error {
		<-release
		return nil
	}), discardLogger(), time.Minute)
	defer r.Close()
	defer close(release)

	for i := 0; i < maxPending; i++ {
		require.NoError(t, r.Enqueue(context.Background(), domain.Event{ChatID: 1}))
	}
	assert.ErrorIs(t, r.Enqueue(context.Background(), domain.Event{ChatID: 1}), ErrQueueFull)
	assert.NoError(t, r.Enqueue(context.Background(), domain.Event{ChatID: 2}))
}
