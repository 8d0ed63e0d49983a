package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

var (
	ErrRunnerStopped = errors.New("runner stopped")
	ErrQueueFull     = errors.New("chat queue is full")
)

const (
	maxPending  = 256
	defaultIdle = 10 * time.Minute
)

// Handler обрабатывает одно событие чата.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Runner держит по одной очереди на чат: события одного чата обрабатываются
// строго по очереди, разные чаты — параллельно. Постановка в очередь не
// блокируется, так что зависший чат не тормозит остальные. Простаивающие
// очереди закрываются через idle и создаются заново по требованию.
type Runner struct {
	handler Handler
	log     *slog.Logger
	idle    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[int64]*worker
	wg      sync.WaitGroup
}

type job struct {
	ev   domain.Event
	done chan error // nil, если результат никому не нужен
}

type worker struct {
	chatID int64
	wake   chan struct{}

	// под Runner.mu
	queue   []job
	pending int // queue + обрабатываемое сейчас
}

func NewRunner(handler Handler, log *slog.Logger, idle time.Duration) *Runner {
	if idle <= 0 {
		idle = defaultIdle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		handler: handler,
		log:     log.With("component", "runner"),
		idle:    idle,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[int64]*worker),
	}
}

// Run раскладывает события из канала по очередям чатов, пока канал не закроется
// или не отменится ctx.
func (r *Runner) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Enqueue(ctx, ev); err != nil {
				r.log.Error("enqueue failed", "chat_id", ev.ChatID, "kind", ev.Kind.String(), "error", err)
				if errors.Is(err, ErrRunnerStopped) {
					return err
				}
			}
		}
	}
}

// Enqueue ставит событие в очередь чата и не ждёт обработки.
func (r *Runner) Enqueue(ctx context.Context, ev domain.Event) error {
	return r.submit(ctx, job{ev: ev})
}

// Do ставит событие в очередь чата и ждёт результата обработки.
func (r *Runner) Do(ctx context.Context, ev domain.Event) error {
	done := make(chan error, 1)
	if err := r.submit(ctx, job{ev: ev, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRunnerStopped
	}
}

// Close останавливает все очереди и ждёт их завершения.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) submit(ctx context.Context, j job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j.ev.ID == "" {
		j.ev.ID = uuid.NewString()
	}

	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return ErrRunnerStopped
	}

	w, ok := r.workers[j.ev.ChatID]
	if !ok {
		w = &worker{chatID: j.ev.ChatID, wake: make(chan struct{}, 1)}
		r.workers[j.ev.ChatID] = w
		r.wg.Add(1)
		go r.loop(w)
		r.log.Debug("chat queue started", "chat_id", w.chatID)
	}
	if w.pending >= maxPending {
		r.mu.Unlock()
		return fmt.Errorf("%w: chat %d has %d pending events", ErrQueueFull, w.chatID, maxPending)
	}
	w.queue = append(w.queue, j)
	w.pending++
	r.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default: // воркер и так разбудят
	}
	return nil
}

// next снимает первое событие из очереди чата.
func (r *Runner) next(w *worker) (job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(w.queue) == 0 {
		return job{}, false
	}
	j := w.queue[0]
	w.queue[0] = job{}
	w.queue = w.queue[1:]
	return j, true
}

func (r *Runner) release(w *worker) {
	r.mu.Lock()
	w.pending--
	r.mu.Unlock()
}

func (r *Runner) loop(w *worker) {
	defer r.wg.Done()

	idle := time.NewTimer(r.idle)
	defer idle.Stop()

	for {
		select {
		case <-w.wake:
			for r.ctx.Err() == nil {
				j, ok := r.next(w)
				if !ok {
					break
				}
				err := r.process(j.ev)
				if j.done != nil {
					j.done <- err
				}
				r.release(w)
			}
			resetTimer(idle, r.idle)

		case <-idle.C:
			r.mu.Lock()
			if w.pending == 0 {
				delete(r.workers, w.chatID)
				r.mu.Unlock()
				r.log.Debug("chat queue idle, stopped", "chat_id", w.chatID)
				return
			}
			r.mu.Unlock()
			idle.Reset(r.idle)

		case <-r.ctx.Done():
			return
		}
	}
}

// process не даёт панике обработчика уронить очередь чата.
func (r *Runner) process(ev domain.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while handling %s event: %v", ev.Kind, p)
			r.log.Error("handler panicked", "event_id", ev.ID, "chat_id", ev.ChatID, "panic", p)
		}
	}()

	if err = r.handler.Handle(r.ctx, ev); err != nil {
		r.log.Error("handle event failed",
			"event_id", ev.ID,
			"chat_id", ev.ChatID,
			"kind", ev.Kind.String(),
			"error", err,
		)
	}
	return err
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
