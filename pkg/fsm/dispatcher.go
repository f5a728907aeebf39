package fsm

import (
	"container/list"
	"context"
	"errors"
	"log"
	"sync"

	"ledgerbot/pkg/metrics"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// HandleFunc processes one message; Engine.HandleMessage satisfies it.
type HandleFunc func(ctx context.Context, senderID, text string) error

type inbound struct {
	senderID string
	text     string
}

// senderQueue holds the pending messages of one sender. At most one drain goroutine
// runs per queue.
type senderQueue struct {
	messages *list.List
	running  bool
}

// Dispatcher runs messages of one sender strictly in arrival order while different
// senders proceed concurrently. Handlers get the context passed to NewDispatcher, so it
// must outlive Close for queued messages to finish.
type Dispatcher struct {
	ctx    context.Context
	handle HandleFunc

	mu     sync.Mutex
	queues map[string]*senderQueue
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(ctx context.Context, handle HandleFunc) *Dispatcher {
	return &Dispatcher{
		ctx:    ctx,
		handle: handle,
		queues: make(map[string]*senderQueue),
	}
}

// Dispatch enqueues a message and returns without waiting for it to be handled.
func (d *Dispatcher) Dispatch(senderID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	q, ok := d.queues[senderID]
	if !ok {
		q = &senderQueue{messages: list.New()}
		d.queues[senderID] = q
	}
	q.messages.PushBack(inbound{senderID: senderID, text: text})

	if !q.running {
		q.running = true
		d.wg.Add(1)
		go d.drain(senderID, q)
	}
	return nil
}

func (d *Dispatcher) drain(senderID string, q *senderQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		front := q.messages.Front()
		if front == nil {
			q.running = false
			delete(d.queues, senderID)
			d.mu.Unlock()
			return
		}
		q.messages.Remove(front)
		d.mu.Unlock()

		d.run(front.Value.(inbound))
	}
}

func (d *Dispatcher) run(msg inbound) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			log.Printf("[Dispatcher.run] Recovered panic for sender %s: %v", msg.senderID, r)
		}
	}()

	if err := d.handle(d.ctx, msg.senderID, msg.text); err != nil {
		log.Printf("[Dispatcher.run] Handler error for sender %s: %v", msg.senderID, err)
	}
}

// Wait blocks until every queued message has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close rejects further messages and waits for the queued ones to be handled. It
// returns ctx.Err() if ctx ends first; the remaining messages keep running with the
// dispatcher's own context, which the caller cancels afterwards.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
