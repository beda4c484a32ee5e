package tictactoe

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
)

const (
	DefaultOutboxSize   = 16
	DefaultWriteTimeout = 10 * time.Second
)

// Broadcaster fans snapshots out to recipients. Each recipient gets its own outbox and
// writer goroutine, so a slow or broken peer never holds up the others.
type Broadcaster struct {
	logger *slog.Logger

	outboxSize   int
	writeTimeout time.Duration

	mu       sync.Mutex
	outboxes map[string]*outbox
	watchers []Recipient
	closed   bool

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewBroadcaster(logger *slog.Logger, outboxSize int, writeTimeout time.Duration) *Broadcaster {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}

	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	return &Broadcaster{
		logger:       logger.With("component", "broadcaster"),
		outboxSize:   outboxSize,
		writeTimeout: writeTimeout,
		outboxes:     make(map[string]*outbox),
		quit:         make(chan struct{}),
	}
}

// Watch - registers a recipient that receives every snapshot regardless of slots.
func (that *Broadcaster) Watch(recipient Recipient) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.watchers = append(that.watchers, recipient)
}

// Publish - queues state for every recipient and every watcher. It never blocks on I/O.
// Callers publish in version order; the GameController does it while holding its lock.
func (that *Broadcaster) Publish(state *entity.GameState, recipients []Recipient) {
	log := that.logger.With("method", "Publish", "version", state.Version)

	payload, err := json.Marshal(state)
	if err != nil {
		log.Error("failed to marshal game state", "error", err)
		return
	}

	for _, box := range that.outboxesFor(recipients) {
		if !box.push(delivery{version: state.Version, payload: payload}) {
			log.Debug("stale snapshot skipped", "recipient", box.recipient.ID())
		}
	}
}

// Forget - stops the writer of a recipient that left and drops what it had pending.
// Recipient ids are unique per connection, a later Publish listing the id starts over.
func (that *Broadcaster) Forget(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if box, ok := that.outboxes[id]; ok {
		delete(that.outboxes, id)
		close(box.done)
	}
}

// Close - stops every writer and waits for them to return.
func (that *Broadcaster) Close() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}

	that.closed = true
	close(that.quit)
	that.mu.Unlock()

	that.wg.Wait()
}

func (that *Broadcaster) outboxesFor(recipients []Recipient) []*outbox {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil
	}

	all := make([]Recipient, 0, len(recipients)+len(that.watchers))
	all = append(all, recipients...)
	all = append(all, that.watchers...)

	boxes := make([]*outbox, 0, len(all))
	for _, recipient := range all {
		id := recipient.ID()

		box, ok := that.outboxes[id]
		if !ok {
			box = newOutbox(recipient, that.outboxSize)
			that.outboxes[id] = box

			that.wg.Add(1)
			go func() {
				defer that.wg.Done()
				that.deliver(box)
			}()
		}

		boxes = append(boxes, box)
	}

	return boxes
}

// deliver - writer loop of one recipient.
func (that *Broadcaster) deliver(box *outbox) {
	log := that.logger.With("method", "deliver", "recipient", box.recipient.ID())

	for {
		select {
		case <-that.quit:
			return
		case <-box.done:
			return
		case <-box.wake:
		}

		for !box.stopped(that.quit) {
			next, ok := box.pop()
			if !ok {
				break
			}

			if dropped := box.takeDropped(); dropped > 0 {
				log.Warn("recipient is lagging, snapshots dropped", "dropped", dropped)
			}

			ctx, cancel := context.WithTimeout(context.Background(), that.writeTimeout)
			err := box.recipient.Send(ctx, next.payload)
			cancel()

			if err != nil {
				log.Error("failed to send game state", "version", next.version, "error", err)
			}
		}
	}
}

type delivery struct {
	version uint64
	payload []byte
}

// outbox keeps pending snapshots of one recipient in strictly increasing version order.
type outbox struct {
	recipient Recipient
	size      int

	mu         sync.Mutex
	pending    []delivery
	lastQueued uint64
	dropped    int

	wake chan struct{}
	done chan struct{}
}

func newOutbox(recipient Recipient, size int) *outbox {
	return &outbox{
		recipient: recipient,
		size:      size,
		pending:   make([]delivery, 0, size),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// push - false when a newer snapshot was already queued.
func (that *outbox) push(next delivery) bool {
	that.mu.Lock()

	if next.version <= that.lastQueued {
		that.mu.Unlock()
		return false
	}

	if len(that.pending) >= that.size {
		that.pending = that.pending[1:]
		that.dropped++
	}

	that.pending = append(that.pending, next)
	that.lastQueued = next.version
	that.mu.Unlock()

	select {
	case that.wake <- struct{}{}:
	default:
	}

	return true
}

func (that *outbox) stopped(quit <-chan struct{}) bool {
	select {
	case <-quit:
		return true
	case <-that.done:
		return true
	default:
		return false
	}
}

func (that *outbox) pop() (delivery, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.pending) == 0 {
		return delivery{}, false
	}

	next := that.pending[0]
	that.pending = that.pending[1:]

	return next, true
}

func (that *outbox) takeDropped() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	dropped := that.dropped
	that.dropped = 0

	return dropped
}
