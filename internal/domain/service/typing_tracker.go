package service

import (
	"context"
	"sync"
	"time"

	"fazaachat/internal/domain/repository"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/pkg/logger"
)

const DefaultTypingExpiry = 2 * time.Second

// TypingTracker owns the typing flags set by this process. A flag set to
// true clears itself after the expiry interval unless it is refreshed.
type TypingTracker struct {
	repo    repository.TypingRepository
	expiry  time.Duration
	metrics *metrics.Metrics

	mu     sync.Mutex
	timers map[typingSlot]*typingTimer
	writes map[typingSlot]*slotLock
	gen    uint64
	closed bool
}

// slotLock serializes the store writes of one slot so they land in the
// order the tracker decided them.
type slotLock struct {
	mu   sync.Mutex
	refs int
}

type typingSlot struct {
	conversationID string
	userID         string
}

type typingTimer struct {
	timer *time.Timer
	gen   uint64
}

func NewTypingTracker(repo repository.TypingRepository, expiry time.Duration, m *metrics.Metrics) *TypingTracker {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	return &TypingTracker{
		repo:    repo,
		expiry:  expiry,
		metrics: m,
		timers:  make(map[typingSlot]*typingTimer),
		writes:  make(map[typingSlot]*slotLock),
	}
}

func (t *TypingTracker) lockSlot(slot typingSlot) {
	t.mu.Lock()
	l, ok := t.writes[slot]
	if !ok {
		l = &slotLock{}
		t.writes[slot] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
}

func (t *TypingTracker) unlockSlot(slot typingSlot) {
	t.mu.Lock()
	l := t.writes[slot]
	l.refs--
	if l.refs == 0 {
		delete(t.writes, slot)
	}
	t.mu.Unlock()

	l.mu.Unlock()
}

func (t *TypingTracker) Expiry() time.Duration {
	return t.expiry
}

// SetTyping writes the flag. true (re)starts the expiry timer for the slot,
// false cancels it. An expiry that fires while the write is in flight waits
// for it, so the clearing write always lands last.
func (t *TypingTracker) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	slot := typingSlot{conversationID: conversationID, userID: userID}
	t.lockSlot(slot)
	defer t.unlockSlot(slot)

	t.mu.Lock()
	if pending, ok := t.timers[slot]; ok {
		pending.timer.Stop()
		delete(t.timers, slot)
	}
	if typing {
		if t.closed {
			t.mu.Unlock()
			return nil
		}
		t.gen++
		gen := t.gen
		t.timers[slot] = &typingTimer{
			gen:   gen,
			timer: time.AfterFunc(t.expiry, func() { t.expire(slot, gen) }),
		}
	}
	t.mu.Unlock()

	return t.repo.SetTyping(ctx, conversationID, userID, typing)
}

// expire runs on the timer goroutine. A stale generation means the slot
// was refreshed or cleared after this timer was armed.
func (t *TypingTracker) expire(slot typingSlot, gen uint64) {
	t.lockSlot(slot)
	defer t.unlockSlot(slot)

	t.mu.Lock()
	pending, ok := t.timers[slot]
	if !ok || pending.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.timers, slot)
	t.mu.Unlock()

	t.metrics.TypingExpiredInc()
	if err := t.repo.SetTyping(context.Background(), slot.conversationID, slot.userID, false); err != nil {
		logger.Warn("TypingTracker: failed to clear expired flag conversation=%s user=%s: %v", slot.conversationID, slot.userID, err)
	}
}

// ObserveTyping streams the flag of userID, suppressing repeated values.
func (t *TypingTracker) ObserveTyping(ctx context.Context, conversationID, userID string) (<-chan bool, error) {
	raw, err := t.repo.Watch(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan bool, 1)
	go func() {
		defer close(out)
		var last, has bool
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-raw:
				if !ok {
					return
				}
				if has && v == last {
					continue
				}
				last, has = v, true
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close stops every pending timer and clears the flags they guarded.
func (t *TypingTracker) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	slots := make([]typingSlot, 0, len(t.timers))
	for slot, pending := range t.timers {
		pending.timer.Stop()
		slots = append(slots, slot)
	}
	t.timers = make(map[typingSlot]*typingTimer)
	t.mu.Unlock()

	for _, slot := range slots {
		t.lockSlot(slot)
		if err := t.repo.SetTyping(ctx, slot.conversationID, slot.userID, false); err != nil {
			logger.Warn("TypingTracker: failed to clear flag on shutdown conversation=%s user=%s: %v", slot.conversationID, slot.userID, err)
		}
		t.unlockSlot(slot)
	}
}
