package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// patternMatchable is implemented by event types that carry a KIF term
// and so can be routed to pattern subscriptions.
type patternMatchable interface {
	KIFTerm() term.Term
}

// maxQueuedPerSubscriber bounds the per-listener FIFO channel. Publish
// blocks once a listener's queue is full rather than dropping — the bus
// guarantees Added/Retracted/Evicted are delivered exactly once.
const maxQueuedPerSubscriber = 4096

// patternPoolWeight bounds how many pattern-subscriber invocations run
// concurrently; this is the "pool-bound" dispatch the design calls for.
const patternPoolWeight = 16

// Bus is the reasoner's in-process typed event bus.
type Bus struct {
	logger *zap.Logger

	mu         sync.RWMutex
	subsByType map[reflect.Type][]*subscription
	patternSub []*patternSubscription

	wg     sync.WaitGroup
	sem    *semaphore.Weighted
	closed atomic.Bool

	nextID atomic.Uint64
}

// New returns a ready Bus. logger may be nil, in which case a no-op
// logger is used.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:     logger,
		subsByType: make(map[reflect.Type][]*subscription),
		sem:        semaphore.NewWeighted(patternPoolWeight),
	}
}

type subscription struct {
	id      uint64
	ch      chan any
	handler func(any)
}

// Handle identifies a previously-registered subscription so it can be
// removed.
type Handle struct {
	id uint64
	t  reflect.Type // zero Type for pattern subscriptions
}

// Subscribe registers handler for every published event whose concrete
// type is E. Dispatch to this listener is FIFO relative to itself;
// ordering across distinct listeners is not guaranteed.
func Subscribe[E any](b *Bus, handler func(E)) Handle {
	var zero E
	t := reflect.TypeOf(zero)
	sub := &subscription{
		id: b.nextID.Add(1),
		ch: make(chan any, maxQueuedPerSubscriber),
		handler: func(e any) {
			handler(e.(E))
		},
	}

	b.mu.Lock()
	b.subsByType[t] = append(b.subsByType[t], sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.runSubscriber(sub)

	return Handle{id: sub.id, t: t}
}

func (b *Bus) runSubscriber(sub *subscription) {
	defer b.wg.Done()
	for e := range sub.ch {
		b.invoke(sub.handler, e)
	}
}

func (b *Bus) invoke(handler func(any), e any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus: listener panic recovered", zap.Any("recover", r))
		}
	}()
	handler(e)
}

// patternSubscription matches incoming events that carry a KIF term
// against pat using one-way matching (only pat's variables bind).
type patternSubscription struct {
	id      uint64
	matcher func(e any) bool
	handler func(e any)
}

// SubscribePattern registers handler to run, via the bounded pattern
// pool, whenever a published event carries a KIF term unifiable-as-a-
// pattern-match against pat. Used by the forward-chaining plugin for
// ad-hoc reactive rules.
func SubscribePattern[E patternMatchable](b *Bus, pat term.Term, handler func(E)) Handle {
	sub := &patternSubscription{
		id: b.nextID.Add(1),
		matcher: func(e any) bool {
			typed, ok := e.(E)
			if !ok {
				return false
			}
			_, matched := unify.Match(pat, typed.KIFTerm(), unify.Bindings{})
			return matched
		},
		handler: func(e any) { handler(e.(E)) },
	}
	b.mu.Lock()
	b.patternSub = append(b.patternSub, sub)
	b.mu.Unlock()
	return Handle{id: sub.id}
}

// Publish dispatches e to every type-matching subscriber (queued on
// that subscriber's own FIFO channel) and to every pattern subscriber
// whose pattern matches e's KIF term (invoked on the bounded pattern
// pool). Publish itself does not block on handler execution, only on a
// full subscriber queue.
func (b *Bus) Publish(e any) {
	if b.closed.Load() {
		return
	}
	t := reflect.TypeOf(e)

	b.mu.RLock()
	subs := append([]*subscription(nil), b.subsByType[t]...)
	patternSubs := append([]*patternSubscription(nil), b.patternSub...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.ch <- e
	}

	for _, ps := range patternSubs {
		if !ps.matcher(e) {
			continue
		}
		ps := ps
		ev := e
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx := context.Background()
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer b.sem.Release(1)
			b.invoke(ps.handler, ev)
		}()
	}
}

// Unsubscribe removes a subscription previously registered by Subscribe
// or SubscribePattern, identified by the Handle each returned. Safe to
// call concurrently with Publish; a dispatch already queued or in
// flight for this listener at the time of the call is not interrupted.
// Unsubscribing an already-removed or unknown Handle is a no-op.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.t != nil {
		subs := b.subsByType[h.t]
		for i, s := range subs {
			if s.id == h.id {
				b.subsByType[h.t] = append(subs[:i:i], subs[i+1:]...)
				close(s.ch)
				return
			}
		}
		return
	}
	for i, ps := range b.patternSub {
		if ps.id == h.id {
			b.patternSub = append(b.patternSub[:i:i], b.patternSub[i+1:]...)
			return
		}
	}
}

// Close stops accepting new publishes, closes every subscriber channel,
// and waits for in-flight dispatch (typed and pattern) to finish.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	subs := b.subsByType
	b.subsByType = make(map[reflect.Type][]*subscription)
	b.mu.Unlock()

	for _, list := range subs {
		for _, s := range list {
			close(s.ch)
		}
	}
	b.wg.Wait()
}
