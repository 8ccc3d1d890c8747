// Package plugins implements the reasoner's event-driven inference
// components: input normalization, commit routing, forward chaining,
// equality rewriting, universal instantiation, retraction, and status
// aggregation. Plugins never call each other directly — the event bus
// is the only coupling between them, per the Context/EventBus
// parameterization the core is built around.
package plugins

import (
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
)

// Plugin is implemented by every reasoning component wired onto the bus.
// Init subscribes the plugin's handlers; Shutdown releases any resources
// it owns beyond its bus subscriptions (the bus itself outlives
// individual plugins and is drained separately).
type Plugin interface {
	Init(bus *eventbus.Bus, ctx *reasonctx.Context) error
	Shutdown()
}

// DepthGuard and WeightGuard bound derived assertions: anything deeper
// or heavier is dropped silently rather than committed.
const (
	DepthGuard  = 4
	WeightGuard = 150
)

// effectiveTerm strips a single leading "not" wrapper, returning the
// term actually being asserted independent of polarity.
func effectiveTerm(kif *term.List, negated bool) *term.List {
	if !negated {
		return kif
	}
	if kif.Len() == 2 {
		if inner, ok := kif.Children()[1].(*term.List); ok {
			return inner
		}
	}
	return kif
}

// isNegated reports whether kif's top-level operator is "not".
func isNegated(kif *term.List) bool {
	op, ok := kif.Operator()
	return ok && op == "not" && kif.Len() == 2
}

// passesGuards reports whether a candidate derivation is shallow and
// light enough to be worth emitting. Triviality is not checked here.
func passesGuards(kif *term.List, depth int) bool {
	if depth > DepthGuard {
		return false
	}
	if kif.Weight() > WeightGuard {
		return false
	}
	return true
}

// dedupeAssertions removes duplicate ids, preserving first-seen order.
func dedupeAssertions(in []*model.Assertion) []*model.Assertion {
	seen := make(map[string]struct{}, len(in))
	out := make([]*model.Assertion, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// unionSupport merges two support-id slices, deduplicated.
func unionSupport(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func noopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
