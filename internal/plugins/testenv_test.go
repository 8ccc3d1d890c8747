package plugins_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kifparse"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
)

const testTimeout = 2 * time.Second

// newEnv returns a fresh Bus and Context, not yet wired to any plugin.
func newEnv(t *testing.T) (*eventbus.Bus, *reasonctx.Context) {
	t.Helper()
	bus := eventbus.New(nil)
	t.Cleanup(bus.Close)
	ctx := reasonctx.New(reasonctx.Config{Bus: bus, MaxKBSize: 1000})
	return bus, ctx
}

// mustParseOne parses kif and requires it to contain exactly one
// top-level term, returned as a *term.List.
func mustParseOne(t *testing.T, kif string) *term.List {
	t.Helper()
	terms, err := kifparse.Parse(kif)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	list, ok := terms[0].(*term.List)
	require.True(t, ok, "expected a list term, got %T", terms[0])
	return list
}

// publishInput publishes kif as an ExternalInput in the given note scope.
func publishInput(bus *eventbus.Bus, t *testing.T, kif, note string, base float64) {
	t.Helper()
	bus.Publish(eventbus.ExternalInput{KIF: mustParseOne(t, kif), SourceNote: note, Base: base})
}

// awaitMatch subscribes for E and blocks until a published E satisfies
// match, timing out the test otherwise. Subscribe before the triggering
// action; this helper registers the listener and returns immediately,
// call the returned wait function once the action has run.
func awaitMatch[E any](t *testing.T, bus *eventbus.Bus, match func(E) bool) func() E {
	t.Helper()
	found := make(chan E, 16)
	eventbus.Subscribe(bus, func(e E) {
		if match(e) {
			select {
			case found <- e:
			default:
			}
		}
	})
	return func() E {
		t.Helper()
		select {
		case e := <-found:
			return e
		case <-time.After(testTimeout):
			t.Fatal("timed out waiting for matching event")
			var zero E
			return zero
		}
	}
}

// neverMatches asserts no matching E is published within a short grace
// window. It must be set up (subscribed) before the triggering action.
func neverMatches[E any](t *testing.T, bus *eventbus.Bus, match func(E) bool) func() {
	t.Helper()
	found := make(chan E, 1)
	eventbus.Subscribe(bus, func(e E) {
		if match(e) {
			select {
			case found <- e:
			default:
			}
		}
	})
	return func() {
		t.Helper()
		select {
		case e := <-found:
			t.Fatalf("expected no matching event, got %+v", e)
		case <-time.After(150 * time.Millisecond):
		}
	}
}
