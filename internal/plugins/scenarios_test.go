package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/plugins"
	"github.com/automenta/cog-sub003/internal/reasonctx"
)

// wireAll builds a Bus+Context and wires every core plugin onto it, in
// the same order cmd/reasond does. Each scenario below exercises the
// full pipeline rather than a single plugin in isolation.
func wireAll(t *testing.T) (*eventbus.Bus, *reasonctx.Context) {
	t.Helper()
	bus, ctx := newEnv(t)
	all := []plugins.Plugin{
		plugins.NewInputNormalization(nil),
		plugins.NewCommit(),
		plugins.NewForwardChaining(nil),
		plugins.NewEqualityRewriting(nil),
		plugins.NewUniversalInstantiation(nil),
		plugins.NewRetraction(nil),
		plugins.NewStatusAggregation(nil),
	}
	for _, p := range all {
		require.NoError(t, p.Init(bus, ctx))
		t.Cleanup(p.Shutdown)
	}
	return bus, ctx
}

func TestScenarioTransitiveClosureOfSubclass(t *testing.T) {
	bus, _ := wireAll(t)

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(subclass Cat Animal)"
	})

	publishInput(bus, t, "(=> (and (subclass ?X ?Y) (subclass ?Y ?Z)) (subclass ?X ?Z))", "", 10)
	publishInput(bus, t, "(subclass Cat Mammal)", "", 10)
	publishInput(bus, t, "(subclass Mammal Animal)", "", 10)

	derived := wait()
	require.Equal(t, 1, derived.Assertion.Depth)
	require.Len(t, derived.Assertion.Support, 2)
}

func TestScenarioExistentialSkolemization(t *testing.T) {
	bus, _ := wireAll(t)

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return !e.Assertion.KIF.HasVars() && e.Assertion.KIF.HasSkolem()
	})

	publishInput(bus, t, "(exists (?x) (and (instance ?x Cat) (color ?x Black)))", "", 10)

	derived := wait()
	require.False(t, derived.Assertion.KIF.HasVars(), "no free variables should survive Skolemization")
}

func TestScenarioEqualityRewriting(t *testing.T) {
	bus, _ := wireAll(t)

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(likes Carol Bob)"
	})

	publishInput(bus, t, "(= (mother Alice) Bob)", "", 10)
	publishInput(bus, t, "(likes Carol (mother Alice))", "", 10)

	derived := wait()
	require.Len(t, derived.Assertion.Support, 2)
	// Both inputs weigh 6, so each enters with priority 10/(1+6).
	require.InDelta(t, (10.0/7+10.0/7)/2*0.95, derived.Assertion.Priority, 0.01)
}

func TestScenarioRetractionCascade(t *testing.T) {
	bus, ctx := wireAll(t)

	parentAdded := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(parent Alice Bob)"
	})
	ancestorAdded := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(ancestor Alice Bob)"
	})

	publishInput(bus, t, "(=> (parent ?x ?y) (ancestor ?x ?y))", "", 10)
	publishInput(bus, t, "(parent Alice Bob)", "", 10)

	parent := parentAdded()
	ancestor := ancestorAdded()

	parentRetracted := awaitMatch(t, bus, func(e eventbus.AssertionRetracted) bool {
		return e.Assertion.ID == parent.Assertion.ID
	})
	ancestorRetracted := awaitMatch(t, bus, func(e eventbus.AssertionRetracted) bool {
		return e.Assertion.ID == ancestor.Assertion.ID
	})

	bus.Publish(eventbus.RetractionRequest{Kind: eventbus.ByID, ID: parent.Assertion.ID})

	parentRetracted()
	ancestorRetracted()

	_, present := ctx.FindAnywhere(parent.Assertion.ID)
	require.False(t, present)
	_, present = ctx.FindAnywhere(ancestor.Assertion.ID)
	require.False(t, present)
}

func TestScenarioCapacityEviction(t *testing.T) {
	bus := eventbus.New(nil)
	t.Cleanup(bus.Close)
	ctx := reasonctx.New(reasonctx.Config{Bus: bus, MaxKBSize: 4})
	all := []plugins.Plugin{
		plugins.NewInputNormalization(nil),
		plugins.NewCommit(),
		plugins.NewForwardChaining(nil),
		plugins.NewEqualityRewriting(nil),
		plugins.NewUniversalInstantiation(nil),
		plugins.NewRetraction(nil),
		plugins.NewStatusAggregation(nil),
	}
	for _, p := range all {
		require.NoError(t, p.Init(bus, ctx))
		t.Cleanup(p.Shutdown)
	}

	evicted := awaitMatch(t, bus, func(e eventbus.AssertionEvicted) bool { return true })

	facts := []string{"(p A)", "(p B)", "(p C)", "(p D)", "(p E)"}
	for i, f := range facts {
		publishInput(bus, t, f, "", float64(i+1))
	}

	ev := evicted()
	require.Equal(t, "(p A)", ev.Assertion.KIF.String(), "the lowest-priority fact should be evicted")
	require.Len(t, ctx.GetKB("").IDs(), 4)
}

func TestScenarioUniversalInstantiation(t *testing.T) {
	bus, _ := wireAll(t)

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(mortal Socrates)"
	})

	publishInput(bus, t, "(forall (?x) (=> (instance ?x Human) (mortal ?x)))", "", 10)
	publishInput(bus, t, "(instance Socrates Human)", "", 10)

	derived := wait()
	require.Equal(t, 1, derived.Assertion.Depth)
}
