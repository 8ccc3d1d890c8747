package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/plugins"
)

func commitGround(t *testing.T, bus *eventbus.Bus, kif string) {
	t.Helper()
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: &model.PotentialAssertion{
		KIF: mustParseOne(t, kif), Kind: model.Ground,
	}})
}

// commitOrientedEquality commits kif as a ground equality flagged as
// oriented, as input normalization flags (= lhs rhs) when lhs outweighs rhs.
func commitOrientedEquality(t *testing.T, bus *eventbus.Bus, kif string) {
	t.Helper()
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: &model.PotentialAssertion{
		KIF: mustParseOne(t, kif), Kind: model.Ground, IsEquality: true, IsOrientedEquality: true,
	}})
}

func TestEqualityRewritingRewritesExistingTargetWhenEqualityArrives(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))
	require.NoError(t, plugins.NewEqualityRewriting(nil).Init(bus, ctx))

	commitGround(t, bus, "(likes Carol (mother Alice))")

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(likes Carol Bob)"
	})
	commitOrientedEquality(t, bus, "(= (mother Alice) Bob)")

	derived := wait()
	require.Equal(t, model.Ground, derived.Kind)
	require.Len(t, derived.Support, 2)
}

func TestEqualityRewritingRewritesNewTargetAgainstExistingEquality(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))
	require.NoError(t, plugins.NewEqualityRewriting(nil).Init(bus, ctx))

	commitOrientedEquality(t, bus, "(= (mother Alice) Bob)")

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(likes Carol Bob)"
	})
	commitGround(t, bus, "(likes Carol (mother Alice))")

	wait()
}

func TestEqualityRewritingIgnoresUnorientedEquality(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))
	require.NoError(t, plugins.NewEqualityRewriting(nil).Init(bus, ctx))

	commitGround(t, bus, "(age X 5)")

	// Two bare atoms have equal weight (1), so (= X Y) is not an oriented
	// equality and must not trigger any rewrite of (age X 5).
	inputs := map[string]bool{"(age X 5)": true, "(= X Y)": true}
	check := neverMatches(t, bus, func(e eventbus.AssertionAdded) bool {
		return !inputs[e.Assertion.KIF.String()]
	})
	commitGround(t, bus, "(= X Y)")
	check()
}
