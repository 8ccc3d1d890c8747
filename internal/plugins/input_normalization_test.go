package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/plugins"
)

func TestInputNormalizationEmitsGroundFact(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.KIF.String() == "(instance Socrates Human)"
	})
	publishInput(bus, t, "(instance Socrates Human)", "", 10)

	a := wait()
	require.Equal(t, model.Ground, a.Kind)
	require.False(t, a.IsNegated)
}

func TestInputNormalizationRegistersRule(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))

	wait := awaitMatch(t, bus, func(e eventbus.RuleAdded) bool { return true })
	publishInput(bus, t, "(=> (instance ?x Human) (mortal ?x))", "", 10)

	added := wait()
	require.Len(t, added.Rule.Antecedent, 1)
	require.False(t, added.Rule.Reverse)
}

func TestInputNormalizationForallWrappedRuleRegistersBothRuleAndUniversal(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	waitRule := awaitMatch(t, bus, func(e eventbus.RuleAdded) bool { return true })
	waitUniversal := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.Kind == model.Universal
	})

	publishInput(bus, t, "(forall (?x) (=> (instance ?x Human) (mortal ?x)))", "", 10)

	rule := waitRule()
	require.Len(t, rule.Rule.Antecedent, 1)

	universal := waitUniversal()
	require.Equal(t, []string{"?x"}, universal.Assertion.QuantifiedVars)
}

func TestInputNormalizationExistsSkolemizes(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool {
		return e.Assertion.Kind == model.Skolemized
	})
	publishInput(bus, t, "(exists (?x) (loves ?x Mary))", "", 10)

	a := wait()
	require.True(t, a.KIF.HasSkolem())
	require.False(t, a.KIF.HasVars())
}

func TestInputNormalizationDropsGroundInputWithFreeVars(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	check := neverMatches(t, bus, func(e eventbus.AssertionAdded) bool { return true })
	publishInput(bus, t, "(likes ?x Mary)", "", 10)
	check()

	require.Equal(t, 0, ctx.GetKB("").Count())
}

func TestInputNormalizationDropsRuleWithOrInAntecedent(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewInputNormalization(nil).Init(bus, ctx))

	check := neverMatches(t, bus, func(e eventbus.RuleAdded) bool { return true })
	publishInput(bus, t, "(=> (or (p ?x) (q ?x)) (r ?x))", "", 10)
	check()

	require.Empty(t, ctx.Rules(), "`or` in a rule antecedent is unsupported and must not register a rule")
}
