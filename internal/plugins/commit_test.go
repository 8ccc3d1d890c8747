package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/plugins"
)

func TestCommitRoutesToTargetNoteKB(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	wait := awaitMatch(t, bus, func(e eventbus.AssertionAdded) bool { return e.Note == "noteA" })

	kif := mustParseOne(t, "(instance Socrates Human)")
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: &model.PotentialAssertion{
		KIF: kif, Kind: model.Ground, TargetNote: "noteA",
	}})

	wait()
	require.Equal(t, 1, ctx.GetKB("noteA").Count())
	require.Equal(t, 0, ctx.GetKB("").Count())
}

func TestCommitRejectsTrivialReflexive(t *testing.T) {
	bus, ctx := newEnv(t)
	require.NoError(t, plugins.NewCommit().Init(bus, ctx))

	check := neverMatches(t, bus, func(e eventbus.AssertionAdded) bool { return true })

	kif := mustParseOne(t, "(= Socrates Socrates)")
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: &model.PotentialAssertion{
		KIF: kif, Kind: model.Ground,
	}})

	check()
	require.Equal(t, 0, ctx.GetKB("").Count())
}
