package reasonctx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kifparse"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

func newTestContext(t *testing.T) *reasonctx.Context {
	t.Helper()
	bus := eventbus.New(nil)
	t.Cleanup(bus.Close)
	return reasonctx.New(reasonctx.Config{Bus: bus, MaxKBSize: 1000})
}

func parseList(t *testing.T, s string) *term.List {
	t.Helper()
	terms, err := kifparse.Parse(s)
	require.NoError(t, err)
	l, ok := terms[0].(*term.List)
	require.True(t, ok)
	return l
}

func TestGetKBCreatesOnDemandAndReuses(t *testing.T) {
	c := newTestContext(t)
	require.NotNil(t, c.GetKB(""))

	a := c.GetKB("note-1")
	b := c.GetKB("note-1")
	require.Same(t, a, b)
	require.NotSame(t, a, c.GetKB(""))
}

func TestRemoveKBDropsScope(t *testing.T) {
	c := newTestContext(t)
	c.GetKB("note-1")
	require.Contains(t, c.NoteIDs(), "note-1")
	c.RemoveKB("note-1")
	require.NotContains(t, c.NoteIDs(), "note-1")
}

func TestFindAnywhereSearchesGlobalThenNotes(t *testing.T) {
	c := newTestContext(t)
	global := c.GetKB("")
	a, ok := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p A)"), Kind: model.Ground})
	require.True(t, ok)

	found, ok := c.FindAnywhere(a.ID)
	require.True(t, ok)
	require.Equal(t, a.ID, found.ID)

	noteKB := c.GetKB("note-1")
	b, ok := noteKB.Commit(&model.PotentialAssertion{KIF: parseList(t, "(q B)"), Kind: model.Ground})
	require.True(t, ok)

	found, ok = c.FindAnywhere(b.ID)
	require.True(t, ok)
	require.Equal(t, b.ID, found.ID)

	_, ok = c.FindAnywhere("does-not-exist")
	require.False(t, ok)
}

func TestCommonSourceNoteAgreement(t *testing.T) {
	c := newTestContext(t)
	global := c.GetKB("")

	p1, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p A)"), Kind: model.Ground, SourceNote: "n1"})
	p2, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p B)"), Kind: model.Ground, SourceNote: "n1"})

	note := c.CommonSourceNote([]string{p1.ID, p2.ID})
	require.Equal(t, "n1", note)
}

func TestCommonSourceNoteDisagreementIsNull(t *testing.T) {
	c := newTestContext(t)
	global := c.GetKB("")

	p1, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p A)"), Kind: model.Ground, SourceNote: "n1"})
	p2, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p B)"), Kind: model.Ground, SourceNote: "n2"})

	note := c.CommonSourceNote([]string{p1.ID, p2.ID})
	require.Equal(t, "", note)
}

func TestCommonSourceNoteTraversesUnattributedParents(t *testing.T) {
	c := newTestContext(t)
	global := c.GetKB("")

	root, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p A)"), Kind: model.Ground, SourceNote: "n1"})
	derived, _ := global.Commit(&model.PotentialAssertion{
		KIF: parseList(t, "(q A)"), Kind: model.Ground, Support: []string{root.ID},
	})

	note := c.CommonSourceNote([]string{derived.ID})
	require.Equal(t, "n1", note)
}

func TestDerivedPriorityAndDepth(t *testing.T) {
	c := newTestContext(t)
	global := c.GetKB("")

	p1, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p A)"), Kind: model.Ground, Priority: 10, Depth: 0})
	p2, _ := global.Commit(&model.PotentialAssertion{KIF: parseList(t, "(p B)"), Kind: model.Ground, Priority: 20, Depth: 2})

	require.InDelta(t, 10*0.95, c.DerivedPriority([]string{p1.ID, p2.ID}, 5), 1e-9)
	require.Equal(t, 3, c.DerivedDepth([]string{p1.ID, p2.ID}))

	require.Equal(t, 42.0, c.DerivedPriority(nil, 42))
	require.Equal(t, 0, c.DerivedDepth(nil))
}

func TestSkolemizeNoFreeVarsProducesConstant(t *testing.T) {
	c := newTestContext(t)
	body := parseList(t, "(and (instance ?x Cat) (color ?x Black))")

	result := c.Skolemize(body, []string{"?x"}, unify.Bindings{})
	require.False(t, result.HasVars())
	require.True(t, result.HasSkolem())
	require.Contains(t, result.String(), "skc_x_")
}

func TestSkolemizeWithFreeVarsProducesFunction(t *testing.T) {
	c := newTestContext(t)
	body := parseList(t, "(owns ?y ?x)")

	result := c.Skolemize(body, []string{"?x"}, unify.Bindings{})
	require.True(t, result.HasSkolem())
	require.True(t, result.HasVars(), "?y was not existential and should remain free")
}

func TestAddRuleAssignsIDAndPublishes(t *testing.T) {
	c := newTestContext(t)
	r := &model.Rule{Form: parseList(t, "(=> (p ?x) (q ?x))")}
	added := c.AddRule(r)
	require.NotEmpty(t, added.ID)
	require.Len(t, c.Rules(), 1)
}

func TestRemoveRuleByForm(t *testing.T) {
	c := newTestContext(t)
	form := parseList(t, "(=> (p ?x) (q ?x))")
	c.AddRule(&model.Rule{Form: form})

	removed, ok := c.RemoveRuleByForm(form)
	require.True(t, ok)
	require.NotNil(t, removed)
	require.Empty(t, c.Rules())
}

func TestSimplifyDoubleNegation(t *testing.T) {
	t1 := parseList(t, "(not (not (p A)))")
	result := reasonctx.Simplify(t1)
	require.Equal(t, "(p A)", result.String())
}

func TestSimplifyNestedDoubleNegation(t *testing.T) {
	t1 := parseList(t, "(and (not (not (p A))) (q B))")
	result := reasonctx.Simplify(t1)
	require.Equal(t, "(and (p A) (q B))", result.String())
}

func TestSimplifyNoChangeReturnsEquivalentTerm(t *testing.T) {
	t1 := parseList(t, "(p A B)")
	result := reasonctx.Simplify(t1)
	require.Equal(t, "(p A B)", result.String())
}
