package plugins

import (
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kb"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// EqualityRewriting treats any active, positive, oriented equality
// (= lhs rhs) with weight(lhs) > weight(rhs) as a left-to-right rewrite
// rule and applies it in both directions: as a freshly-added rule
// against existing assertions, and as a freshly-added target against
// existing equalities.
type EqualityRewriting struct {
	logger *zap.Logger
}

// NewEqualityRewriting returns an unstarted EqualityRewriting plugin.
func NewEqualityRewriting(logger *zap.Logger) *EqualityRewriting {
	return &EqualityRewriting{logger: noopLogger(logger)}
}

func (p *EqualityRewriting) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.AssertionAdded) {
		p.onAssertionAdded(bus, ctx, e)
	})
	return nil
}

func (p *EqualityRewriting) Shutdown() {}

func (p *EqualityRewriting) onAssertionAdded(bus *eventbus.Bus, ctx *reasonctx.Context, e eventbus.AssertionAdded) {
	a := e.Assertion
	if a.Kind == model.Universal {
		return
	}

	others := p.scopeAssertions(ctx, e.Note, a.ID)

	if a.IsEquality && a.IsOrientedEquality && !a.IsNegated {
		lhs, rhs := equalityOperands(a.KIF)
		for _, target := range others {
			p.tryRewrite(bus, ctx, target, a, lhs, rhs)
		}
	}

	for _, candidate := range others {
		if !candidate.IsEquality || !candidate.IsOrientedEquality || candidate.IsNegated {
			continue
		}
		lhs, rhs := equalityOperands(candidate.KIF)
		p.tryRewrite(bus, ctx, a, candidate, lhs, rhs)
	}
}

// scopeAssertions returns every other ground/skolemized assertion in
// note's KB and the global KB, deduplicated, excluding excludeID.
func (p *EqualityRewriting) scopeAssertions(ctx *reasonctx.Context, note, excludeID string) []*model.Assertion {
	var all []*model.Assertion
	all = append(all, collectAssertions(ctx.GetKB(note))...)
	if note != "" {
		all = append(all, collectAssertions(ctx.GetKB(""))...)
	}
	out := dedupeAssertions(all)
	filtered := out[:0]
	for _, a := range out {
		if a.ID != excludeID && a.Kind != model.Universal {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func collectAssertions(k *kb.KB) []*model.Assertion {
	ids := k.IDs()
	out := make([]*model.Assertion, 0, len(ids))
	for _, id := range ids {
		if a, ok := k.Get(id); ok {
			out = append(out, a)
		}
	}
	return out
}

func equalityOperands(kif *term.List) (lhs, rhs term.Term) {
	return kif.Children()[1], kif.Children()[2]
}

// tryRewrite applies ruleAssertion's (lhs -> rhs) to target's KIF,
// producing a derived assertion when it actually changes something
// meaningful.
func (p *EqualityRewriting) tryRewrite(bus *eventbus.Bus, ctx *reasonctx.Context, target, ruleAssertion *model.Assertion, lhs, rhs term.Term) {
	if target.ID == ruleAssertion.ID {
		return
	}
	rewritten, changed := unify.Rewrite(target.KIF, lhs, rhs)
	if !changed {
		return
	}
	rewrittenList, ok := rewritten.(*term.List)
	if !ok || term.Equal(rewrittenList, target.KIF) {
		return
	}
	if kb.IsTrivial(rewrittenList) {
		return
	}

	matchedIDs := []string{target.ID, ruleAssertion.ID}
	depth := ctx.DerivedDepth(matchedIDs)
	if !passesGuards(rewrittenList, depth) {
		return
	}

	negated := isNegated(rewrittenList)
	priority := (target.Priority + ruleAssertion.Priority) / 2 * reasonctx.PriorityDecay
	note := ctx.CommonSourceNote(matchedIDs)
	kind := model.Ground
	if rewrittenList.HasSkolem() {
		kind = model.Skolemized
	}

	pot := &model.PotentialAssertion{
		KIF:        rewrittenList,
		Priority:   priority,
		SourceNote: note,
		Support:    matchedIDs,
		Kind:       kind,
		IsNegated:  negated,
		Depth:      depth,
		TargetNote: note,
	}
	pot.IsEquality, pot.IsOrientedEquality = equalityFlags(effectiveTerm(rewrittenList, negated))
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: pot})
}
