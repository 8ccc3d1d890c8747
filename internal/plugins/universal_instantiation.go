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

// UniversalInstantiation matches ground/skolemized assertions against
// stored Universal assertions' bodies, emitting the instantiated
// consequent (when the body is itself an implication/equivalence) or the
// instantiated body (otherwise) once every quantified variable is bound.
//
// A forall-wrapped implication is registered both as a Context rule (see
// ForwardChaining) and as a Universal assertion here; matching against
// the antecedent subterm and emitting only the substituted consequent
// keeps this plugin's output identical to what forward chaining would
// have derived, so the KB's exact-duplicate check makes the slower path
// a no-op rather than a duplicate.
type UniversalInstantiation struct {
	logger *zap.Logger
}

// NewUniversalInstantiation returns an unstarted UniversalInstantiation plugin.
func NewUniversalInstantiation(logger *zap.Logger) *UniversalInstantiation {
	return &UniversalInstantiation{logger: noopLogger(logger)}
}

func (p *UniversalInstantiation) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.AssertionAdded) {
		p.onAssertionAdded(bus, ctx, e)
	})
	return nil
}

func (p *UniversalInstantiation) Shutdown() {}

func (p *UniversalInstantiation) onAssertionAdded(bus *eventbus.Bus, ctx *reasonctx.Context, e eventbus.AssertionAdded) {
	a := e.Assertion
	if a.Kind == model.Universal {
		p.matchNewUniversal(bus, ctx, e.Note, a)
		return
	}
	p.matchNewGround(bus, ctx, e.Note, a)
}

// matchNewGround tries every Universal stored under one of a's predicates
// against a itself.
func (p *UniversalInstantiation) matchNewGround(bus *eventbus.Bus, ctx *reasonctx.Context, note string, a *model.Assertion) {
	for _, pred := range predicatesOf(a.KIF) {
		for _, u := range p.universalsBoth(ctx, note, pred) {
			body, ok := universalBody(u)
			if !ok {
				continue
			}
			for _, target := range matchTargets(body) {
				p.tryInstantiate(bus, ctx, u, target, a)
			}
		}
	}
}

// matchNewUniversal tries u's matchable targets against every ground/
// skolemized assertion already stored under one of those targets'
// predicates.
func (p *UniversalInstantiation) matchNewUniversal(bus *eventbus.Bus, ctx *reasonctx.Context, note string, u *model.Assertion) {
	body, ok := universalBody(u)
	if !ok {
		return
	}
	for _, target := range matchTargets(body) {
		for _, pred := range predicatesOf(target) {
			for _, a := range p.groundBoth(ctx, note, pred) {
				p.tryInstantiate(bus, ctx, u, target, a)
			}
		}
	}
}

// universalBody extracts the quantified body from a Universal assertion's
// (forall (vars...) body) KIF.
func universalBody(u *model.Assertion) (term.Term, bool) {
	_, body, ok := quantifierParts(u.KIF)
	return body, ok
}

func (p *UniversalInstantiation) universalsBoth(ctx *reasonctx.Context, note, pred string) []*model.Assertion {
	var all []*model.Assertion
	all = append(all, ctx.GetKB(note).FindUniversalsByPredicate(pred)...)
	if note != "" {
		all = append(all, ctx.GetKB("").FindUniversalsByPredicate(pred)...)
	}
	return dedupeAssertions(all)
}

func (p *UniversalInstantiation) groundBoth(ctx *reasonctx.Context, note, pred string) []*model.Assertion {
	var all []*model.Assertion
	all = append(all, byPredicate(ctx.GetKB(note), pred)...)
	if note != "" {
		all = append(all, byPredicate(ctx.GetKB(""), pred)...)
	}
	return dedupeAssertions(all)
}

// byPredicate scans a KB's ground/skolemized assertions for ones whose
// KIF mentions pred. There is no dedicated ground-by-predicate index, so
// this walks every id directly; acceptable since it only runs once per
// newly added Universal, not per inference step.
func byPredicate(k *kb.KB, pred string) []*model.Assertion {
	var out []*model.Assertion
	for _, id := range k.IDs() {
		a, ok := k.Get(id)
		if !ok || a.Kind == model.Universal {
			continue
		}
		for _, p := range predicatesOf(a.KIF) {
			if p == pred {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// predicatesOf returns every operator appearing anywhere in t (mirrors
// kb.collectPredicates, which is unexported).
func predicatesOf(t term.Term) []string {
	list, ok := t.(*term.List)
	if !ok {
		return nil
	}
	var out []string
	if op, hasOp := list.Operator(); hasOp {
		out = append(out, op)
	}
	for _, c := range list.Children() {
		out = append(out, predicatesOf(c)...)
	}
	return out
}

// matchTargets returns the subterm(s) of a Universal's body that should
// be unified against ground assertions: the antecedent when the body is
// an implication/equivalence, each conjunct when it is an `and`, else the
// whole body.
func matchTargets(body term.Term) []term.Term {
	list, ok := body.(*term.List)
	if !ok {
		return []term.Term{body}
	}
	op, hasOp := list.Operator()
	if !hasOp {
		return []term.Term{body}
	}
	switch op {
	case "=>", "<=>":
		if list.Len() == 3 {
			return []term.Term{list.Children()[1]}
		}
	case "and":
		return list.Children()[1:]
	}
	return []term.Term{body}
}

// consequentOrBody returns the term to emit (substituted) once target has
// matched: the implication's consequent, or the whole body when it was
// matched directly (plain body or `and` conjunct).
func consequentOrBody(body, target term.Term) term.Term {
	list, ok := body.(*term.List)
	if !ok {
		return body
	}
	op, hasOp := list.Operator()
	if hasOp && (op == "=>" || op == "<=>") && list.Len() == 3 && list.Children()[1] == target {
		return list.Children()[2]
	}
	return body
}

// tryInstantiate unifies target (a subterm of universal's body) against
// candidate's KIF; when every one of universal's quantified variables
// ends up bound, it substitutes them into consequentOrBody and emits the
// result as a derived assertion.
func (p *UniversalInstantiation) tryInstantiate(bus *eventbus.Bus, ctx *reasonctx.Context, universal *model.Assertion, target term.Term, candidate *model.Assertion) {
	if candidate.ID == universal.ID {
		return
	}
	body, ok := universalBody(universal)
	if !ok {
		return
	}

	bindings, ok := unify.Unify(target, candidate.KIF, unify.Bindings{})
	if !ok {
		return
	}
	for _, v := range universal.QuantifiedVars {
		if _, bound := bindings[v]; !bound {
			return
		}
	}

	instantiated := unify.Subst(consequentOrBody(body, target), bindings)
	simplified := reasonctx.Simplify(instantiated)
	matchedIDs := []string{universal.ID, candidate.ID}

	if list, isList := simplified.(*term.List); isList {
		if op, hasOp := list.Operator(); hasOp && op == "and" {
			for _, conjunct := range list.Children()[1:] {
				p.emitInstantiation(bus, ctx, conjunct, matchedIDs)
			}
			return
		}
	}
	p.emitInstantiation(bus, ctx, simplified, matchedIDs)
}

// emitInstantiation applies the standard derived-assertion guards
// (ground, depth/weight, trivial) and publishes result as a candidate
// commit.
func (p *UniversalInstantiation) emitInstantiation(bus *eventbus.Bus, ctx *reasonctx.Context, result term.Term, matchedIDs []string) {
	kif, ok := result.(*term.List)
	if !ok {
		p.logger.Warn("dropping non-list universal instantiation result", zap.String("kif", result.String()))
		return
	}
	if kif.HasVars() {
		return
	}
	if kb.IsTrivial(kif) {
		return
	}

	depth := ctx.DerivedDepth(matchedIDs)
	if !passesGuards(kif, depth) {
		return
	}

	negated := isNegated(kif)
	note := ctx.CommonSourceNote(matchedIDs)
	kind := model.Ground
	if kif.HasSkolem() {
		kind = model.Skolemized
	}
	pot := &model.PotentialAssertion{
		KIF:        kif,
		Priority:   ctx.DerivedPriority(matchedIDs, 0),
		SourceNote: note,
		Support:    matchedIDs,
		Kind:       kind,
		IsNegated:  negated,
		Depth:      depth,
		TargetNote: note,
	}
	pot.IsEquality, pot.IsOrientedEquality = equalityFlags(effectiveTerm(kif, negated))
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: pot})
}
