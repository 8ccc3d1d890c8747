package plugins

import (
	"sync"

	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kb"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// ForwardChaining drives Context rules off every newly-added ground or
// skolemized assertion: it tries the assertion against each antecedent
// clause of each rule, then enumerates ways to satisfy the remaining
// clauses from the KBs before dispatching the consequent. A single-
// clause rule needs no KB querying to satisfy its remaining clauses —
// there are none — so it is instead driven directly off the event bus's
// pattern subscription (§4.6's "ad-hoc reactive rules"), bypassing the
// per-assertion rule-set scan entirely.
type ForwardChaining struct {
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]eventbus.Handle // rule id -> its pattern subscription, single-clause rules only
}

// NewForwardChaining returns an unstarted ForwardChaining plugin.
func NewForwardChaining(logger *zap.Logger) *ForwardChaining {
	return &ForwardChaining{logger: noopLogger(logger), handles: make(map[string]eventbus.Handle)}
}

func (p *ForwardChaining) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.AssertionAdded) {
		p.onAssertionAdded(bus, ctx, e)
	})
	eventbus.Subscribe(bus, func(e eventbus.RuleAdded) {
		p.onRuleAdded(bus, ctx, e.Rule)
	})
	eventbus.Subscribe(bus, func(e eventbus.RuleRemoved) {
		p.onRuleRemoved(bus, e.Rule)
	})
	return nil
}

func (p *ForwardChaining) Shutdown() {}

// onRuleAdded registers a direct SubscribePattern for a single-clause
// rule, keyed on its one antecedent clause: such a rule fires as soon as
// a matching assertion is published, dispatched on the bus's bounded
// pattern pool rather than waiting for the next onAssertionAdded scan.
// Rules with more than one clause are left to onAssertionAdded + solve,
// since satisfying their remaining clauses needs KB queries a single
// fixed pattern can't express. The returned Handle is kept so
// onRuleRemoved can tear the subscription down — otherwise a removed
// rule would keep firing forever.
func (p *ForwardChaining) onRuleAdded(bus *eventbus.Bus, ctx *reasonctx.Context, rule *model.Rule) {
	if len(rule.Antecedent) != 1 {
		return
	}
	clause := rule.Antecedent[0]
	pattern := clauseForm(clause)
	handle := eventbus.SubscribePattern(bus, pattern, func(e eventbus.AssertionAdded) {
		if e.Assertion.Kind == model.Universal {
			return
		}
		bindings, ok := unify.Unify(pattern, e.Assertion.KIF, unify.Bindings{})
		if !ok {
			return
		}
		p.fire(bus, ctx, rule, bindings, []string{e.Assertion.ID})
	})
	p.mu.Lock()
	p.handles[rule.ID] = handle
	p.mu.Unlock()
}

func (p *ForwardChaining) onRuleRemoved(bus *eventbus.Bus, rule *model.Rule) {
	p.mu.Lock()
	handle, ok := p.handles[rule.ID]
	delete(p.handles, rule.ID)
	p.mu.Unlock()
	if ok {
		bus.Unsubscribe(handle)
	}
}

// clauseForm returns the full KIF a clause matches against: its positive
// List, or that List wrapped in `not` when the clause is negated. Using
// the wrapped form for unification and queries makes polarity agreement
// structural rather than a separate bookkeeping check.
func clauseForm(c model.Clause) term.Term {
	if c.Negated {
		return term.NewList(term.NewAtom("not"), c.Positive)
	}
	return c.Positive
}

func (p *ForwardChaining) onAssertionAdded(bus *eventbus.Bus, ctx *reasonctx.Context, e eventbus.AssertionAdded) {
	a := e.Assertion
	if a.Kind == model.Universal {
		return
	}
	for _, rule := range ctx.Rules() {
		if len(rule.Antecedent) == 1 {
			// Single-clause rules are driven reactively by the pattern
			// subscription onRuleAdded registered for them.
			continue
		}
		for i, clause := range rule.Antecedent {
			bindings, ok := unify.Unify(clauseForm(clause), a.KIF, unify.Bindings{})
			if !ok {
				continue
			}
			remaining := without(rule.Antecedent, i)
			p.solve(bus, ctx, rule, remaining, bindings, []string{a.ID}, e.Note)
		}
	}
}

func without(clauses []model.Clause, i int) []model.Clause {
	out := make([]model.Clause, 0, len(clauses)-1)
	out = append(out, clauses[:i]...)
	out = append(out, clauses[i+1:]...)
	return out
}

// solve enumerates ways to satisfy remaining, extending bindings one
// clause at a time via KB queries, and fires the rule for every complete
// assignment.
func (p *ForwardChaining) solve(bus *eventbus.Bus, ctx *reasonctx.Context, rule *model.Rule, remaining []model.Clause, bindings unify.Bindings, matchedIDs []string, note string) {
	if len(remaining) == 0 {
		p.fire(bus, ctx, rule, bindings, matchedIDs)
		return
	}
	clause := remaining[0]
	rest := remaining[1:]

	pattern := unify.Subst(clauseForm(clause), bindings)
	for _, cand := range p.queryBoth(ctx, note, pattern) {
		extended, ok := unify.Unify(clauseForm(clause), cand.KIF, bindings)
		if !ok {
			continue
		}
		p.solve(bus, ctx, rule, rest, extended, append(append([]string(nil), matchedIDs...), cand.ID), note)
	}
}

// queryBoth returns the deduplicated union of matches from note's KB and
// the global KB (global is skipped when note is already global).
func (p *ForwardChaining) queryBoth(ctx *reasonctx.Context, note string, pattern term.Term) []*model.Assertion {
	var all []*model.Assertion
	all = append(all, ctx.GetKB(note).FindUnifiable(pattern)...)
	if note != "" {
		all = append(all, ctx.GetKB("").FindUnifiable(pattern)...)
	}
	return dedupeAssertions(all)
}

func (p *ForwardChaining) fire(bus *eventbus.Bus, ctx *reasonctx.Context, rule *model.Rule, bindings unify.Bindings, matchedIDs []string) {
	substituted := unify.Subst(rule.Consequent, bindings)
	simplified := reasonctx.Simplify(substituted)
	p.dispatchConsequent(bus, ctx, simplified, bindings, matchedIDs, rule.Priority)
}

// dispatchConsequent implements 4.9 step 2: and/forall/exists/otherwise.
func (p *ForwardChaining) dispatchConsequent(bus *eventbus.Bus, ctx *reasonctx.Context, consequent term.Term, bindings unify.Bindings, matchedIDs []string, rulePriority float64) {
	list, isList := consequent.(*term.List)
	if !isList {
		p.logger.Warn("dropping non-list derived consequent", zap.String("kif", consequent.String()))
		return
	}

	op, hasOp := list.Operator()
	if hasOp {
		switch op {
		case "and":
			for _, conjunct := range list.Children()[1:] {
				p.dispatchConsequent(bus, ctx, conjunct, bindings, matchedIDs, rulePriority)
			}
			return
		case "forall":
			p.dispatchForall(bus, ctx, list, bindings, matchedIDs, rulePriority)
			return
		case "exists":
			p.dispatchExists(bus, ctx, list, bindings, matchedIDs)
			return
		}
	}
	p.emitDerived(bus, ctx, list, model.Ground, nil, matchedIDs)
}

func (p *ForwardChaining) dispatchForall(bus *eventbus.Bus, ctx *reasonctx.Context, list *term.List, bindings unify.Bindings, matchedIDs []string, rulePriority float64) {
	vars, body, ok := quantifierParts(list)
	if !ok {
		p.logger.Warn("dropping malformed derived forall", zap.String("kif", list.String()))
		return
	}
	if bodyList, isBodyList := body.(*term.List); isBodyList {
		if bodyOp, ok := bodyList.Operator(); ok && (bodyOp == "=>" || bodyOp == "<=>") {
			rules, warn, orUsed, ok := buildRule(bodyList, vars)
			if !ok {
				if orUsed {
					p.logger.Warn("dropping derived forall-rule: `or` in antecedent is unsupported", zap.String("kif", list.String()))
				} else {
					p.logger.Warn("dropping malformed derived forall-rule", zap.String("kif", list.String()))
				}
				return
			}
			if warn {
				p.logger.Warn("derived forall-rule consequent introduces uncovered variables", zap.String("kif", list.String()))
			}
			priority := ctx.DerivedPriority(matchedIDs, rulePriority)
			for _, r := range rules {
				r.Priority = priority
				ctx.AddRule(r)
			}
			// Also store the derived forall itself as a Universal
			// assertion, mirroring input normalization: forward chaining
			// will fire the Context rule, and universal instantiation
			// will fire against the body's antecedent, but the KB's
			// exact-duplicate check makes the second to commit a no-op.
		}
	}
	p.emitDerived(bus, ctx, list, model.Universal, vars, matchedIDs)
}

func (p *ForwardChaining) dispatchExists(bus *eventbus.Bus, ctx *reasonctx.Context, list *term.List, bindings unify.Bindings, matchedIDs []string) {
	vars, body, ok := quantifierParts(list)
	if !ok {
		p.logger.Warn("dropping malformed derived exists", zap.String("kif", list.String()))
		return
	}
	skolemized := ctx.Skolemize(body, vars, bindings)
	skList, ok := skolemized.(*term.List)
	if !ok {
		p.logger.Warn("skolemized derived exists body is not a list", zap.String("kif", list.String()))
		return
	}
	p.emitDerived(bus, ctx, skList, model.Skolemized, nil, matchedIDs)
}

// emitDerived builds and commits a derived PotentialAssertion, applying
// the depth/weight guards and trivial-KIF rejection up front so a
// dropped derivation never even reaches the KB.
func (p *ForwardChaining) emitDerived(bus *eventbus.Bus, ctx *reasonctx.Context, kif *term.List, kind model.Kind, quantVars []string, matchedIDs []string) {
	if kind != model.Universal && kif.HasVars() {
		p.logger.Warn("dropping derived assertion with unbound variables", zap.String("kif", kif.String()))
		return
	}
	depth := ctx.DerivedDepth(matchedIDs)
	if !passesGuards(kif, depth) {
		return
	}
	if kb.IsTrivial(kif) {
		return
	}
	note := ctx.CommonSourceNote(matchedIDs)
	negated := isNegated(kif)
	pot := &model.PotentialAssertion{
		KIF:            kif,
		Priority:       ctx.DerivedPriority(matchedIDs, 0),
		SourceNote:     note,
		Support:        matchedIDs,
		Kind:           kind,
		IsNegated:      negated,
		QuantifiedVars: quantVars,
		Depth:          depth,
		TargetNote:     note,
	}
	pot.IsEquality, pot.IsOrientedEquality = equalityFlags(effectiveTerm(kif, negated))
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: pot})
}
