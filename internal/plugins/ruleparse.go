package plugins

import "github.com/automenta/cog-sub003/internal/model"
import "github.com/automenta/cog-sub003/internal/term"

// clausesOf flattens an antecedent into its conjuncts: a top-level `and`
// is split into one Clause per conjunct; anything else is a single
// clause. Each conjunct must be a List, or `(not List)` — anything else
// (bare variables, atoms) cannot be turned into a Clause and ok is
// false. `or` in a clause position is a recognized but unsupported
// shape (spec.md's and/or Open Question: the source accepts `and` but
// not `or`): orFound is set and ok is false so the caller drops the
// rule with a warning instead of silently admitting `(or ...)` as an
// opaque, permanently-inert literal clause.
func clausesOf(ant term.Term) (clauses []model.Clause, orFound bool, ok bool) {
	list, ok := ant.(*term.List)
	if !ok {
		return nil, false, false
	}
	if op, hasOp := list.Operator(); hasOp && op == "and" {
		for _, conjunct := range list.Children()[1:] {
			if isOr(conjunct) {
				return nil, true, false
			}
			c, ok := clauseOf(conjunct)
			if !ok {
				return nil, false, false
			}
			clauses = append(clauses, c)
		}
		return clauses, false, true
	}
	if isOr(list) {
		return nil, true, false
	}
	c, ok := clauseOf(ant)
	if !ok {
		return nil, false, false
	}
	return []model.Clause{c}, false, true
}

// isOr reports whether t is a list whose operator is `or`.
func isOr(t term.Term) bool {
	list, ok := t.(*term.List)
	if !ok {
		return false
	}
	op, hasOp := list.Operator()
	return hasOp && op == "or"
}

func clauseOf(t term.Term) (model.Clause, bool) {
	list, ok := t.(*term.List)
	if !ok {
		return model.Clause{}, false
	}
	if op, ok := list.Operator(); ok && op == "not" && list.Len() == 2 {
		inner, ok := list.Children()[1].(*term.List)
		if !ok {
			return model.Clause{}, false
		}
		return model.Clause{Positive: inner, Negated: true}, true
	}
	return model.Clause{Positive: list, Negated: false}, true
}

// consequentVarsCovered reports whether every free variable of
// consequent appears either in one of the antecedent clauses or in
// localQuantified (a forall/exists's own bound variables).
func consequentVarsCovered(clauses []model.Clause, consequent term.Term, localQuantified []string) bool {
	covered := make(map[string]struct{})
	for _, c := range clauses {
		for v := range c.Positive.Vars() {
			covered[v] = struct{}{}
		}
	}
	for _, v := range localQuantified {
		covered[v] = struct{}{}
	}
	for v := range consequent.Vars() {
		if _, ok := covered[v]; !ok {
			return false
		}
	}
	return true
}

// buildRule parses (=> ant con) / (<=> ant con) into one Rule, plus —
// for <=> — a second, reverse-direction Rule. ok is false when the
// antecedent cannot be decomposed into clauses; orUsed is true when
// that failure is specifically an unsupported `or` (as opposed to some
// other malformed shape), so callers can warn with the more specific
// reason. warn is true when the consequent introduces variables not
// covered by the antecedent (the rule is still returned — the
// shape-error taxonomy proceeds where it's safe to, and an uncovered
// consequent variable just never binds).
func buildRule(form *term.List, localQuantified []string) (rules []*model.Rule, warn bool, orUsed bool, ok bool) {
	op, hasOp := form.Operator()
	if !hasOp || form.Len() != 3 {
		return nil, false, false, false
	}
	ant, con := form.Children()[1], form.Children()[2]

	clauses, orUsed, ok := clausesOf(ant)
	if !ok {
		return nil, false, orUsed, false
	}
	warn = !consequentVarsCovered(clauses, con, localQuantified)

	rules = append(rules, &model.Rule{Form: form, Antecedent: clauses, Consequent: con})

	if op == "<=>" {
		reverseClauses, reverseOrUsed, ok := clausesOf(con)
		if !ok {
			return rules, warn, orUsed || reverseOrUsed, true
		}
		reverseWarn := !consequentVarsCovered(reverseClauses, ant, localQuantified)
		reverseForm := term.NewList(term.NewAtom("<=>"), con, ant)
		rules = append(rules, &model.Rule{Form: reverseForm, Antecedent: reverseClauses, Consequent: ant, Reverse: true})
		warn = warn || reverseWarn
		orUsed = orUsed || reverseOrUsed
	}
	return rules, warn, orUsed, true
}
