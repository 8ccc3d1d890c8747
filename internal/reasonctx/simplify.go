package reasonctx

import "github.com/automenta/cog-sub003/internal/term"

// simplifyIterationCap bounds the number of rewrite passes Simplify
// performs; double-negation chains collapse in one pass per nesting
// level, so degenerate input still terminates quickly.
const simplifyIterationCap = 25

// Simplify eliminates double negation, (not (not X)) -> X, applied
// recursively at every position in t until a pass changes nothing or
// the iteration cap is reached.
func Simplify(t term.Term) term.Term {
	for i := 0; i < simplifyIterationCap; i++ {
		next, changed := simplifyPass(t)
		if !changed {
			return t
		}
		t = next
	}
	return t
}

func simplifyPass(t term.Term) (term.Term, bool) {
	list, ok := t.(*term.List)
	if !ok {
		return t, false
	}
	if op, ok := list.Operator(); ok && op == "not" && list.Len() == 2 {
		if inner, ok := list.Children()[1].(*term.List); ok {
			if innerOp, ok := inner.Operator(); ok && innerOp == "not" && inner.Len() == 2 {
				return inner.Children()[1], true
			}
		}
	}

	children := list.Children()
	newChildren := make([]term.Term, len(children))
	changedAny := false
	for i, c := range children {
		nc, changed := simplifyPass(c)
		newChildren[i] = nc
		changedAny = changedAny || changed
	}
	if !changedAny {
		return t, false
	}
	return term.NewList(newChildren...), true
}
