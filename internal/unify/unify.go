// Package unify implements capture-free unification, one-way pattern
// matching, substitution, and subterm rewriting over the term algebra in
// internal/term. All operations are depth-bounded to avoid pathological
// recursion on degenerate inputs.
package unify

import "github.com/automenta/cog-sub003/internal/term"

// MaxDepth bounds recursion in Unify, Match, Subst, and Rewrite. Exceeding
// it is treated as failure, not a panic.
const MaxDepth = 50

// Bindings maps variable names to the terms they are bound to. The zero
// value is an empty binding set. Bindings are never mutated in place;
// every extension returns a new map so callers may hold on to prior
// binding sets (e.g. while enumerating alternatives).
type Bindings map[string]term.Term

// extend returns a shallow copy of b with one additional binding.
func (b Bindings) extend(name string, t term.Term) Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = t
	return out
}

// walk follows a chain of variable bindings to either an unbound
// variable or a non-variable term.
func walk(t term.Term, b Bindings) term.Term {
	for {
		v, ok := t.(*term.Var)
		if !ok {
			return t
		}
		next, bound := b[v.Name()]
		if !bound {
			return t
		}
		t = next
	}
}

// occurs reports whether v occurs free within t under the given
// bindings (following chains), i.e. would produce a cyclic binding.
func occurs(v *term.Var, t term.Term, b Bindings, depth int) bool {
	if depth > MaxDepth {
		return true // treat as a violation: refuse the binding
	}
	t = walk(t, b)
	switch x := t.(type) {
	case *term.Var:
		return x.Name() == v.Name()
	case *term.List:
		for _, c := range x.Children() {
			if occurs(v, c, b, depth+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Unify attempts to unify x and y, extending b. It is two-way: either
// side's variables may bind. Binding is guarded by an occurs-check.
// Returns the extended bindings and true on success, or (nil, false) on
// structural mismatch, arity mismatch, an occurs-check violation, or
// reaching MaxDepth.
func Unify(x, y term.Term, b Bindings) (Bindings, bool) {
	return unify(x, y, b, 0)
}

func unify(x, y term.Term, b Bindings, depth int) (Bindings, bool) {
	if depth > MaxDepth {
		return nil, false
	}
	x = walk(x, b)
	y = walk(y, b)

	if xv, ok := x.(*term.Var); ok {
		if yv, ok := y.(*term.Var); ok && xv.Name() == yv.Name() {
			return b, true
		}
		if occurs(xv, y, b, depth+1) {
			return nil, false
		}
		return b.extend(xv.Name(), y), true
	}
	if yv, ok := y.(*term.Var); ok {
		if occurs(yv, x, b, depth+1) {
			return nil, false
		}
		return b.extend(yv.Name(), x), true
	}

	switch xt := x.(type) {
	case *term.Atom:
		yt, ok := y.(*term.Atom)
		if !ok || xt.Value() != yt.Value() {
			return nil, false
		}
		return b, true
	case *term.List:
		yt, ok := y.(*term.List)
		if !ok || xt.Len() != yt.Len() {
			return nil, false
		}
		cur := b
		for i := range xt.Children() {
			next, ok := unify(xt.Children()[i], yt.Children()[i], cur, depth+1)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	default:
		return nil, false
	}
}

// Match attempts a one-way match of pattern against t: only pattern's
// variables may bind (t's variables, if any, are treated as opaque
// ground symbols). No occurs-check is required since t's structure
// never grows from a binding. Returns the extended bindings and true on
// success.
func Match(pattern, t term.Term, b Bindings) (Bindings, bool) {
	return match(pattern, t, b, 0)
}

func match(pattern, t term.Term, b Bindings, depth int) (Bindings, bool) {
	if depth > MaxDepth {
		return nil, false
	}
	pattern = walk(pattern, b)

	if pv, ok := pattern.(*term.Var); ok {
		return b.extend(pv.Name(), t), true
	}

	switch pt := pattern.(type) {
	case *term.Atom:
		tt, ok := t.(*term.Atom)
		if !ok || pt.Value() != tt.Value() {
			return nil, false
		}
		return b, true
	case *term.List:
		tt, ok := t.(*term.List)
		if !ok || pt.Len() != tt.Len() {
			return nil, false
		}
		cur := b
		for i := range pt.Children() {
			next, ok := match(pt.Children()[i], tt.Children()[i], cur, depth+1)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	default:
		return nil, false
	}
}

// Subst fully substitutes t under b, chasing variable chains to a fixed
// point. Atoms are returned as-is; variables bound (directly or
// transitively) are replaced by their final value, unbound variables
// are returned unchanged; lists are rebuilt only when a descendant
// actually changed, so substitution that touches nothing returns the
// original term pointer.
func Subst(t term.Term, b Bindings) term.Term {
	out, _ := subst(t, b, 0)
	return out
}

func subst(t term.Term, b Bindings, depth int) (term.Term, bool) {
	if depth > MaxDepth {
		return t, false
	}
	switch x := t.(type) {
	case *term.Var:
		bound, ok := b[x.Name()]
		if !ok {
			return t, false
		}
		resolved, _ := subst(bound, b, depth+1)
		return resolved, true
	case *term.Atom:
		return t, false
	case *term.List:
		children := x.Children()
		var changed bool
		newChildren := make([]term.Term, len(children))
		for i, c := range children {
			nc, did := subst(c, b, depth+1)
			newChildren[i] = nc
			changed = changed || did
		}
		if !changed {
			return t, false
		}
		return term.NewList(newChildren...), true
	default:
		return t, false
	}
}

// Rewrite tries to match lhs against target's root; on success it
// returns Subst(rhs, bindings). Otherwise, if target is a list, it
// recurses into children and rebuilds the list with any rewritten
// subterms. Returns (nil, false) if no subterm (including the root)
// changed.
func Rewrite(target, lhs, rhs term.Term) (term.Term, bool) {
	return rewrite(target, lhs, rhs, 0)
}

func rewrite(target, lhs, rhs term.Term, depth int) (term.Term, bool) {
	if depth > MaxDepth {
		return nil, false
	}
	if b, ok := Match(lhs, target, Bindings{}); ok {
		return Subst(rhs, b), true
	}
	list, ok := target.(*term.List)
	if !ok {
		return nil, false
	}
	children := list.Children()
	newChildren := make([]term.Term, len(children))
	var changed bool
	for i, c := range children {
		rewritten, did := rewrite(c, lhs, rhs, depth+1)
		if did {
			newChildren[i] = rewritten
			changed = true
		} else {
			newChildren[i] = c
		}
	}
	if !changed {
		return nil, false
	}
	return term.NewList(newChildren...), true
}
