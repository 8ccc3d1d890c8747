// Package term implements the immutable KIF term algebra: atoms, variables,
// and lists, with structural identity, interning, and cached derived
// properties (weight, free variables, hash, skolem containment).
package term

import (
	"fmt"
	"strings"
	"sync"
)

// Term is the sum type for the KIF term algebra. The three concrete
// implementations (Atom, Var, List) are the only permitted variants;
// callers dispatch with a type switch rather than an inheritance
// hierarchy, per the reasoner's pattern-matching design.
type Term interface {
	fmt.Stringer

	// isTerm is unexported so Term cannot be implemented outside this package.
	isTerm()

	// Weight is 1 for atoms/vars, 1+sum(child weights) for lists.
	Weight() int

	// Vars returns the set of free variable names occurring in the term.
	Vars() map[string]struct{}

	// HasVars reports whether the term contains any variable.
	HasVars() bool

	// HasSkolem reports whether the term contains a skolem atom or
	// function application, recursively.
	HasSkolem() bool

	// Hash returns a structural hash, stable for equal terms.
	Hash() uint64
}

// SkolemConstPrefix and SkolemFuncPrefix identify skolem terms: an Atom
// whose value starts with SkolemConstPrefix, or a List whose operator
// starts with SkolemFuncPrefix.
const (
	SkolemConstPrefix = "skc_"
	SkolemFuncPrefix  = "skf_"
)

// --- Atom ---------------------------------------------------------------

// Atom is an interned symbolic constant.
type Atom struct {
	value string
}

var (
	atomMu    sync.Mutex
	atomTable = make(map[string]*Atom)
)

// NewAtom returns the interned Atom for value; repeated calls with the
// same value return the same pointer.
func NewAtom(value string) *Atom {
	atomMu.Lock()
	defer atomMu.Unlock()
	if a, ok := atomTable[value]; ok {
		return a
	}
	a := &Atom{value: value}
	atomTable[value] = a
	return a
}

func (*Atom) isTerm() {}

// Value returns the raw atom text.
func (a *Atom) Value() string { return a.value }

func (a *Atom) Weight() int { return 1 }

func (a *Atom) Vars() map[string]struct{} { return nil }

func (a *Atom) HasVars() bool { return false }

func (a *Atom) HasSkolem() bool {
	return strings.HasPrefix(a.value, SkolemConstPrefix)
}

func (a *Atom) Hash() uint64 { return fnv1a(a.value) }

// needsQuoting reports whether an atom's printed form must be quoted:
// it contains whitespace, parens, a quote, '?', or ';'.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " \t\n\r()\"?;")
}

func (a *Atom) String() string {
	if !needsQuoting(a.value) {
		return a.value
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range a.value {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// --- Var ------------------------------------------------------------------

// Var is an interned free variable; its printed name always starts with
// '?' and has length >= 2.
type Var struct {
	name string
}

var (
	varMu    sync.Mutex
	varTable = make(map[string]*Var)
)

// NewVar returns the interned Var for name (including the leading '?').
// Panics if name does not start with '?' or has length < 2; callers in
// the parser are expected to validate before constructing.
func NewVar(name string) *Var {
	if len(name) < 2 || name[0] != '?' {
		panic("term: invalid variable name " + name)
	}
	varMu.Lock()
	defer varMu.Unlock()
	if v, ok := varTable[name]; ok {
		return v
	}
	v := &Var{name: name}
	varTable[name] = v
	return v
}

func (*Var) isTerm() {}

// Name returns the variable's printed name, including the leading '?'.
func (v *Var) Name() string { return v.name }

func (v *Var) Weight() int { return 1 }

func (v *Var) Vars() map[string]struct{} {
	return map[string]struct{}{v.name: {}}
}

func (v *Var) HasVars() bool { return true }

func (v *Var) HasSkolem() bool { return false }

func (v *Var) Hash() uint64 { return fnv1a(v.name) }

func (v *Var) String() string { return v.name }

// --- List -------------------------------------------------------------

// List is an ordered sequence of terms. Lists are not interned; equality
// and lookup compare structurally, accelerated by the cached hash.
type List struct {
	children []Term

	once     sync.Once
	weight   int
	vars     map[string]struct{}
	hasVars  bool
	hasSk    bool
	hash     uint64
	stringed string
}

// NewList constructs a List from children. The slice is copied so the
// caller's backing array may be reused.
func NewList(children ...Term) *List {
	cp := make([]Term, len(children))
	copy(cp, children)
	return &List{children: cp}
}

func (*List) isTerm() {}

// Children returns the list's elements. The returned slice must not be
// mutated by the caller.
func (l *List) Children() []Term { return l.children }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.children) }

// Operator returns the first element's Atom value and true if the list
// is non-empty and its first element is an Atom.
func (l *List) Operator() (string, bool) {
	if len(l.children) == 0 {
		return "", false
	}
	if a, ok := l.children[0].(*Atom); ok {
		return a.value, true
	}
	return "", false
}

func (l *List) init() {
	l.once.Do(func() {
		w := 1
		vars := make(map[string]struct{})
		hasSk := false
		var parts []string
		h := fnv1aOffset
		h = fnv1aMix(h, "(")
		for _, c := range l.children {
			w += c.Weight()
			for name := range c.Vars() {
				vars[name] = struct{}{}
			}
			if c.HasSkolem() {
				hasSk = true
			}
			s := c.String()
			parts = append(parts, s)
			h = fnv1aMix(h, s)
		}
		h = fnv1aMix(h, ")")
		if op, ok := l.Operator(); ok && strings.HasPrefix(op, SkolemFuncPrefix) {
			hasSk = true
		}
		l.weight = w
		if len(vars) > 0 {
			l.vars = vars
			l.hasVars = true
		}
		l.hasSk = hasSk
		l.hash = h
		l.stringed = "(" + strings.Join(parts, " ") + ")"
	})
}

func (l *List) Weight() int {
	l.init()
	return l.weight
}

func (l *List) Vars() map[string]struct{} {
	l.init()
	return l.vars
}

func (l *List) HasVars() bool {
	l.init()
	return l.hasVars
}

func (l *List) HasSkolem() bool {
	l.init()
	return l.hasSk
}

func (l *List) Hash() uint64 {
	l.init()
	return l.hash
}

func (l *List) String() string {
	l.init()
	return l.stringed
}

// Equal reports structural equality: same arity and pairwise-equal
// children (atoms/vars compare by interned identity; lists recurse).
func Equal(a, b Term) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *Atom:
		y, ok := b.(*Atom)
		return ok && x.value == y.value
	case *Var:
		y, ok := b.(*Var)
		return ok && x.name == y.name
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.children) != len(y.children) {
			return false
		}
		if x.Hash() != y.Hash() {
			return false
		}
		for i := range x.children {
			if !Equal(x.children[i], y.children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// --- hashing ------------------------------------------------------------

const (
	fnv1aOffset uint64 = 14695981039346656037
	fnv1aPrime  uint64 = 1099511628211
)

func fnv1aMix(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnv1aPrime
	}
	return h
}

func fnv1a(s string) uint64 {
	return fnv1aMix(fnv1aOffset, s)
}
