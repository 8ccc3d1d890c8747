// Package model defines the reasoner's persistent domain records —
// Assertion, Rule, and PotentialAssertion — shared by the knowledge base,
// context, event bus, and plugins. It depends only on internal/term so
// that packages on either side of the event bus can import it without a
// cycle.
package model

import "github.com/automenta/cog-sub003/internal/term"

// Kind classifies an Assertion's ground-ness.
type Kind int

const (
	// Ground assertions are variable-free KIF facts.
	Ground Kind = iota
	// Skolemized assertions are ground after existentials were replaced
	// by fresh skolem constants/functions.
	Skolemized
	// Universal assertions have the form (forall vars body).
	Universal
)

func (k Kind) String() string {
	switch k {
	case Ground:
		return "GROUND"
	case Skolemized:
		return "SKOLEMIZED"
	case Universal:
		return "UNIVERSAL"
	default:
		return "UNKNOWN"
	}
}

// Assertion is an admitted, indexed fact in a knowledge base.
type Assertion struct {
	ID        string
	KIF       *term.List
	Priority  float64
	Timestamp int64 // unix nanos at commit time
	SourceNote string // empty means no note (global/unattributed)

	Support []string // ids of direct parents; empty for input facts

	Kind Kind

	IsEquality         bool
	IsOrientedEquality bool
	IsNegated          bool

	// QuantifiedVars holds the forall-bound variable names; non-empty
	// and meaningful only when Kind == Universal.
	QuantifiedVars []string

	Depth int
}

// PotentialAssertion is a candidate to be committed: same fields as
// Assertion but without an id or timestamp, published on the bus and
// turned into an Assertion by the commit plugin upon acceptance.
type PotentialAssertion struct {
	KIF        *term.List
	Priority   float64
	SourceNote string
	Support    []string
	Kind       Kind

	IsEquality         bool
	IsOrientedEquality bool
	IsNegated          bool

	QuantifiedVars []string
	Depth          int

	// TargetNote selects which KB the commit plugin should route this
	// to; empty means the global KB.
	TargetNote string
}

// Rule is a stored implication or equivalence used for forward chaining.
type Rule struct {
	ID         string
	Form       *term.List // (=> ant con) or (<=> ant con)
	Antecedent []Clause
	Consequent term.Term
	Priority   float64
	// Reverse is true for the reverse-direction rule generated from a <=>.
	Reverse bool
}

// Clause is one antecedent conjunct: either a positive List or a negated
// (not List).
type Clause struct {
	Positive  *term.List
	Negated   bool
}

// EffectiveTerm returns the clause's underlying List regardless of polarity.
func (c Clause) EffectiveTerm() *term.List { return c.Positive }

// CanonicalKey returns a string used to compare rules for equality by
// canonical form, independent of identity.
func (r *Rule) CanonicalKey() string {
	return r.Form.String()
}
