// Package eventbus implements the reasoner's in-process typed
// publish/subscribe bus. It is the only intra-core coupling: plugins
// never call each other directly, only publish and subscribe.
//
// Adapted from the Glass Box event bus (internal/transparency in the
// teacher repo): that bus batched UI-debug events on a single fan-out
// channel per subscriber; this one instead keys dispatch by concrete Go
// type (for Subscribe[E]) or by a KIF pattern (for SubscribePattern), and
// drops the batching window since the reasoner's listeners must observe
// AssertionAdded/Retracted/Evicted as soon as they are published, not on
// a UI-friendly delay.
package eventbus

import (
	"time"

	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/term"
)

// ExternalInput is published when upstream input (file, transport, LLM)
// hands the core a parsed KIF term for a given scope.
type ExternalInput struct {
	KIF        term.Term
	SourceNote string
	Base       float64 // priority base: 10 file/WS, 15 LLM
}

// PotentialAssertionEvent carries a candidate for KB admission.
type PotentialAssertionEvent struct {
	Potential *model.PotentialAssertion
}

func (e PotentialAssertionEvent) KIFTerm() term.Term { return e.Potential.KIF }

// AssertionAdded is published exactly once per id when a KB admits an
// assertion.
type AssertionAdded struct {
	Note      string
	Assertion *model.Assertion
}

func (e AssertionAdded) KIFTerm() term.Term { return e.Assertion.KIF }

// AssertionRetracted is published exactly once per id when an assertion
// leaves a KB (direct retraction or cascade).
type AssertionRetracted struct {
	Note      string
	Assertion *model.Assertion
}

func (e AssertionRetracted) KIFTerm() term.Term { return e.Assertion.KIF }

// AssertionEvicted is published for an assertion chosen by capacity
// enforcement, in addition to (after) the AssertionRetracted the
// cascade emitted for it.
type AssertionEvicted struct {
	Note      string
	Assertion *model.Assertion
}

func (e AssertionEvicted) KIFTerm() term.Term { return e.Assertion.KIF }

// RuleAdded/RuleRemoved report rule-set changes.
type RuleAdded struct{ Rule *model.Rule }
type RuleRemoved struct{ Rule *model.Rule }

// RetractionKind distinguishes the three RetractionRequest forms.
type RetractionKind int

const (
	ByID RetractionKind = iota
	ByNote
	ByRuleForm
)

// RetractionRequest asks the retraction plugin to remove assertions or a
// rule.
type RetractionRequest struct {
	Kind RetractionKind
	ID   string // ByID
	Note string // ByID (scope), ByNote
	KIF  term.Term // ByRuleForm
}

// NoteRemoved is published after a note's KB has been fully cleared and dropped.
type NoteRemoved struct{ Note string }

// StatusLevel classifies a SystemStatus event.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusWarn
	StatusHalt
)

// SystemStatus reports capacity pressure and other operational signals.
type SystemStatus struct {
	Level     StatusLevel
	Message   string
	Note      string
	Timestamp time.Time
}
