// Package reasonctx implements the reasoning Context: the global
// knowledge base plus one knowledge base per note, the rule set, and the
// cross-scope helpers (lookup, common-source attribution, derived
// priority/depth, Skolemization, simplification) that only make sense
// once more than one KB is in play. The Context is the only piece of
// runtime state besides the event bus; id generation is an atomic
// counter it owns, not global mutable state.
package reasonctx

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kb"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// PriorityDecay is applied to the minimum parent priority (forward
// chaining) or the averaged parent priority (equality rewriting) when
// deriving a new assertion's priority.
const PriorityDecay = 0.95

// Config configures a new Context.
type Config struct {
	Bus       *eventbus.Bus
	MaxKBSize int
	Logger    *zap.Logger
}

// Context owns every knowledge base (global and note-scoped), the rule
// set, and the counters used to mint assertion, rule, and Skolem ids.
type Context struct {
	bus       *eventbus.Bus
	maxKBSize int
	logger    *zap.Logger

	global *kb.KB

	notesMu sync.RWMutex
	notes   map[string]*kb.KB

	rulesMu sync.RWMutex
	rules   []*model.Rule

	assertionSeq atomic.Uint64
	ruleSeq      atomic.Uint64
	skolemSeq    atomic.Uint64
}

// New returns a Context with an already-created global KB.
func New(cfg Config) *Context {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Context{
		bus:       cfg.Bus,
		maxKBSize: cfg.MaxKBSize,
		logger:    logger,
		notes:     make(map[string]*kb.KB),
	}
	c.global = kb.New(kb.Config{
		MaxSize: cfg.MaxKBSize, Bus: cfg.Bus, IDGen: c.nextAssertionID, Note: "", Logger: logger,
	})
	return c
}

func (c *Context) nextAssertionID() string {
	return fmt.Sprintf("asn_%d", c.assertionSeq.Add(1))
}

func (c *Context) nextRuleID() string {
	return fmt.Sprintf("rul_%d", c.ruleSeq.Add(1))
}

// GetKB returns the global KB when note is empty, else the note-scoped
// KB, creating it on demand with the same capacity as every other KB.
func (c *Context) GetKB(note string) *kb.KB {
	if note == "" {
		return c.global
	}
	c.notesMu.RLock()
	existing, ok := c.notes[note]
	c.notesMu.RUnlock()
	if ok {
		return existing
	}

	c.notesMu.Lock()
	defer c.notesMu.Unlock()
	if existing, ok := c.notes[note]; ok {
		return existing
	}
	created := kb.New(kb.Config{
		MaxSize: c.maxKBSize, Bus: c.bus, IDGen: c.nextAssertionID, Note: note, Logger: c.logger,
	})
	c.notes[note] = created
	return created
}

// RemoveKB drops note's KB entirely. Callers that must retract its
// contents and announce the removal (the retraction plugin) do so
// before calling this.
func (c *Context) RemoveKB(note string) {
	c.notesMu.Lock()
	delete(c.notes, note)
	c.notesMu.Unlock()
}

// NoteIDs returns every currently-registered note scope.
func (c *Context) NoteIDs() []string {
	c.notesMu.RLock()
	defer c.notesMu.RUnlock()
	out := make([]string, 0, len(c.notes))
	for note := range c.notes {
		out = append(out, note)
	}
	return out
}

// FindAnywhere looks for id in the global KB, then every note KB,
// returning the first hit.
func (c *Context) FindAnywhere(id string) (*model.Assertion, bool) {
	if a, ok := c.global.Get(id); ok {
		return a, true
	}
	c.notesMu.RLock()
	notes := make([]*kb.KB, 0, len(c.notes))
	for _, n := range c.notes {
		notes = append(notes, n)
	}
	c.notesMu.RUnlock()
	for _, n := range notes {
		if a, ok := n.Get(id); ok {
			return a, true
		}
	}
	return nil, false
}

// CommonSourceNote attributes a derived assertion to a single note when
// unambiguous. It walks support backward (BFS): assertions carrying a
// note must all agree, or the result is unattributed ("") — and an
// assertion with no note of its own hands the search to its own
// supporters rather than ending it there.
func (c *Context) CommonSourceNote(supportIDs []string) string {
	visited := make(map[string]struct{})
	queue := append([]string(nil), supportIDs...)
	note := ""
	seen := false
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := visited[id]; done {
			continue
		}
		visited[id] = struct{}{}

		a, ok := c.FindAnywhere(id)
		if !ok {
			continue
		}
		if a.SourceNote != "" {
			if !seen {
				note = a.SourceNote
				seen = true
			} else if note != a.SourceNote {
				return ""
			}
		} else {
			queue = append(queue, a.Support...)
		}
	}
	if !seen {
		return ""
	}
	return note
}

// DerivedPriority is the minimum of the named parents' priorities,
// decayed, or base when support is empty.
func (c *Context) DerivedPriority(supportIDs []string, base float64) float64 {
	if len(supportIDs) == 0 {
		return base
	}
	min := 0.0
	found := false
	for _, id := range supportIDs {
		a, ok := c.FindAnywhere(id)
		if !ok {
			continue
		}
		if !found || a.Priority < min {
			min = a.Priority
			found = true
		}
	}
	if !found {
		return base
	}
	return min * PriorityDecay
}

// DerivedDepth is one more than the maximum parent depth, or 0 when
// support is empty (max of nothing is -1, plus one).
func (c *Context) DerivedDepth(supportIDs []string) int {
	max := -1
	for _, id := range supportIDs {
		a, ok := c.FindAnywhere(id)
		if !ok {
			continue
		}
		if a.Depth > max {
			max = a.Depth
		}
	}
	return max + 1
}

// Skolemize eliminates existentials from body: each existential becomes
// a Skolem constant (no free variables survive it) or a Skolem function
// applied to body's free variables that are not themselves existential,
// in a canonical order — sorted by the printed form of their value under
// outer, falling back to the variable's own name when outer leaves it
// unbound.
func (c *Context) Skolemize(body term.Term, existentials []string, outer unify.Bindings) term.Term {
	existSet := make(map[string]struct{}, len(existentials))
	for _, e := range existentials {
		existSet[e] = struct{}{}
	}

	var freeArgs []string
	for v := range body.Vars() {
		if _, excluded := existSet[v]; !excluded {
			freeArgs = append(freeArgs, v)
		}
	}
	sort.Slice(freeArgs, func(i, j int) bool {
		return canonicalSortKey(freeArgs[i], outer) < canonicalSortKey(freeArgs[j], outer)
	})

	argTerms := make([]term.Term, len(freeArgs))
	for i, v := range freeArgs {
		if bound, ok := outer[v]; ok {
			argTerms[i] = unify.Subst(bound, outer)
		} else {
			argTerms[i] = term.NewVar(v)
		}
	}

	bindings := make(unify.Bindings, len(existentials))
	for _, e := range existentials {
		seed := strings.TrimPrefix(e, "?")
		n := c.skolemSeq.Add(1)
		if len(argTerms) == 0 {
			bindings[e] = term.NewAtom(fmt.Sprintf("%s%s_%d", term.SkolemConstPrefix, seed, n))
			continue
		}
		children := make([]term.Term, 0, len(argTerms)+1)
		children = append(children, term.NewAtom(fmt.Sprintf("%s%s_%d", term.SkolemFuncPrefix, seed, n)))
		children = append(children, argTerms...)
		bindings[e] = term.NewList(children...)
	}
	return unify.Subst(body, bindings)
}

func canonicalSortKey(v string, outer unify.Bindings) string {
	if bound, ok := outer[v]; ok {
		return unify.Subst(bound, outer).String()
	}
	return v
}

// AddRule appends r to the rule set, assigning an id if it has none, and
// publishes RuleAdded.
func (c *Context) AddRule(r *model.Rule) *model.Rule {
	if r.ID == "" {
		r.ID = c.nextRuleID()
	}
	c.rulesMu.Lock()
	c.rules = append(c.rules, r)
	c.rulesMu.Unlock()
	c.bus.Publish(eventbus.RuleAdded{Rule: r})
	return r
}

// Rules returns a snapshot of the current rule set.
func (c *Context) Rules() []*model.Rule {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()
	out := make([]*model.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// RemoveRuleByForm removes and returns the rule whose canonical form
// equals kif's printed form, publishing RuleRemoved.
func (c *Context) RemoveRuleByForm(kif *term.List) (*model.Rule, bool) {
	target := kif.String()
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()
	for i, r := range c.rules {
		if r.CanonicalKey() == target {
			c.rules = append(c.rules[:i:i], c.rules[i+1:]...)
			c.bus.Publish(eventbus.RuleRemoved{Rule: r})
			return r, true
		}
	}
	return nil, false
}

// Bus returns the Context's event bus, for collaborators that need to
// publish alongside KB/rule-set mutation (e.g. plugins).
func (c *Context) Bus() *eventbus.Bus { return c.bus }
