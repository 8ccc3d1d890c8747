// Package kb implements the knowledge base: the capacity-bounded,
// subsumption-checking, dependency-tracking store of ground, skolemized,
// and universal assertions. A reasoning context owns one global
// knowledge base plus zero or more note-scoped ones; each is an
// independent KB instance sharing the same event bus.
package kb

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/pathindex"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// reflexivePredicates lists the predicate atoms for which
// (pred X X) is definitionally trivial and rejected on commit.
var reflexivePredicates = map[string]struct{}{
	"instance":    {},
	"subclass":    {},
	"subrelation": {},
	"equivalent":  {},
	"same":        {},
	"equal":       {},
	"domain":      {},
	"range":       {},
	"=":           {},
}

// IDGenerator mints assertion ids; the owning Context injects one backed
// by a shared atomic counter so ids stay unique across every KB it owns.
type IDGenerator func() string

// Config configures a new KB.
type Config struct {
	MaxSize int
	Bus     *eventbus.Bus
	IDGen   IDGenerator
	// Note names this KB's scope for the events it publishes; empty
	// means the global, unattributed KB.
	Note   string
	Logger *zap.Logger
}

// KB is a single capacity-bounded assertion store. All mutation happens
// under mu in write-lock mode; queries take the read lock and return a
// materialized snapshot before releasing it.
type KB struct {
	mu      sync.RWMutex
	maxSize int
	note    string
	bus     *eventbus.Bus
	idGen   IDGenerator
	logger  *zap.Logger

	byID    map[string]*model.Assertion
	ground  *pathindex.Index            // indexes Ground/Skolemized assertions' KIF
	byPred  map[string]map[string]struct{} // predicate atom -> universal-assertion ids
	deps    map[string]map[string]struct{} // supporter id -> dependent ids
	evictQ  *evictionQueue
	seq     uint64
}

// New returns an empty KB. cfg.MaxSize must be positive; cfg.Bus and
// cfg.IDGen must be non-nil.
func New(cfg Config) *KB {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KB{
		maxSize: cfg.MaxSize,
		note:    cfg.Note,
		bus:     cfg.Bus,
		idGen:   cfg.IDGen,
		logger:  logger,
		byID:    make(map[string]*model.Assertion),
		ground:  pathindex.New(),
		byPred:  make(map[string]map[string]struct{}),
		deps:    make(map[string]map[string]struct{}),
		evictQ:  newEvictionQueue(),
	}
}

// IsTrivial reports whether kif is a reflexive-predicate self-statement,
// or the negation of one — both are rejected before any index work.
func IsTrivial(kif *term.List) bool {
	op, ok := kif.Operator()
	if !ok {
		return false
	}
	if op == "not" && kif.Len() == 2 {
		if inner, ok := kif.Children()[1].(*term.List); ok {
			return IsTrivial(inner)
		}
		return false
	}
	if _, reflexive := reflexivePredicates[op]; !reflexive || kif.Len() != 3 {
		return false
	}
	return term.Equal(kif.Children()[1], kif.Children()[2])
}

// collectPredicates walks t and returns every atom occurring in
// operator position of a List, recursively, deduplicated. A universal
// assertion is registered under each predicate its body mentions so
// find_universals_by_predicate stays a safe index for forward chaining
// and instantiation regardless of which conjunct is being driven.
func collectPredicates(t term.Term) []string {
	seen := make(map[string]struct{})
	var walk func(term.Term)
	walk = func(t term.Term) {
		list, ok := t.(*term.List)
		if !ok {
			return
		}
		if op, ok := list.Operator(); ok {
			seen[op] = struct{}{}
		}
		for _, c := range list.Children() {
			walk(c)
		}
	}
	walk(t)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func (kb *KB) nextSeq() uint64 {
	kb.seq++
	return kb.seq
}

// hasExactGround reports whether kif is already present among the
// ground/skolemized assertions, by structural equality.
func (kb *KB) hasExactGround(kif *term.List) bool {
	candidates := kb.ground.Query(pathindex.ModeUnifiable, kif)
	for id := range candidates {
		if a, ok := kb.byID[id]; ok && term.Equal(a.KIF, kif) {
			return true
		}
	}
	return false
}

// hasExactUniversal reports whether an identical universal assertion is
// already registered under any of kif's predicates.
func (kb *KB) hasExactUniversal(kif *term.List) bool {
	for _, pred := range collectPredicates(kif) {
		for id := range kb.byPred[pred] {
			if a, ok := kb.byID[id]; ok && term.Equal(a.KIF, kif) {
				return true
			}
		}
	}
	return false
}

// isSubsumed reports whether a generalization of kif, with the same
// polarity, is already present: a candidate whose KIF one-way matches
// kif as the pattern. Negation is structural (the "not" wrapper is part
// of the indexed KIF), so a generalization candidate's polarity always
// agrees with kif's — no separate polarity bookkeeping is needed.
func (kb *KB) isSubsumed(kif *term.List) bool {
	candidates := kb.ground.Query(pathindex.ModeGeneralization, kif)
	for id := range candidates {
		a, ok := kb.byID[id]
		if !ok {
			continue
		}
		if _, matched := unify.Match(a.KIF, kif, unify.Bindings{}); matched {
			return true
		}
	}
	return false
}

// ensureCapacity evicts lowest-priority, then oldest, ground/skolemized
// assertions until the KB has room for one more, or the eviction queue
// runs dry. Returns false when capacity could not be made available.
// It also surfaces 90%/98% occupancy as SystemStatus events.
func (kb *KB) ensureCapacity() bool {
	for len(kb.byID) >= kb.maxSize {
		entry, ok := kb.evictQ.pop()
		if !ok {
			return false
		}
		victim, present := kb.byID[entry.id]
		if !present || victim.Kind == model.Universal {
			continue // stale entry: already retracted directly
		}
		visited := make(map[string]struct{})
		kb.retractCascade(entry.id, visited)
		kb.publishEvicted(victim)
	}
	ratio := float64(len(kb.byID)+1) / float64(kb.maxSize)
	switch {
	case ratio >= 0.98:
		kb.publishStatus(eventbus.StatusHalt, "knowledge base at or above 98% capacity")
	case ratio >= 0.90:
		kb.publishStatus(eventbus.StatusWarn, "knowledge base at or above 90% capacity")
	}
	return true
}

func (kb *KB) publishEvicted(a *model.Assertion) {
	kb.bus.Publish(eventbus.AssertionEvicted{Note: kb.note, Assertion: a})
}

func (kb *KB) publishStatus(level eventbus.StatusLevel, msg string) {
	kb.bus.Publish(eventbus.SystemStatus{
		Level: level, Message: msg, Note: kb.note, Timestamp: time.Now(),
	})
}

// Commit admits pot as a new Assertion, or reports rejection. Rejection
// reasons are silent to the caller by design (the reasoner treats a
// rejected commit as a no-op, not an error); callers that need to know
// why can compare against IsTrivial/isSubsumed/hasExact* directly in
// tests.
func (kb *KB) Commit(pot *model.PotentialAssertion) (*model.Assertion, bool) {
	if IsTrivial(pot.KIF) {
		return nil, false
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if pot.Kind == model.Universal {
		if kb.hasExactUniversal(pot.KIF) {
			return nil, false
		}
	} else {
		if kb.hasExactGround(pot.KIF) {
			return nil, false
		}
		if kb.isSubsumed(pot.KIF) {
			return nil, false
		}
		if !kb.ensureCapacity() {
			kb.publishStatus(eventbus.StatusWarn, "commit rejected: no capacity available")
			return nil, false
		}
	}

	a := &model.Assertion{
		ID:                 kb.idGen(),
		KIF:                pot.KIF,
		Priority:           pot.Priority,
		Timestamp:          time.Now().UnixNano(),
		SourceNote:         pot.SourceNote,
		Support:            append([]string(nil), pot.Support...),
		Kind:               pot.Kind,
		IsEquality:         pot.IsEquality,
		IsOrientedEquality: pot.IsOrientedEquality,
		IsNegated:          pot.IsNegated,
		QuantifiedVars:     append([]string(nil), pot.QuantifiedVars...),
		Depth:              pot.Depth,
	}

	kb.byID[a.ID] = a
	if a.Kind == model.Universal {
		for _, pred := range collectPredicates(a.KIF) {
			set, ok := kb.byPred[pred]
			if !ok {
				set = make(map[string]struct{})
				kb.byPred[pred] = set
			}
			set[a.ID] = struct{}{}
		}
	} else {
		kb.ground.Insert(a.KIF, a.ID)
		kb.evictQ.push(evictionEntry{id: a.ID, priority: a.Priority, seq: kb.nextSeq()})
	}
	for _, supID := range a.Support {
		set, ok := kb.deps[supID]
		if !ok {
			set = make(map[string]struct{})
			kb.deps[supID] = set
		}
		set[a.ID] = struct{}{}
	}

	kb.bus.Publish(eventbus.AssertionAdded{Note: kb.note, Assertion: a})
	return a, true
}

// retractCascade removes id and, transitively, everything that depends
// on it, guarded by visited so a diamond-shaped support graph (two
// derivations sharing a grandparent) is re-entrant safe and each id is
// published at most once.
func (kb *KB) retractCascade(id string, visited map[string]struct{}) *model.Assertion {
	if _, seen := visited[id]; seen {
		return nil
	}
	visited[id] = struct{}{}

	a, ok := kb.byID[id]
	if !ok {
		return nil
	}
	dependents := kb.deps[id]
	delete(kb.byID, id)
	if a.Kind == model.Universal {
		for _, pred := range collectPredicates(a.KIF) {
			if set, ok := kb.byPred[pred]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(kb.byPred, pred)
				}
			}
		}
	} else {
		kb.ground.Remove(a.KIF, id)
	}
	for _, supID := range a.Support {
		if set, ok := kb.deps[supID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(kb.deps, supID)
			}
		}
	}
	delete(kb.deps, id)

	kb.bus.Publish(eventbus.AssertionRetracted{Note: kb.note, Assertion: a})

	for depID := range dependents {
		kb.retractCascade(depID, visited)
	}
	return a
}

// Retract removes id and cascades to every assertion that (directly or
// transitively) depends on it for support.
func (kb *KB) Retract(id string) (*model.Assertion, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	a := kb.retractCascade(id, make(map[string]struct{}))
	return a, a != nil
}

// Clear removes every assertion in this KB, cascading through the
// dependency graph, then resets the indices to fresh, empty ones.
func (kb *KB) Clear() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	ids := make([]string, 0, len(kb.byID))
	for id := range kb.byID {
		ids = append(ids, id)
	}
	visited := make(map[string]struct{})
	for _, id := range ids {
		kb.retractCascade(id, visited)
	}
	kb.ground = pathindex.New()
	kb.byPred = make(map[string]map[string]struct{})
	kb.deps = make(map[string]map[string]struct{})
	kb.evictQ = newEvictionQueue()
}

// FindUnifiable returns every ground/skolemized assertion whose KIF
// unifies with q, after a final semantic check over the index's
// candidate superset.
func (kb *KB) FindUnifiable(q term.Term) []*model.Assertion {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	candidates := kb.ground.Query(pathindex.ModeUnifiable, q)
	out := make([]*model.Assertion, 0, len(candidates))
	for id := range candidates {
		a, ok := kb.byID[id]
		if !ok {
			continue
		}
		if _, matched := unify.Unify(q, a.KIF, unify.Bindings{}); matched {
			out = append(out, a)
		}
	}
	return out
}

// FindInstances returns every ground/skolemized assertion that is a
// one-way match instance of pattern.
func (kb *KB) FindInstances(pattern term.Term) []*model.Assertion {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	candidates := kb.ground.Query(pathindex.ModeInstance, pattern)
	out := make([]*model.Assertion, 0, len(candidates))
	for id := range candidates {
		a, ok := kb.byID[id]
		if !ok {
			continue
		}
		if _, matched := unify.Match(pattern, a.KIF, unify.Bindings{}); matched {
			out = append(out, a)
		}
	}
	return out
}

// FindUniversalsByPredicate returns every universal assertion whose body
// mentions atom in operator position.
func (kb *KB) FindUniversalsByPredicate(atom string) []*model.Assertion {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ids := kb.byPred[atom]
	out := make([]*model.Assertion, 0, len(ids))
	for id := range ids {
		if a, ok := kb.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the assertion stored under id, if present.
func (kb *KB) Get(id string) (*model.Assertion, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	a, ok := kb.byID[id]
	return a, ok
}

// IDs returns every assertion id currently stored.
func (kb *KB) IDs() []string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make([]string, 0, len(kb.byID))
	for id := range kb.byID {
		out = append(out, id)
	}
	return out
}

// Count returns the number of assertions currently stored.
func (kb *KB) Count() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.byID)
}
