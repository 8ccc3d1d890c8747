// Package pathindex implements a trie over term structure that supports
// candidate retrieval for unifiable / instance / generalization queries.
// Every query returns a candidate superset; the knowledge base applies a
// final semantic unify/match check to the candidates it returns.
package pathindex

import (
	"sync"

	"github.com/automenta/cog-sub003/internal/term"
)

// Mode selects which candidate relation a Query call computes.
type Mode int

const (
	// ModeUnifiable finds assertions whose structure could unify with the query.
	ModeUnifiable Mode = iota
	// ModeInstance finds assertions that are instances of a pattern query.
	ModeInstance
	// ModeGeneralization finds assertions that generalize the query.
	ModeGeneralization
)

const (
	varKey  = "\x00VAR"
	listKey = "\x00LIST"
)

func atomKey(v string) string { return "A:" + v }
func opKey(v string) string   { return "OP:" + v }

func keyOf(t term.Term) string {
	switch x := t.(type) {
	case *term.Var:
		return varKey
	case *term.Atom:
		return atomKey(x.Value())
	case *term.List:
		if op, ok := x.Operator(); ok {
			return opKey(op)
		}
		return listKey
	default:
		return listKey
	}
}

// node is one trie position. ids holds every assertion id whose indexed
// term passes through this node (the "path-prefix" set); children
// branches further by the discriminant key of the next subterm.
type node struct {
	ids      map[string]struct{}
	children map[string]*node
}

func newNode() *node {
	return &node{ids: make(map[string]struct{})}
}

func (n *node) child(key string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[key]
	if !ok {
		c = newNode()
		n.children[key] = c
	}
	return c
}

// Index is a concurrency-safe path index. Callers that already hold a
// knowledge base's write lock for the mutating call are not required to
// hold anything else; the internal RWMutex exists so the index remains
// safe if ever driven outside that discipline (e.g. from tests).
type Index struct {
	mu   sync.RWMutex
	root *node
}

// New returns an empty Index.
func New() *Index {
	return &Index{root: newNode()}
}

// Insert adds id to the index under the structural path of t. Insertion
// walks t recursively: at each node the id is added both to the current
// node (the path prefix) and to the child keyed by t's discriminant;
// descent continues into t's first child only, per the index's
// path-spine design — remaining siblings refine recall at the current
// depth without being individually indexed deeper.
func (idx *Index) Insert(t term.Term, id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	insertAt(idx.root, t, id)
}

func insertAt(n *node, t term.Term, id string) {
	n.ids[id] = struct{}{}
	child := n.child(keyOf(t))
	child.ids[id] = struct{}{}
	if list, ok := t.(*term.List); ok && list.Len() > 0 {
		insertAt(child, list.Children()[0], id)
	}
}

// Remove deletes id from the index under t's structural path, pruning
// any subtrie left with no ids and no children.
func (idx *Index) Remove(t term.Term, id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	removeAt(idx.root, t, id)
}

func removeAt(n *node, t term.Term, id string) {
	delete(n.ids, id)
	key := keyOf(t)
	child, ok := n.children[key]
	if !ok {
		return
	}
	delete(child.ids, id)
	if list, ok2 := t.(*term.List); ok2 && list.Len() > 0 {
		removeAt(child, list.Children()[0], id)
	}
	if len(child.ids) == 0 && len(child.children) == 0 {
		delete(n.children, key)
	}
}

// Query returns the candidate id set for q under mode.
func (idx *Index) Query(mode Mode, q term.Term) map[string]struct{} {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return collect(mode, idx.root, q)
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func mergeInto(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

func collect(mode Mode, n *node, q term.Term) map[string]struct{} {
	result := make(map[string]struct{})

	if mode == ModeGeneralization {
		if vc, ok := n.children[varKey]; ok {
			mergeInto(result, vc.ids)
		}
	}

	if _, isVar := q.(*term.Var); isVar {
		switch mode {
		case ModeUnifiable, ModeInstance:
			return cloneSet(n.ids)
		case ModeGeneralization:
			mergeInto(result, n.ids)
			return result
		}
	}

	if mode == ModeUnifiable {
		if vc, ok := n.children[varKey]; ok {
			mergeInto(result, vc.ids)
		}
		if list, ok := q.(*term.List); ok {
			if _, hasOp := list.Operator(); hasOp {
				if lc, ok2 := n.children[listKey]; ok2 {
					mergeInto(result, lc.ids)
				}
			}
		}
	}

	specific, ok := n.children[keyOf(q)]
	if !ok {
		return result
	}
	if list, ok2 := q.(*term.List); ok2 && list.Len() > 0 {
		mergeInto(result, collect(mode, specific, list.Children()[0]))
	} else {
		mergeInto(result, specific.ids)
	}
	return result
}
