package pathindex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/kifparse"
	"github.com/automenta/cog-sub003/internal/pathindex"
	"github.com/automenta/cog-sub003/internal/term"
)

func parseOne(t *testing.T, s string) term.Term {
	t.Helper()
	terms, err := kifparse.Parse(s)
	require.NoError(t, err)
	return terms[0]
}

func TestInsertAndUnifiableQuery(t *testing.T) {
	idx := pathindex.New()
	cat := parseOne(t, `(subclass Cat Mammal)`)
	dog := parseOne(t, `(subclass Dog Mammal)`)
	idx.Insert(cat, "a1")
	idx.Insert(dog, "a2")

	query := parseOne(t, `(subclass ?X Mammal)`)
	candidates := idx.Query(pathindex.ModeUnifiable, query)
	require.Contains(t, candidates, "a1")
	require.Contains(t, candidates, "a2")
}

func TestInstanceQuery(t *testing.T) {
	idx := pathindex.New()
	fact := parseOne(t, `(color Tom Black)`)
	idx.Insert(fact, "a1")

	pattern := parseOne(t, `(color ?x Black)`)
	candidates := idx.Query(pathindex.ModeInstance, pattern)
	require.Contains(t, candidates, "a1") // only the operator spine is indexed, so the var argument does not exclude the fact, which is an instance of the pattern

	groundQuery := parseOne(t, `(color Tom Black)`)
	candidates = idx.Query(pathindex.ModeInstance, groundQuery)
	require.Contains(t, candidates, "a1")
}

func TestGeneralizationQuery(t *testing.T) {
	idx := pathindex.New()
	general := parseOne(t, `(subclass ?X Mammal)`)
	idx.Insert(general, "rule1")

	specific := parseOne(t, `(subclass Cat Mammal)`)
	candidates := idx.Query(pathindex.ModeGeneralization, specific)
	require.Contains(t, candidates, "rule1")
}

func TestRemovePrunes(t *testing.T) {
	idx := pathindex.New()
	fact := parseOne(t, `(p a b)`)
	idx.Insert(fact, "a1")
	idx.Remove(fact, "a1")

	candidates := idx.Query(pathindex.ModeUnifiable, fact)
	require.Empty(t, candidates)
}
