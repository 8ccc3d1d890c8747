package kifparse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/kifparse"
	"github.com/automenta/cog-sub003/internal/term"
)

func TestParseAtomsAndLists(t *testing.T) {
	terms, err := kifparse.Parse(`(subclass Cat Mammal) (subclass Mammal Animal)`)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	require.Equal(t, "(subclass Cat Mammal)", terms[0].String())
}

func TestParseVariable(t *testing.T) {
	terms, err := kifparse.Parse(`(subclass ?X ?Y)`)
	require.NoError(t, err)
	l := terms[0].(*term.List)
	require.True(t, l.HasVars())
}

func TestParseQuotedString(t *testing.T) {
	terms, err := kifparse.Parse(`(label "hello\nworld")`)
	require.NoError(t, err)
	l := terms[0].(*term.List)
	a := l.Children()[1].(*term.Atom)
	require.Equal(t, "hello\nworld", a.Value())
}

func TestParseComments(t *testing.T) {
	terms, err := kifparse.Parse(`
		; this is a comment
		(p a b) ; trailing comment
	`)
	require.NoError(t, err)
	require.Len(t, terms, 1)
}

func TestParseUnmatchedParen(t *testing.T) {
	_, err := kifparse.Parse(`(subclass Cat Mammal`)
	require.Error(t, err)
	var perr *kifparse.Error
	require.ErrorAs(t, err, &perr)
}

func TestParseUnmatchedQuote(t *testing.T) {
	_, err := kifparse.Parse(`(label "unterminated)`)
	require.Error(t, err)
}

func TestParseEmptyVariable(t *testing.T) {
	_, err := kifparse.Parse(`(p ? a)`)
	require.Error(t, err)
}

func TestParseEOFMidTerm(t *testing.T) {
	_, err := kifparse.Parse(`(p a`)
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`(subclass Cat Mammal)`,
		`(=> (and (subclass ?X ?Y) (subclass ?Y ?Z)) (subclass ?X ?Z))`,
		`(forall (?x) (instance ?x Cat))`,
		`(likes Carol (mother Alice))`,
	}
	for _, in := range inputs {
		terms, err := kifparse.Parse(in)
		require.NoError(t, err)
		require.Len(t, terms, 1)
		roundTripped, err := kifparse.Parse(terms[0].String())
		require.NoError(t, err)
		require.Len(t, roundTripped, 1)
		require.True(t, term.Equal(terms[0], roundTripped[0]))
	}
}
