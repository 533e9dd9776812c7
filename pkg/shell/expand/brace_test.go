package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBraceCommaList(t *testing.T) {
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, Brace("{a,b}{1..2}"))
}

func TestBraceNumericRange(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, Brace("{1..5}"))
}

func TestBraceAlphaRange(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, Brace("{a..e}"))
}

func TestBraceSteppedRange(t *testing.T) {
	assert.Equal(t, []string{"1", "3", "5", "7", "9"}, Brace("{1..10..2}"))
}

func TestBraceReverseRange(t *testing.T) {
	assert.Equal(t, []string{"5", "4", "3", "2", "1"}, Brace("{5..1}"))
}

func TestBraceLiteralWhenNoCommaOrRange(t *testing.T) {
	// No comma, no "..": ambiguous with a literal brace, left verbatim.
	assert.Equal(t, []string{"{foo}"}, Brace("{foo}"))
}

func TestBraceCardinalityIsProductOfGroups(t *testing.T) {
	out := Brace("{a,b,c}-{1,2}")
	assert.Len(t, out, 6)
}

func TestBraceNestedGroups(t *testing.T) {
	out := Brace("{a,b{1,2}}")
	assert.ElementsMatch(t, []string{"a", "b1", "b2"}, out)
}
