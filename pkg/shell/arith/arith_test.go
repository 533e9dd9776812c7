package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, expr string, vars MapVars) int64 {
	t.Helper()
	if vars == nil {
		vars = MapVars{}
	}
	v, err := Eval(expr, vars)
	require.NoError(t, err)
	return v
}

func TestOperatorPrecedence(t *testing.T) {
	assert.Equal(t, int64(14), eval(t, "2 + 3 * 4", nil))
	assert.Equal(t, int64(20), eval(t, "(2 + 3) * 4", nil))
}

func TestTernary(t *testing.T) {
	assert.Equal(t, int64(2), eval(t, "0 ? 1 : 2", nil))
	assert.Equal(t, int64(1), eval(t, "1 ? 1 : 2", nil))
}

func TestUnsetVariableIsZero(t *testing.T) {
	assert.Equal(t, int64(5), eval(t, "x + 5", nil))
}

func TestDivisionByZero(t *testing.T) {
	_, err := Eval("1 / 0", MapVars{})
	require.Error(t, err)
}

func TestAssignmentAndCompoundAssignment(t *testing.T) {
	vars := MapVars{}
	assert.Equal(t, int64(5), eval(t, "x = 5", vars))
	assert.Equal(t, int64(5), vars.Get("x"))
	assert.Equal(t, int64(8), eval(t, "x += 3", vars))
	assert.Equal(t, int64(8), vars.Get("x"))
}

func TestPreAndPostIncrement(t *testing.T) {
	vars := MapVars{"x": 1}
	assert.Equal(t, int64(2), eval(t, "++x", vars))
	assert.Equal(t, int64(2), vars.Get("x"))
	assert.Equal(t, int64(2), eval(t, "x++", vars))
	assert.Equal(t, int64(3), vars.Get("x"))
}

func TestBaseLiterals(t *testing.T) {
	assert.Equal(t, int64(255), eval(t, "0xff", nil))
	assert.Equal(t, int64(8), eval(t, "010", nil))
	assert.Equal(t, int64(5), eval(t, "0b101", nil))
	assert.Equal(t, int64(35), eval(t, "16#23", nil))
}

func TestBitwiseAndShift(t *testing.T) {
	assert.Equal(t, int64(6), eval(t, "4 | 2", nil))
	assert.Equal(t, int64(8), eval(t, "1 << 3", nil))
}

func TestLogicalShortCircuit(t *testing.T) {
	assert.Equal(t, int64(1), eval(t, "1 || (1/0)", nil))
}

func TestArraySubscriptArithmetic(t *testing.T) {
	vars := MapVars{}
	vars.SetIndexed("arr", 2, 42)
	assert.Equal(t, int64(42), eval(t, "arr[1+1]", vars))
}
