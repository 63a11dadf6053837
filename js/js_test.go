package js

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeWrapsOuterAroundInner(t *testing.T) {
	require := require.New(t)

	inner := Raw("function(key, value) { return [key, value + 1]; }")
	outer := Raw("function(key, value) { return [key, value * 2]; }")

	c := Compose(outer, inner)
	require.Equal(
		"function(key, value) {\n  var __r = (function(key, value) { return [key, value + 1]; })(key, value);\n  return (function(key, value) { return [key, value * 2]; })(__r[0], __r[1]);\n}",
		c.Render())
}

func TestComposeWithNilInnerReturnsOuterUnchanged(t *testing.T) {
	require := require.New(t)

	outer := Raw("function(key, value) { return [key, value]; }")
	require.Equal(outer, Compose(outer, nil))
}

func TestComposeWithNilOuterReturnsInnerUnchanged(t *testing.T) {
	require := require.New(t)

	inner := Raw("function(key, value) { return [key, value]; }")
	require.Equal(inner, Compose(nil, inner))
}
