package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdHandlingCombine(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		a, b, want IdHandling
	}{
		{IgnoreId, IgnoreId, IgnoreId},
		{IgnoreId, IncludeId, IncludeId},
		{IgnoreId, ExcludeId, ExcludeId},
		{IncludeId, IgnoreId, IncludeId},
		{IncludeId, IncludeId, IncludeId},
		{IncludeId, ExcludeId, IncludeId},
		{ExcludeId, IgnoreId, ExcludeId},
		{ExcludeId, IncludeId, IncludeId},
		{ExcludeId, ExcludeId, ExcludeId},
	}
	for _, c := range cases {
		require.Equal(c.want, Combine(c.a, c.b), "Combine(%s, %s)", c.a, c.b)
	}
}

func TestIdHandlingCombineIgnoreIdIsUnit(t *testing.T) {
	require := require.New(t)
	for _, v := range []IdHandling{IgnoreId, IncludeId, ExcludeId} {
		require.Equal(v, Combine(v, IgnoreId))
		require.Equal(v, Combine(IgnoreId, v))
	}
}

func TestIdHandlingChain(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		a, b, want IdHandling
	}{
		{IgnoreId, IgnoreId, IgnoreId},
		{IncludeId, IgnoreId, IncludeId},
		{ExcludeId, IgnoreId, ExcludeId},
		{IgnoreId, IncludeId, IncludeId},
		{IgnoreId, ExcludeId, ExcludeId},
		{IncludeId, ExcludeId, ExcludeId},
		{ExcludeId, IncludeId, IncludeId},
		{IncludeId, IncludeId, IncludeId},
		{ExcludeId, ExcludeId, ExcludeId},
	}
	for _, c := range cases {
		require.Equal(c.want, Chain(c.a, c.b), "Chain(%s, %s)", c.a, c.b)
	}
}

func TestIdHandlingChainIgnoreIdIsUnit(t *testing.T) {
	require := require.New(t)
	for _, v := range []IdHandling{IgnoreId, IncludeId, ExcludeId} {
		require.Equal(v, Chain(v, IgnoreId))
	}
}
