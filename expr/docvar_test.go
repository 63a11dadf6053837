package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocVarUnderBuildsANestedPath(t *testing.T) {
	require := require.New(t)

	require.Equal(NewDocVar(Field("a")), ROOT.Under(Field("a")))
	require.Equal(NewDocVar(Field("a", "b")), NewDocVar(Field("a")).Under(Field("b")))
	require.Equal(NewDocVar(Field("a")), NewDocVar(Field("a")).Under(nil))
}

func TestDocVarEqual(t *testing.T) {
	require := require.New(t)

	require.True(ROOT.Equal(DocVar{}))
	require.True(NewDocVar(Field("a", "b")).Equal(NewDocVar(Field("a", "b"))))
	require.False(NewDocVar(Field("a")).Equal(NewDocVar(Field("b"))))
	require.False(ROOT.Equal(NewDocVar(Field("a"))))
}

func TestDocVarStringRendersTheDoubleDollarRoot(t *testing.T) {
	require := require.New(t)

	require.Equal("$$ROOT", ROOT.String())
	require.Equal("$$ROOT.a.b", NewDocVar(Field("a", "b")).String())
}

func TestGenUniqNamesAreCollisionFree(t *testing.T) {
	require := require.New(t)

	existing := map[string]struct{}{}
	names := GenUniqNames(20, existing)
	require.Len(names, 20)

	seen := map[string]struct{}{}
	for _, n := range names {
		_, dup := seen[n.Dotted()]
		require.False(dup, "duplicate generated name %s", n.Dotted())
		seen[n.Dotted()] = struct{}{}
	}
}

func TestGenUniqNamesAvoidsExistingNames(t *testing.T) {
	require := require.New(t)

	pre := GenUniqNames(1, map[string]struct{}{})[0]
	existing := map[string]struct{}{pre.Dotted(): {}}

	names := GenUniqNames(5, existing)
	for _, n := range names {
		require.NotEqual(pre.Dotted(), n.Dotted())
	}
}
