package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupedSetPreservesInsertionOrder(t *testing.T) {
	require := require.New(t)

	g := NewGrouped().Set(Field("b"), Sum(NewLiteral(1))).Set(Field("a"), First(NewLiteral(1)))
	require.Equal([]BsonField{Field("b"), Field("a")}, g.GetAll())
}

func TestGroupedPlusIsRightBiased(t *testing.T) {
	require := require.New(t)

	l := NewGrouped().Set(Field("a"), Sum(NewLiteral(1)))
	r := NewGrouped().Set(Field("a"), Sum(NewLiteral(2)))

	merged := l.Plus(r)
	v, _ := merged.Get(Field("a"))
	require.Equal(Sum(NewLiteral(2)), v)
}

func TestGroupedMapUpFieldsRewritesEveryAccumulator(t *testing.T) {
	require := require.New(t)

	g := NewGrouped().Set(Field("total"), Sum(NewFieldRef(NewDocVar(Field("amount")))))
	rewritten, err := g.MapUpFields(func(d DocVar) DocVar {
		if d.IsRoot() {
			return d
		}
		return NewDocVar(Field("lEft").Under(d.Field))
	})
	require.NoError(err)

	v, _ := rewritten.Get(Field("total"))
	require.Equal("$sum($$ROOT.lEft.amount)", v.Render())
}

func TestGroupedBSONKeysEachAccumulatorByItsField(t *testing.T) {
	require := require.New(t)

	g := NewGrouped().Set(Field("total"), Sum(NewFieldRef(NewDocVar(Field("amount")))))
	doc := g.BSON()
	require.Contains(doc, "total")
}
