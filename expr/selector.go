package expr

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Selector is the boolean query-predicate sublanguage used by Match. It
// exposes an associative And, a bottom-up field rewrite, and the
// pipelineability check the operator model's isPipelineable predicate
// relies on.
type Selector interface {
	And(Selector) Selector
	MapUpFields(f func(DocVar) DocVar) Selector
	HasWhere() bool
	Pipelineable() bool
	BSON() bson.M
	Render() string
}

// selAnd is the binary semigroup node. Append is left-to-right and never
// re-associated, matching spec §4.3's Match(sel0) -> Match(sel1) producing
// Match(sel0 AND sel1) in that order.
type selAnd struct{ left, right Selector }

func (s *selAnd) And(o Selector) Selector { return &selAnd{left: s, right: o} }
func (s *selAnd) MapUpFields(f func(DocVar) DocVar) Selector {
	return &selAnd{left: s.left.MapUpFields(f), right: s.right.MapUpFields(f)}
}
func (s *selAnd) HasWhere() bool     { return s.left.HasWhere() || s.right.HasWhere() }
func (s *selAnd) Pipelineable() bool { return s.left.Pipelineable() && s.right.Pipelineable() }
func (s *selAnd) BSON() bson.M {
	return bson.M{"$and": bson.A{s.left.BSON(), s.right.BSON()}}
}
func (s *selAnd) Render() string { return fmt.Sprintf("(%s && %s)", s.left.Render(), s.right.Render()) }

// selOr mirrors selAnd for disjunction.
type selOr struct{ left, right Selector }

func (s *selOr) And(o Selector) Selector { return &selAnd{left: s, right: o} }
func (s *selOr) MapUpFields(f func(DocVar) DocVar) Selector {
	return &selOr{left: s.left.MapUpFields(f), right: s.right.MapUpFields(f)}
}
func (s *selOr) HasWhere() bool     { return s.left.HasWhere() || s.right.HasWhere() }
func (s *selOr) Pipelineable() bool { return s.left.Pipelineable() && s.right.Pipelineable() }
func (s *selOr) BSON() bson.M {
	return bson.M{"$or": bson.A{s.left.BSON(), s.right.BSON()}}
}
func (s *selOr) Render() string { return fmt.Sprintf("(%s || %s)", s.left.Render(), s.right.Render()) }

func Or(l, r Selector) Selector { return &selOr{left: l, right: r} }

// selNot negates a selector.
type selNot struct{ inner Selector }

func Not(s Selector) Selector { return &selNot{inner: s} }

func (s *selNot) And(o Selector) Selector { return &selAnd{left: s, right: o} }
func (s *selNot) MapUpFields(f func(DocVar) DocVar) Selector {
	return &selNot{inner: s.inner.MapUpFields(f)}
}
func (s *selNot) HasWhere() bool     { return s.inner.HasWhere() }
func (s *selNot) Pipelineable() bool { return s.inner.Pipelineable() }
func (s *selNot) BSON() bson.M       { return bson.M{"$nor": bson.A{s.inner.BSON()}} }
func (s *selNot) Render() string     { return "!" + s.inner.Render() }

// cmp is a leaf comparison selector: field <op> value.
type cmp struct {
	op    string
	field DocVar
	value interface{}
}

func leafOf(op string, field DocVar, value interface{}) Selector {
	return &cmp{op: op, field: field, value: value}
}

func Eq(field DocVar, value interface{}) Selector { return leafOf("eq", field, value) }
func Ne(field DocVar, value interface{}) Selector { return leafOf("ne", field, value) }
func Gt(field DocVar, value interface{}) Selector { return leafOf("gt", field, value) }
func Lt(field DocVar, value interface{}) Selector { return leafOf("lt", field, value) }
func In(field DocVar, values []interface{}) Selector {
	return leafOf("in", field, values)
}

func (c *cmp) And(o Selector) Selector { return &selAnd{left: c, right: o} }
func (c *cmp) MapUpFields(f func(DocVar) DocVar) Selector {
	return &cmp{op: c.op, field: f(c.field), value: c.value}
}
func (c *cmp) HasWhere() bool     { return false }
func (c *cmp) Pipelineable() bool { return true }
func (c *cmp) BSON() bson.M {
	if c.field.IsRoot() {
		return bson.M{"$expr": bson.M{"$" + c.op: bson.A{"$$ROOT", c.value}}}
	}
	return bson.M{c.field.Field.Dotted(): bson.M{"$" + c.op: c.value}}
}
func (c *cmp) Render() string { return fmt.Sprintf("%s %s %v", c.field, c.op, c.value) }

// where is the one selector leaf that escapes to the JS sublanguage; its
// mere presence makes the enclosing Match non-pipelineable.
type where struct{ body string }

func Where(body string) Selector { return &where{body: body} }

func (w *where) And(o Selector) Selector                   { return &selAnd{left: w, right: o} }
func (w *where) MapUpFields(f func(DocVar) DocVar) Selector { return w }
func (w *where) HasWhere() bool                             { return true }
func (w *where) Pipelineable() bool                         { return false }
func (w *where) BSON() bson.M                               { return bson.M{"$where": w.body} }
func (w *where) Render() string                             { return "$where(" + w.body + ")" }
