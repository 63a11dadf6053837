// Package workflow implements the operator model, reference rewriter,
// coalescing smart constructors, merger, finalizer and crusher described
// by the compiler specification: a tree of aggregation-pipeline /
// map-reduce / fold-left / parallel-join operators, lowered to a task
// tree for execution.
package workflow

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

// Op is the tagged-union node of the workflow tree (spec's Node<A>, fixed
// to Workflow = Fix[Node]). Every variant below implements it.
type Op interface {
	// Children returns the immediate child operators, in order. Sources
	// return nil; FoldLeft returns head followed by its tail; Join returns
	// its (unordered, but deterministically ordered in this
	// implementation) set of sources.
	Children() []Op
	// Kind classifies the node for the merger and crusher.
	Kind() Kind
}

// Kind is the classification consulted by the merger and crusher, in
// place of the source's SingleSource/PipelineF/ShapePreservingF trait
// hierarchy.
type Kind int

const (
	KindSource Kind = iota
	KindShapePreserving
	KindShapeChanging
	KindJS
	KindFoldLeft
	KindJoin
)

// Pipelineable is implemented by every node the crusher may fold into a
// single aggregation pipeline: the shape-preserving and shape-changing
// variants.
type Pipelineable interface {
	Op
	Src() Op
	// Reparent returns a copy of this node with its child replaced.
	Reparent(newChild Op) Pipelineable
}

// SingleSource is implemented by the JS operators: exactly one child, but
// not pipelineable.
type SingleSource interface {
	Op
	Src() Op
	WithSrc(newSrc Op) SingleSource
}

func isPipelineableKind(k Kind) bool {
	return k == KindShapePreserving || k == KindShapeChanging
}

// IsSource reports whether op has no input.
func IsSource(op Op) bool { return op.Kind() == KindSource }

// IsSingleSource reports whether op has exactly one child (pipeline ops,
// JS ops); false for sources, FoldLeft and Join.
func IsSingleSource(op Op) bool {
	switch op.Kind() {
	case KindShapePreserving, KindShapeChanging, KindJS:
		return true
	default:
		return false
	}
}

// IsPipelineable reports whether op can sit inside an aggregation
// pipeline. A Match is pipelineable only if its selector has no Where
// clause and, when compound, every leaf is itself pipelineable.
func IsPipelineable(op Op) bool {
	if m, ok := op.(*Match); ok {
		return m.Sel.Pipelineable()
	}
	return isPipelineableKind(op.Kind())
}

// IsShapePreserving reports whether op keeps the incoming document shape:
// Match, Limit, Skip, Sort, Out.
func IsShapePreserving(op Op) bool { return op.Kind() == KindShapePreserving }

// --- Sources -----------------------------------------------------------

// Pure is a source node wrapping a literal document.
type Pure struct{ Value bson.M }

func (p *Pure) Children() []Op { return nil }
func (p *Pure) Kind() Kind     { return KindSource }

// Read is a source node reading a collection.
type Read struct{ Collection string }

func (r *Read) Children() []Op { return nil }
func (r *Read) Kind() Kind     { return KindSource }

// --- Shape-preserving pipeline ops --------------------------------------

// Match filters documents by a selector.
type Match struct {
	SrcOp Op
	Sel   expr.Selector
}

func (m *Match) Children() []Op             { return []Op{m.SrcOp} }
func (m *Match) Kind() Kind                 { return KindShapePreserving }
func (m *Match) Src() Op                    { return m.SrcOp }
func (m *Match) Reparent(c Op) Pipelineable { return &Match{SrcOp: c, Sel: m.Sel} }

// Limit caps the number of documents to n.
type Limit struct {
	SrcOp Op
	N     int64
}

func (l *Limit) Children() []Op             { return []Op{l.SrcOp} }
func (l *Limit) Kind() Kind                 { return KindShapePreserving }
func (l *Limit) Src() Op                    { return l.SrcOp }
func (l *Limit) Reparent(c Op) Pipelineable { return &Limit{SrcOp: c, N: l.N} }

// Skip drops the first n documents.
type Skip struct {
	SrcOp Op
	N     int64
}

func (s *Skip) Children() []Op             { return []Op{s.SrcOp} }
func (s *Skip) Kind() Kind                 { return KindShapePreserving }
func (s *Skip) Src() Op                    { return s.SrcOp }
func (s *Skip) Reparent(c Op) Pipelineable { return &Skip{SrcOp: c, N: s.N} }

// SortKey is one field/direction pair of a Sort.
type SortKey struct {
	Field expr.BsonField
	Desc  bool
}

// Sort orders documents by one or more keys.
type Sort struct {
	SrcOp Op
	Keys  []SortKey
}

func (s *Sort) Children() []Op             { return []Op{s.SrcOp} }
func (s *Sort) Kind() Kind                 { return KindShapePreserving }
func (s *Sort) Src() Op                    { return s.SrcOp }
func (s *Sort) Reparent(c Op) Pipelineable { return &Sort{SrcOp: c, Keys: s.Keys} }

// Out writes the current documents to a collection, passing them through
// unchanged (the identity on shape).
type Out struct {
	SrcOp      Op
	Collection string
}

func (o *Out) Children() []Op             { return []Op{o.SrcOp} }
func (o *Out) Kind() Kind                 { return KindShapePreserving }
func (o *Out) Src() Op                    { return o.SrcOp }
func (o *Out) Reparent(c Op) Pipelineable { return &Out{SrcOp: c, Collection: o.Collection} }

// --- Shape-changing pipeline ops ----------------------------------------

// Project reshapes the incoming document.
type Project struct {
	SrcOp Op
	Shape *expr.Reshape
	Id    IdHandling
}

func (p *Project) Children() []Op { return []Op{p.SrcOp} }
func (p *Project) Kind() Kind     { return KindShapeChanging }
func (p *Project) Src() Op        { return p.SrcOp }
func (p *Project) Reparent(c Op) Pipelineable {
	return &Project{SrcOp: c, Shape: p.Shape, Id: p.Id}
}

// Redact conditionally prunes subtrees of the document via expr.
type Redact struct {
	SrcOp Op
	Expr  expr.Expr
}

func (r *Redact) Children() []Op             { return []Op{r.SrcOp} }
func (r *Redact) Kind() Kind                 { return KindShapeChanging }
func (r *Redact) Src() Op                    { return r.SrcOp }
func (r *Redact) Reparent(c Op) Pipelineable { return &Redact{SrcOp: c, Expr: r.Expr} }

// Unwind flattens an array field into one document per element.
type Unwind struct {
	SrcOp Op
	Field expr.DocVar
}

func (u *Unwind) Children() []Op             { return []Op{u.SrcOp} }
func (u *Unwind) Kind() Kind                 { return KindShapeChanging }
func (u *Unwind) Src() Op                    { return u.SrcOp }
func (u *Unwind) Reparent(c Op) Pipelineable { return &Unwind{SrcOp: c, Field: u.Field} }

// Group aggregates documents by a grouping key.
type Group struct {
	SrcOp   Op
	Grouped *expr.Grouped
	By      expr.Expr
}

func (g *Group) Children() []Op             { return []Op{g.SrcOp} }
func (g *Group) Kind() Kind                 { return KindShapeChanging }
func (g *Group) Src() Op                    { return g.SrcOp }
func (g *Group) Reparent(c Op) Pipelineable { return &Group{SrcOp: c, Grouped: g.Grouped, By: g.By} }

// GeoNearSpec carries the $geoNear stage parameters.
type GeoNearSpec struct {
	Near           []float64
	DistanceField  expr.BsonField
	MaxDistance    float64
	SphericalQuery bool
}

// GeoNear performs a geospatial proximity search.
type GeoNear struct {
	SrcOp Op
	Spec  GeoNearSpec
}

func (g *GeoNear) Children() []Op             { return []Op{g.SrcOp} }
func (g *GeoNear) Kind() Kind                 { return KindShapeChanging }
func (g *GeoNear) Src() Op                    { return g.SrcOp }
func (g *GeoNear) Reparent(c Op) Pipelineable { return &GeoNear{SrcOp: c, Spec: g.Spec} }

// --- JS operators (single-source, non-pipelineable) ---------------------

// Map applies a JS function to each document, producing one [key, value]
// pair per input document.
type Map struct {
	SrcOp Op
	Fn    js.Expr
}

func (m *Map) Children() []Op                  { return []Op{m.SrcOp} }
func (m *Map) Kind() Kind                      { return KindJS }
func (m *Map) Src() Op                         { return m.SrcOp }
func (m *Map) WithSrc(c Op) SingleSource       { return &Map{SrcOp: c, Fn: m.Fn} }

// FlatMap applies a JS function producing zero or more [key, value] pairs
// per input document.
type FlatMap struct {
	SrcOp Op
	Fn    js.Expr
}

func (f *FlatMap) Children() []Op            { return []Op{f.SrcOp} }
func (f *FlatMap) Kind() Kind                { return KindJS }
func (f *FlatMap) Src() Op                   { return f.SrcOp }
func (f *FlatMap) WithSrc(c Op) SingleSource { return &FlatMap{SrcOp: c, Fn: f.Fn} }

// Reduce applies a JS reducer to the values sharing a key.
type Reduce struct {
	SrcOp Op
	Fn    js.Expr
}

func (r *Reduce) Children() []Op            { return []Op{r.SrcOp} }
func (r *Reduce) Kind() Kind                { return KindJS }
func (r *Reduce) Src() Op                   { return r.SrcOp }
func (r *Reduce) WithSrc(c Op) SingleSource { return &Reduce{SrcOp: c, Fn: r.Fn} }

// --- Fan-in / parallel ---------------------------------------------------

// FoldLeft folds Head through a nonempty Tail sequence.
type FoldLeft struct {
	Head Op
	Tail []Op // len(Tail) >= 1
}

func (f *FoldLeft) Children() []Op { return append([]Op{f.Head}, f.Tail...) }
func (f *FoldLeft) Kind() Kind     { return KindFoldLeft }

// Join runs over an unordered set of sources in parallel.
type Join struct {
	Srcs []Op
}

func (j *Join) Children() []Op { return append([]Op(nil), j.Srcs...) }
func (j *Join) Kind() Kind     { return KindJoin }
