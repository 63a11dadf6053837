// Package expr provides minimal, concrete implementations of the
// collaborator sublanguages the workflow compiler treats as external:
// field paths (BsonField, DocVar), selectors, expressions, reshapes and
// grouped maps. None of this package attempts to be a general aggregation
// expression language; it implements exactly the API surface §6.2 of the
// spec requires.
package expr

import (
	"strings"

	uuid "github.com/satori/go.uuid"
)

// BsonField is a dotted field path, stored as its individual segments.
type BsonField []string

// Field builds a BsonField from dotted-path segments.
func Field(segments ...string) BsonField {
	return BsonField(append([]string(nil), segments...))
}

// Under concatenates two paths: base.Under(rest) is base \ rest from the
// spec, i.e. "rest relative to base".
func (b BsonField) Under(rest BsonField) BsonField {
	out := make(BsonField, 0, len(b)+len(rest))
	out = append(out, b...)
	out = append(out, rest...)
	return out
}

// Dotted renders the path in dotted-key form, e.g. "a.b.c".
func (b BsonField) Dotted() string {
	return strings.Join([]string(b), ".")
}

func (b BsonField) Equal(o BsonField) bool {
	if len(b) != len(o) {
		return false
	}
	for i := range b {
		if b[i] != o[i] {
			return false
		}
	}
	return true
}

// GenUniqName produces a single collision-free temp field name.
func (b BsonField) GenUniqName(existing map[string]struct{}) BsonField {
	return GenUniqNames(1, existing)[0]
}

// GenUniqNames produces n collision-free temp field names, none of which
// appears in existing. The names are UUID-derived so callers never need to
// retry; existing is consulted defensively in case a caller pre-seeded it
// with names that happen to collide.
func GenUniqNames(n int, existing map[string]struct{}) []BsonField {
	out := make([]BsonField, 0, n)
	for len(out) < n {
		name := "tmp_" + strings.ReplaceAll(uuid.NewV4().String(), "-", "")[:12]
		if _, used := existing[name]; used {
			continue
		}
		out = append(out, Field(name))
	}
	return out
}

// DocVar denotes either the document root or a field path relative to it.
type DocVar struct {
	root  bool
	Field BsonField
}

// ROOT is the document-root DocVar.
var ROOT = DocVar{root: true}

// NewDocVar builds a DocVar rooted at the given field path.
func NewDocVar(f BsonField) DocVar {
	if len(f) == 0 {
		return ROOT
	}
	return DocVar{Field: f}
}

// IsRoot reports whether this DocVar is the bare document root.
func (d DocVar) IsRoot() bool { return len(d.Field) == 0 }

// Under rebases this DocVar under an additional field path: ROOT.Under(f)
// == NewDocVar(f); NewDocVar(a).Under(b) == NewDocVar(a.Under(b)).
func (d DocVar) Under(f BsonField) DocVar {
	if len(f) == 0 {
		return d
	}
	return NewDocVar(d.Field.Under(f))
}

func (d DocVar) Equal(o DocVar) bool {
	if d.IsRoot() || o.IsRoot() {
		return d.IsRoot() == o.IsRoot()
	}
	return d.Field.Equal(o.Field)
}

func (d DocVar) String() string {
	if d.IsRoot() {
		return "$$ROOT"
	}
	return "$$ROOT." + d.Field.Dotted()
}

// BSON renders the DocVar as a field-reference expression.
func (d DocVar) BSON() interface{} {
	if d.IsRoot() {
		return "$$ROOT"
	}
	return "$" + d.Field.Dotted()
}

// Reserved names used whenever the merger must keep two operands'
// contributions side by side under a common root.
const (
	LeftVar  = "lEft"
	RightVar = "rIght"
)

// LeftField and RightField are the one-segment BsonFields for the reserved
// names, handy when building Reshape keys.
var (
	LeftField  = Field(LeftVar)
	RightField = Field(RightVar)
)
