package expr

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bsonflow/wfc/js"
)

// Reshape is an ordered field -> Expr projection. Order is preserved via a
// parallel key slice since Go maps have no stable iteration order and the
// BSON rendering of a $project must be deterministic.
type Reshape struct {
	keys   []BsonField
	values map[string]Expr
}

func NewReshape() *Reshape {
	return &Reshape{values: make(map[string]Expr)}
}

func (r *Reshape) Get(field BsonField) (Expr, bool) {
	v, ok := r.values[field.Dotted()]
	return v, ok
}

// Set assigns field -> value, preserving first-insertion order; a repeat
// Set of an existing field updates the value in place.
func (r *Reshape) Set(field BsonField, value Expr) *Reshape {
	out := r.clone()
	k := field.Dotted()
	if _, exists := out.values[k]; !exists {
		out.keys = append(out.keys, field)
	}
	out.values[k] = value
	return out
}

func (r *Reshape) GetAll() []BsonField { return append([]BsonField(nil), r.keys...) }

func (r *Reshape) SetAll(f func(BsonField, Expr) Expr) *Reshape {
	out := NewReshape()
	for _, k := range r.keys {
		out = out.Set(k, f(k, r.values[k.Dotted()]))
	}
	return out
}

func (r *Reshape) clone() *Reshape {
	out := &Reshape{
		keys:   append([]BsonField(nil), r.keys...),
		values: make(map[string]Expr, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Merge attempts a shape-compatible merge of two reshapes: fields unique
// to either side pass through; fields present in both must render
// identically (Render()) or the merge fails (returns ok=false), since otherwise an
// ambiguous field would need silent overwriting.
func (r *Reshape) Merge(o *Reshape) (*Reshape, bool) {
	out := r.clone()
	for _, k := range o.keys {
		v := o.values[k.Dotted()]
		if existing, ok := out.Get(k); ok {
			if existing.Render() != v.Render() {
				return nil, false
			}
			continue
		}
		out = out.Set(k, v)
	}
	return out, true
}

// BSON renders the reshape as a $project-style document.
func (r *Reshape) BSON() bson.M {
	doc := bson.M{}
	for _, k := range r.keys {
		doc[k.Dotted()] = r.values[k.Dotted()].BSON()
	}
	return doc
}

// ToJS returns a JS expression performing the same projection on a plain
// object bound to ident, when every value is representable in the scripting
// sublanguage as a field-path copy or a JSON-encodable literal (i.e. no
// $-operators). This
// mirrors the teacher's preference for an (T, bool) "maybe" return over a
// generic Option type.
func (r *Reshape) ToJS(ident string) (js.Expr, bool) {
	var parts []string
	for _, k := range r.keys {
		v := r.values[k.Dotted()]
		switch e := v.(type) {
		case *FieldRef:
			if e.Var.IsRoot() {
				return nil, false
			}
			parts = append(parts, k.Dotted()+": "+ident+"."+e.Var.Field.Dotted())
		case *Literal:
			lit, err := json.Marshal(e.Value)
			if err != nil {
				return nil, false
			}
			parts = append(parts, k.Dotted()+": "+string(lit))
		default:
			return nil, false
		}
	}
	body := "{"
	for i, p := range parts {
		if i > 0 {
			body += ", "
		}
		body += p
	}
	body += "}"
	return js.Raw("function(" + ident + ") { return " + body + "; }"), true
}
