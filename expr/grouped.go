package expr

import "go.mongodb.org/mongo-driver/bson"

// Grouped is the accumulator map attached to a Group node: field -> GroupOp.
type Grouped struct {
	keys   []BsonField
	values map[string]GroupOp
}

func NewGrouped() *Grouped {
	return &Grouped{values: make(map[string]GroupOp)}
}

func (g *Grouped) Get(field BsonField) (GroupOp, bool) {
	v, ok := g.values[field.Dotted()]
	return v, ok
}

func (g *Grouped) Set(field BsonField, value GroupOp) *Grouped {
	out := g.clone()
	k := field.Dotted()
	if _, exists := out.values[k]; !exists {
		out.keys = append(out.keys, field)
	}
	out.values[k] = value
	return out
}

func (g *Grouped) GetAll() []BsonField { return append([]BsonField(nil), g.keys...) }

func (g *Grouped) clone() *Grouped {
	out := &Grouped{
		keys:   append([]BsonField(nil), g.keys...),
		values: make(map[string]GroupOp, len(g.values)),
	}
	for k, v := range g.values {
		out.values[k] = v
	}
	return out
}

// Plus is a right-biased map union: keys present in both sides take o's
// value.
func (g *Grouped) Plus(o *Grouped) *Grouped {
	out := g.clone()
	for _, k := range o.keys {
		out = out.Set(k, o.values[k.Dotted()])
	}
	return out
}

func (g *Grouped) BSON() bson.M {
	doc := bson.M{}
	for _, k := range g.keys {
		doc[k.Dotted()] = g.values[k.Dotted()].BSON()
	}
	return doc
}

func (g *Grouped) MapUpFields(f func(DocVar) DocVar) (*Grouped, error) {
	out := NewGrouped()
	for _, k := range g.keys {
		rewritten, err := RewriteGroupOp(g.values[k.Dotted()], f)
		if err != nil {
			return nil, err
		}
		out = out.Set(k, rewritten)
	}
	return out, nil
}
