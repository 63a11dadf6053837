package workflow

// Traverse applies f to every immediate child of op and rebuilds a node of
// the same variant from the results, threading f's error as the
// applicative effect (the Go shape of "thread an applicative effect" from
// an error-free functional-language original: Go has no generic
// applicative, so the effect here is simply "stop on first error").
func Traverse(op Op, f func(Op) (Op, error)) (Op, error) {
	switch o := op.(type) {
	case *Pure, *Read:
		return op, nil
	case *Match:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Match{SrcOp: c, Sel: o.Sel}, nil
	case *Limit:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Limit{SrcOp: c, N: o.N}, nil
	case *Skip:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Skip{SrcOp: c, N: o.N}, nil
	case *Sort:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Sort{SrcOp: c, Keys: o.Keys}, nil
	case *Out:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Out{SrcOp: c, Collection: o.Collection}, nil
	case *Project:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Project{SrcOp: c, Shape: o.Shape, Id: o.Id}, nil
	case *Redact:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Redact{SrcOp: c, Expr: o.Expr}, nil
	case *Unwind:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Unwind{SrcOp: c, Field: o.Field}, nil
	case *Group:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Group{SrcOp: c, Grouped: o.Grouped, By: o.By}, nil
	case *GeoNear:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &GeoNear{SrcOp: c, Spec: o.Spec}, nil
	case *Map:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Map{SrcOp: c, Fn: o.Fn}, nil
	case *FlatMap:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &FlatMap{SrcOp: c, Fn: o.Fn}, nil
	case *Reduce:
		c, err := f(o.SrcOp)
		if err != nil {
			return nil, err
		}
		return &Reduce{SrcOp: c, Fn: o.Fn}, nil
	case *FoldLeft:
		head, err := f(o.Head)
		if err != nil {
			return nil, err
		}
		tail := make([]Op, len(o.Tail))
		for i, t := range o.Tail {
			tail[i], err = f(t)
			if err != nil {
				return nil, err
			}
		}
		return &FoldLeft{Head: head, Tail: tail}, nil
	case *Join:
		srcs := make([]Op, len(o.Srcs))
		for i, s := range o.Srcs {
			var err error
			srcs[i], err = f(s)
			if err != nil {
				return nil, err
			}
		}
		return &Join{Srcs: srcs}, nil
	default:
		return op, nil
	}
}

