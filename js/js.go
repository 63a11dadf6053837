// Package js models the embedded scripting sublanguage used by map-reduce
// job bodies. It is deliberately thin: the compiler never parses script
// text, it only composes already-built fragments and renders them.
package js

import "fmt"

// Expr is an opaque script expression. The only concrete leaf is Raw; all
// composition goes through Compose.
type Expr interface {
	Render() string
}

// Raw is a verbatim script fragment, usually a function literal such as
// `function(key, value) { return [key, value]; }`.
type Raw string

func (r Raw) Render() string { return string(r) }

// composed is the result of Compose; it keeps both halves around so
// Render can decide how to splice them (outer wraps inner).
type composed struct {
	outer, inner Expr
}

// Compose builds the expression that applies outer to the result of inner,
// i.e. (value) => outer(inner(value)) in script terms. It is the one
// constructor helper the core is allowed to use on the scripting AST.
func Compose(outer, inner Expr) Expr {
	if inner == nil {
		return outer
	}
	if outer == nil {
		return inner
	}
	return &composed{outer: outer, inner: inner}
}

func (c *composed) Render() string {
	return fmt.Sprintf("function(key, value) {\n  var __r = (%s)(key, value);\n  return (%s)(__r[0], __r[1]);\n}",
		c.inner.Render(), c.outer.Render())
}
