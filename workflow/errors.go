package workflow

import "gopkg.in/src-d/go-errors.v1"

// ErrFoldLeftTailNotReduced is raised when finalize's invariant — every
// non-head FoldLeft arm is a Reduce — was somehow violated by the time
// crush inspects it. A programming error; must not be retried.
var ErrFoldLeftTailNotReduced = errors.NewKind("finalize: fold-left tail arm %T is not a reduce after normalization")
