package workflow

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

// Task is the executable lowering of a Workflow: one of PureTask, ReadTask,
// PipelineTask, MapReduceTask, FoldLeftTask, JoinTask.
type Task interface {
	isTask()
}

type PureTask struct{ Value bson.M }

func (*PureTask) isTask() {}

type ReadTask struct{ Collection string }

func (*ReadTask) isTask() {}

// PipelineTask is an upstream task followed by a list of pipelineable
// stages, each stripped of its own Src (the list order is the pipeline
// order; the stage's Src is implicitly Upstream/the previous stage).
type PipelineTask struct {
	Upstream Task
	Ops      []Pipelineable
}

func (*PipelineTask) isTask() {}

// OutAction is the optional write-mode attached to a MapReduceTask.
type OutAction int

const (
	OutActionNone OutAction = iota
	OutActionReduce
)

// ExprVar is the conventional output base of every map-reduce emitted by
// this compiler.
const ExprVar = "value"

// MapReduceSpec carries the full MongoDB map-reduce job description.
type MapReduceSpec struct {
	Map       js.Expr
	Reduce    js.Expr
	Selection expr.Selector // optional
	InputSort []SortKey     // optional
	Limit     *int64        // optional
	Finalizer js.Expr       // optional
	Scope     bson.M        // optional
	Out       OutAction
}

type MapReduceTask struct {
	Upstream Task
	Spec     MapReduceSpec
}

func (*MapReduceTask) isTask() {}

// FoldLeftTask fans Head through a nonempty Tail of map-reduce tasks.
type FoldLeftTask struct {
	Head Task
	Tail []*MapReduceTask // len >= 1
}

func (*FoldLeftTask) isTask() {}

// JoinTask runs a set of tasks in parallel.
type JoinTask struct {
	Srcs []Task
}

func (*JoinTask) isTask() {}

// NopReduce is the identity/no-op reduce function used whenever a
// MapReduceTask's reduce phase is not yet meaningful (e.g. a bare Match
// lowered off the pipeline, awaiting a later Reduce to fill it in).
var NopReduce js.Expr = js.Raw("function(key, values) { return values[0]; }")

// IdentityMap is the map function used when no projection is needed: it
// passes each document through under ExprVar, keyed by its own _id.
var IdentityMap js.Expr = js.Raw("function() { emit(this._id, this); }")
