// Command wfc reads a YAML pipeline description and prints the crushed
// task tree as indented JSON. It is a debugging aid: it never opens a
// network connection or talks to a database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cast"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
	"github.com/bsonflow/wfc/workflow"
)

// pipelineDoc is the *.wf.yaml shape: a source collection (or a literal
// pure document) followed by a list of one-step-per-element stages.
type pipelineDoc struct {
	Read   string                   `yaml:"read"`
	Pure   map[interface{}]interface{} `yaml:"pure"`
	Stages []map[string]interface{} `yaml:"stages"`
}

func main() {
	path := flag.String("f", "", "path to a *.wf.yaml pipeline description")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: wfc -f pipeline.wf.yaml")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		logrus.WithError(err).Fatal("read pipeline file")
	}

	var doc pipelineDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		logrus.WithError(err).Fatal("parse pipeline yaml")
	}

	op, err := build(doc)
	if err != nil {
		logrus.WithError(err).Fatal("build workflow")
	}

	task, err := workflow.Compile(context.Background(), op)
	if err != nil {
		logrus.WithError(err).Fatal("compile workflow")
	}

	out, err := json.MarshalIndent(renderTask(task), "", "  ")
	if err != nil {
		logrus.WithError(err).Fatal("render task")
	}
	fmt.Println(string(out))
}

func build(doc pipelineDoc) (workflow.Op, error) {
	var op workflow.Op
	switch {
	case doc.Read != "":
		op = workflow.ReadOp(doc.Read)
	case doc.Pure != nil:
		op = workflow.PureOp(toBSON(doc.Pure))
	default:
		return nil, fmt.Errorf("pipeline must set exactly one of read/pure")
	}

	for _, stage := range doc.Stages {
		fn, err := stageFn(stage)
		if err != nil {
			return nil, err
		}
		op = fn(op)
	}
	return op, nil
}

// stageFn translates one YAML stage map (expected to have exactly one
// key naming the operator) into an OpFn.
func stageFn(stage map[string]interface{}) (workflow.OpFn, error) {
	for name, args := range stage {
		switch name {
		case "match":
			sel, err := buildSelector(args)
			if err != nil {
				return nil, err
			}
			return workflow.MatchStage(sel), nil
		case "limit":
			return workflow.LimitStage(cast.ToInt64(args)), nil
		case "skip":
			return workflow.SkipStage(cast.ToInt64(args)), nil
		case "project":
			shape, id, err := buildReshape(args)
			if err != nil {
				return nil, err
			}
			return workflow.ProjectStage(shape, id), nil
		case "unwind":
			return workflow.UnwindStage(expr.NewDocVar(expr.Field(cast.ToString(args)))), nil
		case "sort":
			keys, err := buildSortKeys(args)
			if err != nil {
				return nil, err
			}
			return workflow.SortStage(keys...), nil
		case "out":
			return workflow.OutStage(cast.ToString(args)), nil
		case "group":
			return buildGroupStage(args)
		default:
			return nil, fmt.Errorf("unknown stage %q", name)
		}
	}
	return nil, fmt.Errorf("empty stage")
}

func buildSelector(args interface{}) (expr.Selector, error) {
	m, ok := args.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("match stage expects a field map")
	}
	var sel expr.Selector
	for field, cond := range m {
		leaf, err := buildLeafSelector(expr.Field(cast.ToString(field)), cond)
		if err != nil {
			return nil, err
		}
		if sel == nil {
			sel = leaf
		} else {
			sel = sel.And(leaf)
		}
	}
	if sel == nil {
		return nil, fmt.Errorf("match stage has no conditions")
	}
	return sel, nil
}

func buildLeafSelector(field expr.BsonField, cond interface{}) (expr.Selector, error) {
	d := expr.NewDocVar(field)
	m, ok := cond.(map[interface{}]interface{})
	if !ok {
		return expr.Eq(d, cond), nil
	}
	for op, v := range m {
		switch cast.ToString(op) {
		case "eq":
			return expr.Eq(d, v), nil
		case "ne":
			return expr.Ne(d, v), nil
		case "gt":
			return expr.Gt(d, v), nil
		case "lt":
			return expr.Lt(d, v), nil
		case "in":
			values, _ := v.([]interface{})
			return expr.In(d, values), nil
		default:
			return nil, fmt.Errorf("unknown comparison %q", op)
		}
	}
	return nil, fmt.Errorf("empty comparison for field %v", field)
}

func buildReshape(args interface{}) (*expr.Reshape, workflow.IdHandling, error) {
	m, ok := args.(map[interface{}]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("project stage expects a map")
	}
	shape := expr.NewReshape()
	id := workflow.IgnoreId
	for k, v := range m {
		key := cast.ToString(k)
		if key == "_id" {
			switch cast.ToString(v) {
			case "include", "true":
				id = workflow.IncludeId
			case "exclude", "false":
				id = workflow.ExcludeId
			}
			continue
		}
		shape = shape.Set(expr.Field(key), exprFrom(v))
	}
	return shape, id, nil
}

// exprFrom accepts either a literal value or a "$field.path" string
// referencing the current document.
func exprFrom(v interface{}) expr.Expr {
	if s, ok := v.(string); ok && len(s) > 0 && s[0] == '$' {
		return expr.NewFieldRef(expr.NewDocVar(expr.Field(splitDotted(s[1:])...)))
	}
	return expr.NewLiteral(v)
}

func splitDotted(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func buildSortKeys(args interface{}) ([]workflow.SortKey, error) {
	m, ok := args.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("sort stage expects a field map")
	}
	var keys []workflow.SortKey
	for field, dir := range m {
		keys = append(keys, workflow.SortKey{
			Field: expr.Field(cast.ToString(field)),
			Desc:  cast.ToInt(dir) < 0,
		})
	}
	return keys, nil
}

func buildGroupStage(args interface{}) (workflow.OpFn, error) {
	m, ok := args.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("group stage expects a map")
	}
	byRaw, ok := m["by"]
	if !ok {
		return nil, fmt.Errorf("group stage requires a 'by' key")
	}
	by := exprFrom(byRaw)

	accRaw, _ := m["fields"].(map[interface{}]interface{})
	grouped := expr.NewGrouped()
	for k, v := range accRaw {
		accMap, ok := v.(map[interface{}]interface{})
		if !ok {
			continue
		}
		for op, arg := range accMap {
			groupOp, err := groupOpFor(cast.ToString(op), exprFrom(arg))
			if err != nil {
				return nil, err
			}
			grouped = grouped.Set(expr.Field(cast.ToString(k)), groupOp)
		}
	}
	return workflow.GroupStage(grouped, by), nil
}

func groupOpFor(name string, arg expr.Expr) (expr.GroupOp, error) {
	switch name {
	case "sum":
		return expr.Sum(arg), nil
	case "avg":
		return expr.Avg(arg), nil
	case "push":
		return expr.Push(arg), nil
	case "addToSet":
		return expr.AddToSet(arg), nil
	case "first":
		return expr.First(arg), nil
	case "last":
		return expr.Last(arg), nil
	case "max":
		return expr.Max(arg), nil
	case "min":
		return expr.Min(arg), nil
	default:
		return nil, fmt.Errorf("unknown accumulator %q", name)
	}
}

func toBSON(m map[interface{}]interface{}) (out map[string]interface{}) {
	out = make(map[string]interface{}, len(m))
	for k, v := range m {
		key := cast.ToString(k)
		if nested, ok := v.(map[interface{}]interface{}); ok {
			out[key] = toBSON(nested)
			continue
		}
		out[key] = v
	}
	return out
}

// renderTask flattens a workflow.Task into a JSON-friendly shape; Task's
// own fields carry interfaces (js.Expr, expr.Selector, ...) that render
// through their own Render()/BSON() methods rather than struct tags.
func renderTask(t workflow.Task) interface{} {
	switch task := t.(type) {
	case *workflow.PureTask:
		return map[string]interface{}{"type": "pure", "value": task.Value}
	case *workflow.ReadTask:
		return map[string]interface{}{"type": "read", "collection": task.Collection}
	case *workflow.PipelineTask:
		ops := make([]string, len(task.Ops))
		for i, o := range task.Ops {
			ops[i] = fmt.Sprintf("%T", o)
		}
		return map[string]interface{}{
			"type":     "pipeline",
			"upstream": renderTask(task.Upstream),
			"ops":      ops,
		}
	case *workflow.MapReduceTask:
		return map[string]interface{}{
			"type":     "mapReduce",
			"upstream": renderTask(task.Upstream),
			"map":      renderJS(task.Spec.Map),
			"reduce":   renderJS(task.Spec.Reduce),
		}
	case *workflow.FoldLeftTask:
		tail := make([]interface{}, len(task.Tail))
		for i, t := range task.Tail {
			tail[i] = renderTask(t)
		}
		return map[string]interface{}{
			"type": "foldLeft",
			"head": renderTask(task.Head),
			"tail": tail,
		}
	case *workflow.JoinTask:
		srcs := make([]interface{}, len(task.Srcs))
		for i, s := range task.Srcs {
			srcs[i] = renderTask(s)
		}
		return map[string]interface{}{"type": "join", "srcs": srcs}
	default:
		return fmt.Sprintf("%T", t)
	}
}

func renderJS(e js.Expr) string {
	if e == nil {
		return ""
	}
	return e.Render()
}
