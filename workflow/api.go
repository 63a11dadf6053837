package workflow

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

// Compile is the top-level entry point: finish, then finalize, then
// crush. The base DocVar crush returns (where the logical root ends up)
// is discarded here — a finalized, finished Workflow always crushes to a
// task whose output root IS the logical root, so callers never need it.
// Each phase runs under its own span, following the teacher's ctx.Span
// convention for wrapping named units of analysis work.
func Compile(ctx context.Context, op Op) (Task, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "wfc.compile")
	defer span.Finish()

	finished := phaseFinish(ctx, op)

	finalized, err := phaseFinalize(ctx, finished)
	if err != nil {
		return nil, err
	}

	task, err := phaseCrush(ctx, finalized)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func phaseFinish(ctx context.Context, op Op) Op {
	span, _ := opentracing.StartSpanFromContext(ctx, "wfc.finish")
	defer span.Finish()
	return Finish(op)
}

func phaseFinalize(ctx context.Context, op Op) (Op, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "wfc.finalize")
	defer span.Finish()
	return Finalize(op)
}

func phaseCrush(ctx context.Context, op Op) (Task, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "wfc.crush")
	defer span.Finish()
	_, task, err := Crush(op)
	return task, err
}
