package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

const tracerName = "github.com/xiaot623/gogo/actionrunner/internal/service"

// startRunSpan starts a span covering a run's execution.
func startRunSpan(ctx context.Context, run *domain.RunRecord, steps int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "action_run")
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.task", run.TaskName),
		attribute.String("run.workspace", run.WorkspaceID),
		attribute.Int("run.steps", steps),
	)
	return ctx, span
}

// endRunSpan ends the run span with its terminal status.
func endRunSpan(span trace.Span, status domain.RunStatus, errMsg string) {
	span.SetAttributes(attribute.String("run.status", string(status)))
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}

// startStepSpan starts a span for one step.
func startStepSpan(ctx context.Context, step int, action domain.Action) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "step."+string(action.Type))
	span.SetAttributes(
		attribute.Int("step.index", step),
		attribute.String("step.type", string(action.Type)),
	)
	if action.Selector != "" {
		span.SetAttributes(attribute.String("step.selector", action.Selector))
	}
	return ctx, span
}

// endStepSpan ends the step span.
func endStepSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
