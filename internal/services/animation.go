package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/scheduler"
)

const (
	checkColor  = "#4CAF50"
	labelColor  = "#666666"
	answerColor = "#1E90FF"

	toolCallSpacing = 100 * time.Millisecond
)

// Emitter publishes a draw event to every connected board.
type Emitter interface {
	Emit(ctx context.Context, ev models.DrawEvent) error
}

// answerTasks draws the checkmark, the label and the answer.
func answerTasks(answer string, emit Emitter) []scheduler.Task {
	frames := []struct {
		name  string
		delay time.Duration
		ev    models.DrawEvent
	}{
		{"check-short", 300 * time.Millisecond, models.NewLineEvent(models.LineData{
			From: models.Point{X: 50, Y: 100}, To: models.Point{X: 75, Y: 130}, Color: checkColor, Width: 5,
		})},
		{"check-long", 500 * time.Millisecond, models.NewLineEvent(models.LineData{
			From: models.Point{X: 75, Y: 130}, To: models.Point{X: 120, Y: 70}, Color: checkColor, Width: 5,
		})},
		{"label", 700 * time.Millisecond, models.NewTextEvent(models.TextData{
			Text: "Answer:", X: 150, Y: 100, Color: labelColor, Size: 20,
		})},
		{"answer", 900 * time.Millisecond, models.NewTextEvent(models.TextData{
			Text: answer, X: 250, Y: 100, Color: answerColor, Size: 28,
		})},
	}

	tasks := make([]scheduler.Task, 0, len(frames))
	for _, f := range frames {
		ev := f.ev
		tasks = append(tasks, scheduler.Task{
			Name:  f.name,
			Delay: f.delay,
			Run:   func(ctx context.Context) error { return emit.Emit(ctx, ev) },
		})
	}
	return tasks
}

// toolCallTasks replays draw_on_canvas calls 100ms apart. Calls whose
// arguments do not decode are returned as errors and take no slot.
func toolCallTasks(calls []models.ToolCall, emit Emitter) ([]scheduler.Task, []error) {
	var (
		tasks []scheduler.Task
		errs  []error
	)
	for _, call := range calls {
		ev, err := decodeToolCall(call)
		if err != nil {
			errs = append(errs, &ParseError{ToolCallID: call.ID, Err: err})
			continue
		}
		tasks = append(tasks, scheduler.Task{
			Name:  "tool-call:" + call.ID,
			Delay: time.Duration(len(tasks)) * toolCallSpacing,
			Run:   func(ctx context.Context) error { return emit.Emit(ctx, ev) },
		})
	}
	return tasks, errs
}

var drawToolSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(drawToolParameters())
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("draw_on_canvas.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add draw tool schema: %w", err)
	}
	return compiler.Compile("draw_on_canvas.json")
})

// decodeToolCall checks the arguments against the schema the model was given
// before turning them into a draw event.
func decodeToolCall(call models.ToolCall) (models.DrawEvent, error) {
	var ev models.DrawEvent
	if call.Function.Name != drawToolName {
		return ev, fmt.Errorf("unknown tool %q", call.Function.Name)
	}

	var args interface{}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return ev, fmt.Errorf("decode arguments: %w", err)
	}
	schema, err := drawToolSchema()
	if err != nil {
		return ev, fmt.Errorf("compile draw tool schema: %w", err)
	}
	if err := schema.Validate(args); err != nil {
		return ev, fmt.Errorf("arguments do not match schema: %w", err)
	}

	if err := json.Unmarshal([]byte(call.Function.Arguments), &ev); err != nil {
		return ev, fmt.Errorf("decode arguments: %w", err)
	}
	return ev, nil
}
