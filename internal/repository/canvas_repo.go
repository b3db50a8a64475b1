package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

// CanvasRepo holds the advisory, process-local copy of the board. It is the
// only writer of the stroke log; every access goes through mu.
type CanvasRepo struct {
	mu           sync.RWMutex
	strokes      []models.Stroke
	currentImage *string
}

func NewCanvasRepo() *CanvasRepo {
	return &CanvasRepo{strokes: make([]models.Stroke, 0)}
}

// Apply records a draw event: line and text append, clear empties the log.
// It returns the stroke count after the event. Only unknown actions fail.
func (r *CanvasRepo) Apply(ctx context.Context, ev models.DrawEvent) (int, error) {
	if ev.Action == models.ActionClear {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.strokes = make([]models.Stroke, 0)
		return 0, nil
	}

	if !models.IsKnownAction(ev.Action) {
		return r.Count(ctx), fmt.Errorf("record %s event: unknown action", ev.Action)
	}
	stroke, err := models.StrokeFromEvent(ev)
	if err != nil {
		// Payloads that do not decode still take a slot, without geometry.
		stroke = models.Stroke{Type: ev.Action}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = append(r.strokes, stroke)
	return len(r.strokes), nil
}

func (r *CanvasRepo) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strokes)
}

// Strokes returns a copy of the log in arrival order.
func (r *CanvasRepo) Strokes(ctx context.Context) []models.Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Stroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}

// SetImage stores the latest snapshot reference as-is.
func (r *CanvasRepo) SetImage(ctx context.Context, image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentImage = &image
}

func (r *CanvasRepo) State(ctx context.Context) models.CanvasState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	strokes := make([]models.Stroke, len(r.strokes))
	copy(strokes, r.strokes)

	var img *string
	if r.currentImage != nil {
		v := *r.currentImage
		img = &v
	}
	return models.CanvasState{Strokes: strokes, CurrentImage: img}
}
