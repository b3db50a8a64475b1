package services

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/canvas"
	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/repository"
)

const (
	RenderWidth  = 1200
	RenderHeight = 800
)

// Broadcaster pushes a server-originated event to every relay client.
type Broadcaster interface {
	Broadcast(event string, payload any) error
}

type CanvasService struct {
	repo   *repository.CanvasRepo
	relay  Broadcaster
	logger zerolog.Logger
}

func NewCanvasService(repo *repository.CanvasRepo, relay Broadcaster, logger zerolog.Logger) *CanvasService {
	return &CanvasService{repo: repo, relay: relay, logger: logger}
}

// Draw applies a command to the stroke log and shows it on every board.
// Clear goes out as a clear event, everything else as llm-draw. Only an
// unknown action is rejected; the payload is relayed as sent.
func (s *CanvasService) Draw(ctx context.Context, req models.DrawRequest) (int, error) {
	if !models.IsKnownAction(req.Action) {
		return 0, &InvalidInputError{Message: "Unknown action"}
	}

	ev := models.DrawEvent{Action: req.Action, Data: req.Data}
	count, err := s.repo.Apply(ctx, ev)
	if err != nil {
		s.logger.Warn().Err(err).Str("action", ev.Action).Msg("draw command not recorded")
	}

	if ev.Action == models.ActionClear {
		err = s.relay.Broadcast(models.EventClear, nil)
	} else {
		err = s.relay.Broadcast(models.EventLLMDraw, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("action", ev.Action).Msg("broadcast failed")
	}
	return count, nil
}

// Emit is the path scheduled answer frames take. The event reaches every
// board even when it cannot be recorded.
func (s *CanvasService) Emit(ctx context.Context, ev models.DrawEvent) error {
	if _, err := s.repo.Apply(ctx, ev); err != nil {
		s.logger.Debug().Err(err).Str("action", ev.Action).Msg("emitted event not recorded")
	}
	return s.relay.Broadcast(models.EventLLMDraw, ev)
}

func (s *CanvasService) State(ctx context.Context) models.CanvasState {
	return s.repo.State(ctx)
}

// StoreImage keeps the snapshot reference without looking at it.
func (s *CanvasService) StoreImage(ctx context.Context, image string) {
	s.repo.SetImage(ctx, image)
}

// Render replays the stroke log onto a blank surface and writes it as PNG.
// Boards may have drawn things the log never saw, so this is an
// approximation of what users see.
func (s *CanvasService) Render(ctx context.Context, w io.Writer) error {
	surface := canvas.NewSurface(RenderWidth, RenderHeight)
	for _, stroke := range s.repo.Strokes(ctx) {
		if stroke.Type == models.ActionLine && (stroke.From == nil || stroke.To == nil) {
			continue
		}
		if err := surface.Apply(stroke.Event()); err != nil {
			s.logger.Debug().Err(err).Str("type", stroke.Type).Msg("skipping stroke")
		}
	}
	return surface.EncodePNG(w)
}
