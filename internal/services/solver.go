package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/scheduler"
	"github.com/Rajat-malhotra0/draw-agent/internal/snapshot"
)

const analyzeFormatPrefix = 30

// Animator runs keyed, cancellable batches of delayed tasks.
type Animator interface {
	Schedule(key string, tasks []scheduler.Task) uuid.UUID
}

type SolverOptions struct {
	// Provider and KeyEnv only feed the configuration error message.
	Provider     string
	KeyEnv       string
	MaxImageEdge int
}

type SolverService struct {
	completer Completer
	animator  Animator
	emitter   Emitter
	opts      SolverOptions
	logger    zerolog.Logger
}

// NewSolverService wires the solve flow. completer may be nil when no
// credential is configured; every call then fails with a ConfigurationError.
func NewSolverService(completer Completer, animator Animator, emitter Emitter, opts SolverOptions, logger zerolog.Logger) *SolverService {
	return &SolverService{
		completer: completer,
		animator:  animator,
		emitter:   emitter,
		opts:      opts,
		logger:    logger,
	}
}

func (s *SolverService) Configured() bool {
	return s.completer != nil
}

func (s *SolverService) configurationError() error {
	name := s.opts.Provider
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return &ConfigurationError{
		Message: strings.TrimSpace(name + " API key not configured. Please set " + s.opts.KeyEnv + " in .env file."),
		Hint:    "Set " + s.opts.KeyEnv + " and restart the server.",
	}
}

// Solve sends the snapshot to the model, then schedules the answer animation
// on every board. The animation is keyed by the caller's relay id so a newer
// solve from the same board replaces one that is still drawing.
func (s *SolverService) Solve(ctx context.Context, req models.SolveRequest) (*models.Solution, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, &InvalidInputError{Message: "No image provided"}
	}
	if s.completer == nil {
		return nil, s.configurationError()
	}

	temperature := req.Options.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := s.completer.Complete(ctx, CompletionRequest{
		Prompt:       promptFor(req.Options),
		ImageURL:     s.prepareImage(req.Image),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		WithDrawTool: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("provider", s.completer.Name()).Msg("completion failed")
		return nil, &UpstreamError{Message: "Failed to solve problem: " + providerMessage(err), Err: err}
	}

	solution := &models.Solution{
		Answer:          resp.Text,
		ExtractedAnswer: ExtractAnswer(resp.Text),
		Steps:           ParseSteps(resp.Text),
		ToolCalls:       resp.ToolCalls,
		TokensUsed:      resp.TokensUsed,
		Model:           resp.Model,
	}
	if solution.ToolCalls == nil {
		solution.ToolCalls = make([]models.ToolCall, 0)
	}

	s.animate(req.ClientID, solution)
	return solution, nil
}

func (s *SolverService) animate(clientID string, solution *models.Solution) {
	key := clientID
	if key == "" {
		key = uuid.NewString()
	}

	tasks := answerTasks(solution.ExtractedAnswer, s.emitter)
	replay, errs := toolCallTasks(solution.ToolCalls, s.emitter)
	for _, err := range errs {
		s.logger.Warn().Err(err).Str("key", key).Msg("skipping tool call")
	}
	tasks = append(tasks, replay...)

	jobID := s.animator.Schedule(key, tasks)
	s.logger.Info().
		Str("key", key).
		Str("job_id", jobID.String()).
		Str("answer", solution.ExtractedAnswer).
		Int("tool_calls", len(replay)).
		Msg("answer animation scheduled")
}

// prepareImage turns the upload into a data URL no larger than the
// configured edge. Anything it cannot decode is forwarded with a PNG prefix
// and left for the provider to reject.
func (s *SolverService) prepareImage(raw string) string {
	img, err := snapshot.Decode(raw)
	if err == nil {
		img, err = snapshot.Fit(img, s.opts.MaxImageEdge)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not normalise snapshot, forwarding as is")
		if strings.HasPrefix(raw, "data:") {
			return raw
		}
		return "data:image/png;base64," + raw
	}
	return img.DataURL()
}

// Test runs the provider's connectivity check. Provider failures are part
// of the result, not an error.
func (s *SolverService) Test(ctx context.Context) (*models.TestResult, error) {
	if s.completer == nil {
		return nil, s.configurationError()
	}

	resp, err := s.completer.Ping(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", s.completer.Name()).Msg("connectivity test failed")
		return &models.TestResult{Success: false, Error: providerMessage(err)}, nil
	}
	return &models.TestResult{Success: true, Message: resp.Text, Model: resp.Model}, nil
}

// Analyze echoes what the server received without calling a model.
func (s *SolverService) Analyze(req models.AnalyzeRequest) (*models.AnalyzeResult, error) {
	if req.Image == "" {
		return nil, &InvalidInputError{Message: "No image provided"}
	}

	format := req.Image
	if len(format) > analyzeFormatPrefix {
		format = format[:analyzeFormatPrefix]
	}
	res := &models.AnalyzeResult{
		Success:   true,
		Message:   "Image received successfully",
		ImageSize: len(req.Image),
		Format:    format + "...",
	}

	if img, err := snapshot.Decode(req.Image); err == nil {
		res.MIME = img.MIME
		if w, h, err := img.Dimensions(); err == nil {
			res.Width, res.Height = w, h
		}
	}
	return res, nil
}
