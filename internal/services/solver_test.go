package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/snapshot"
)

func newTestSolver(c Completer) (*SolverService, *recordingAnimator, *recordingEmitter) {
	anim := &recordingAnimator{}
	emit := &recordingEmitter{}
	opts := SolverOptions{Provider: "groq", KeyEnv: "GROQ_API_KEY", MaxImageEdge: 64}
	return NewSolverService(c, anim, emit, opts, zerolog.Nop()), anim, emit
}

func TestSolve_MissingImage(t *testing.T) {
	svc, anim, _ := newTestSolver(&stubCompleter{})

	_, err := svc.Solve(context.Background(), models.SolveRequest{Image: "  "})

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidInputError, got %v", err)
	}
	if anim.calls != 0 {
		t.Error("Expected nothing to be scheduled")
	}
}

func TestSolve_NoCredential(t *testing.T) {
	svc, _, _ := newTestSolver(nil)

	_, err := svc.Solve(context.Background(), models.SolveRequest{Image: "abc"})

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Message != "Groq API key not configured. Please set GROQ_API_KEY in .env file." {
		t.Errorf("Unexpected message %q", cfgErr.Message)
	}
	if !strings.Contains(cfgErr.Hint, "GROQ_API_KEY") {
		t.Errorf("Expected hint to name the variable, got %q", cfgErr.Hint)
	}
}

func TestSolve_UpstreamFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("connection refused")}
	svc, anim, _ := newTestSolver(stub)

	_, err := svc.Solve(context.Background(), models.SolveRequest{Image: pngBase64(t, 4, 4)})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.Message != "Failed to solve problem: connection refused" {
		t.Errorf("Unexpected message %q", upstream.Message)
	}
	if anim.calls != 0 {
		t.Error("Expected no animation after a failed completion")
	}
}

func TestSolve_RequestDefaults(t *testing.T) {
	stub := &stubCompleter{resp: &Completion{Text: "x = 5", Model: "m"}}
	svc, _, _ := newTestSolver(stub)

	if _, err := svc.Solve(context.Background(), models.SolveRequest{Image: pngBase64(t, 4, 4)}); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if stub.last.Prompt != directPrompt {
		t.Errorf("Expected direct prompt, got %q", stub.last.Prompt)
	}
	if stub.last.Temperature != defaultTemperature || stub.last.MaxTokens != defaultMaxTokens {
		t.Errorf("Expected defaults 0.3/2000, got %v/%d", stub.last.Temperature, stub.last.MaxTokens)
	}
	if !stub.last.WithDrawTool {
		t.Error("Expected the draw tool to be offered")
	}
	if !strings.HasPrefix(stub.last.ImageURL, "data:image/png;base64,") {
		t.Errorf("Expected a PNG data URL, got %q", stub.last.ImageURL)
	}

	opts := models.SolveOptions{StepByStep: true, Temperature: 0.9, MaxTokens: 100}
	if _, err := svc.Solve(context.Background(), models.SolveRequest{Image: pngBase64(t, 4, 4), Options: opts}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if stub.last.Prompt != stepByStepPrompt {
		t.Errorf("Expected step-by-step prompt, got %q", stub.last.Prompt)
	}
	if stub.last.Temperature != 0.9 || stub.last.MaxTokens != 100 {
		t.Errorf("Expected caller options to win, got %v/%d", stub.last.Temperature, stub.last.MaxTokens)
	}
}

func TestSolve_ShrinksLargeSnapshots(t *testing.T) {
	stub := &stubCompleter{resp: &Completion{Text: "4"}}
	svc, _, _ := newTestSolver(stub)

	if _, err := svc.Solve(context.Background(), models.SolveRequest{Image: pngBase64(t, 256, 128)}); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	img, err := snapshot.Decode(stub.last.ImageURL)
	if err != nil {
		t.Fatalf("decode forwarded image: %v", err)
	}
	w, h, err := img.Dimensions()
	if err != nil {
		t.Fatalf("dimensions: %v", err)
	}
	if w != 64 || h != 32 {
		t.Errorf("Expected 64x32, got %dx%d", w, h)
	}
}

func TestSolve_UndecodableImageIsForwarded(t *testing.T) {
	stub := &stubCompleter{resp: &Completion{Text: "4"}}
	svc, _, _ := newTestSolver(stub)

	if _, err := svc.Solve(context.Background(), models.SolveRequest{Image: "not-an-image!"}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if stub.last.ImageURL != "data:image/png;base64,not-an-image!" {
		t.Errorf("Unexpected forwarded image %q", stub.last.ImageURL)
	}
}

func TestSolve_SchedulesAnimation(t *testing.T) {
	stub := &stubCompleter{resp: &Completion{
		Text:       "Step 1: add\nFinal answer: x = 5",
		TokensUsed: 42,
		Model:      "vision",
		ToolCalls: []models.ToolCall{
			{ID: "a", Type: "function", Function: models.FunctionCall{Name: drawToolName, Arguments: `{"action":"line","data":{"from":{"x":1,"y":1},"to":{"x":2,"y":2}}}`}},
			{ID: "b", Type: "function", Function: models.FunctionCall{Name: drawToolName, Arguments: `{not json`}},
			{ID: "c", Type: "function", Function: models.FunctionCall{Name: drawToolName, Arguments: `{"action":"text","data":{"text":"hi","x":5,"y":5}}`}},
		},
	}}
	svc, anim, emit := newTestSolver(stub)

	sol, err := svc.Solve(context.Background(), models.SolveRequest{Image: pngBase64(t, 4, 4), ClientID: "board-1"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if sol.ExtractedAnswer != "x = 5" || sol.TokensUsed != 42 || sol.Model != "vision" {
		t.Errorf("Unexpected solution %+v", sol)
	}
	if len(sol.ToolCalls) != 3 {
		t.Errorf("Expected tool calls returned verbatim, got %d", len(sol.ToolCalls))
	}
	if len(sol.Steps) != 1 || sol.Steps[0].Index != 1 {
		t.Errorf("Unexpected steps %+v", sol.Steps)
	}

	if anim.key != "board-1" {
		t.Errorf("Expected animation keyed by client id, got %q", anim.key)
	}
	wantDelays := []time.Duration{300, 500, 700, 900, 0, 100}
	if len(anim.tasks) != len(wantDelays) {
		t.Fatalf("Expected %d tasks, got %d", len(wantDelays), len(anim.tasks))
	}
	for i, want := range wantDelays {
		if anim.tasks[i].Delay != want*time.Millisecond {
			t.Errorf("task %d (%s): delay %s, want %dms", i, anim.tasks[i].Name, anim.tasks[i].Delay, want)
		}
	}

	for _, task := range anim.tasks {
		if err := task.Run(context.Background()); err != nil {
			t.Fatalf("task %s: %v", task.Name, err)
		}
	}
	answer, err := emit.events[3].Text()
	if err != nil {
		t.Fatalf("answer frame: %v", err)
	}
	if answer.Text != "x = 5" || answer.Color != "#1E90FF" || answer.Size != 28 || answer.X != 250 {
		t.Errorf("Unexpected answer frame %+v", answer)
	}
	if emit.events[5].Action != models.ActionText {
		t.Errorf("Expected the last replayed call to be text, got %s", emit.events[5].Action)
	}
}

func TestSolve_AnonymousCallersGetDistinctKeys(t *testing.T) {
	stub := &stubCompleter{resp: &Completion{Text: "4"}}
	svc, anim, _ := newTestSolver(stub)

	svc.Solve(context.Background(), models.SolveRequest{Image: "abc"})
	first := anim.key
	svc.Solve(context.Background(), models.SolveRequest{Image: "abc"})

	if first == "" || first == anim.key {
		t.Errorf("Expected fresh keys, got %q and %q", first, anim.key)
	}
}

func TestTestConnection(t *testing.T) {
	svc, _, _ := newTestSolver(&stubCompleter{pingResp: &Completion{Text: "Hello from Groq!", Model: "llama-3.1-8b-instant"}})
	res, err := svc.Test(context.Background())
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if !res.Success || res.Message != "Hello from Groq!" || res.Model != "llama-3.1-8b-instant" {
		t.Errorf("Unexpected result %+v", res)
	}

	svc, _, _ = newTestSolver(&stubCompleter{pingErr: errors.New("bad key")})
	res, err = svc.Test(context.Background())
	if err != nil {
		t.Fatalf("Expected provider failure in the result, got %v", err)
	}
	if res.Success || res.Error != "bad key" {
		t.Errorf("Unexpected result %+v", res)
	}

	svc, _, _ = newTestSolver(nil)
	if _, err := svc.Test(context.Background()); err == nil {
		t.Error("Expected configuration error")
	}
}

func TestAnalyze(t *testing.T) {
	svc, _, _ := newTestSolver(nil)

	if _, err := svc.Analyze(models.AnalyzeRequest{}); err == nil {
		t.Error("Expected missing image to be rejected")
	}

	img := "data:image/png;base64," + pngBase64(t, 7, 3)
	res, err := svc.Analyze(models.AnalyzeRequest{Image: img})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ImageSize != len(img) {
		t.Errorf("Expected size %d, got %d", len(img), res.ImageSize)
	}
	if res.Format != "data:image/png;base64,iVBORw0K..." {
		t.Errorf("Unexpected format %q", res.Format)
	}
	if res.MIME != "image/png" || res.Width != 7 || res.Height != 3 {
		t.Errorf("Unexpected decoded fields %+v", res)
	}

	short, _ := svc.Analyze(models.AnalyzeRequest{Image: "abc"})
	if short.Format != "abc..." {
		t.Errorf("Expected short image echoed whole, got %q", short.Format)
	}
}
