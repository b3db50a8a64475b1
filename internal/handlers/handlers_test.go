package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/repository"
	"github.com/Rajat-malhotra0/draw-agent/internal/scheduler"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

type stubCompleter struct {
	resp *services.Completion
	err  error
}

func (s *stubCompleter) Name() string { return "groq" }

func (s *stubCompleter) Complete(context.Context, services.CompletionRequest) (*services.Completion, error) {
	return s.resp, s.err
}

func (s *stubCompleter) Ping(context.Context) (*services.Completion, error) {
	return s.resp, s.err
}

type stubAnimator struct{ scheduled int }

func (a *stubAnimator) Schedule(string, []scheduler.Task) uuid.UUID {
	a.scheduled++
	return uuid.New()
}

type stubRelay struct {
	events []string
}

func (r *stubRelay) Broadcast(event string, payload any) error {
	r.events = append(r.events, event)
	return nil
}

func (r *stubRelay) Clients() int { return 2 }

func newAIHandler(c services.Completer) (*AIHandler, *stubAnimator) {
	anim := &stubAnimator{}
	canvas := services.NewCanvasService(repository.NewCanvasRepo(), &stubRelay{}, zerolog.Nop())
	solver := services.NewSolverService(c, anim, canvas, services.SolverOptions{Provider: "groq", KeyEnv: "GROQ_API_KEY"}, zerolog.Nop())
	return NewAIHandler(solver, zerolog.Nop()), anim
}

func newCanvasHandler() (*CanvasHandler, *stubRelay) {
	relay := &stubRelay{}
	return NewCanvasHandler(services.NewCanvasService(repository.NewCanvasRepo(), relay, zerolog.Nop()), zerolog.Nop()), relay
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

// ─── AI Handler Tests ───

func TestSolve_MissingImage(t *testing.T) {
	h, anim := newAIHandler(&stubCompleter{})

	rr := postJSON(t, h.Solve, "/api/ai/solve", map[string]interface{}{"options": map[string]bool{"stepByStep": true}})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Success || resp.Error.Message != "No image provided" || resp.Error.RequestID != "req-1" {
		t.Errorf("Unexpected body %+v", resp)
	}
	if anim.scheduled != 0 {
		t.Error("Expected no animation")
	}
}

func TestSolve_NoCredential(t *testing.T) {
	h, _ := newAIHandler(nil)

	rr := postJSON(t, h.Solve, "/api/ai/solve", map[string]string{"image": "abc"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Error.Code != "CONFIGURATION_ERROR" || !strings.Contains(resp.Error.Message, "not configured") {
		t.Errorf("Unexpected error %+v", resp.Error)
	}
	if resp.Error.Hint == "" {
		t.Error("Expected a remediation hint")
	}
}

func TestSolve_UpstreamFailure(t *testing.T) {
	h, _ := newAIHandler(&stubCompleter{err: context.DeadlineExceeded})

	rr := postJSON(t, h.Solve, "/api/ai/solve", map[string]string{"image": "abc"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if !strings.HasPrefix(resp.Error.Message, "Failed to solve problem: ") {
		t.Errorf("Unexpected message %q", resp.Error.Message)
	}
}

func TestSolve_Success(t *testing.T) {
	h, anim := newAIHandler(&stubCompleter{resp: &services.Completion{Text: "Answer: 42", Model: "vision", TokensUsed: 9}})

	rr := postJSON(t, h.Solve, "/api/ai/solve", map[string]string{"image": "abc", "clientId": "c1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.SolveResult
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.Solution.ExtractedAnswer != "42" || resp.Solution.TokensUsed != 9 {
		t.Errorf("Unexpected result %+v", resp)
	}
	if resp.Solution.ToolCalls == nil {
		t.Error("Expected toolCalls to be an empty list, not null")
	}
	if anim.scheduled != 1 {
		t.Errorf("Expected one animation, got %d", anim.scheduled)
	}
}

func TestSolve_InvalidBody(t *testing.T) {
	h, _ := newAIHandler(&stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/api/ai/solve", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.Solve(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestTest_ReportsProviderFailureInBody(t *testing.T) {
	h, _ := newAIHandler(&stubCompleter{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/api/ai/test", nil)
	rr := httptest.NewRecorder()
	h.Test(rr, req)

	var resp models.TestResult
	json.NewDecoder(rr.Body).Decode(&resp)
	if rr.Code != http.StatusOK || resp.Success || resp.Error == "" {
		t.Errorf("Unexpected response %d %+v", rr.Code, resp)
	}
}

func TestAnalyze(t *testing.T) {
	h, _ := newAIHandler(nil)

	rr := postJSON(t, h.Analyze, "/api/ai/analyze", map[string]string{"image": "data:image/png;base64,AAAAAAAAAAAAAAAAAAAA"})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp models.AnalyzeResult
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Message != "Image received successfully" || resp.Format != "data:image/png;base64,AAAAAAAA..." {
		t.Errorf("Unexpected result %+v", resp)
	}

	rr = postJSON(t, h.Analyze, "/api/ai/analyze", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing image, got %d", rr.Code)
	}
}

// ─── Canvas Handler Tests ───

func TestCanvasDraw_UnknownAction(t *testing.T) {
	h, relay := newCanvasHandler()

	rr := postJSON(t, h.Draw, "/api/canvas/draw", map[string]interface{}{"action": "spiral", "data": map[string]int{}})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Error.Message != "Unknown action" {
		t.Errorf("Unexpected message %q", resp.Error.Message)
	}
	if len(relay.events) != 0 {
		t.Error("Expected no broadcast")
	}
}

func TestCanvasDraw_KnownActionWithoutDataIsAccepted(t *testing.T) {
	bodies := []map[string]interface{}{
		{"action": "line"},
		{"action": "text", "data": map[string]int{"text": 5}},
	}
	for _, body := range bodies {
		h, relay := newCanvasHandler()

		rr := postJSON(t, h.Draw, "/api/canvas/draw", body)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 for %v, got %d: %s", body, rr.Code, rr.Body.String())
		}
		if len(relay.events) != 1 || relay.events[0] != models.EventLLMDraw {
			t.Errorf("Expected one llm-draw broadcast for %v, got %v", body, relay.events)
		}
	}
}

func TestCanvasDraw_LineThenClear(t *testing.T) {
	h, relay := newCanvasHandler()

	line := map[string]interface{}{
		"action": "line",
		"data":   map[string]interface{}{"from": map[string]int{"x": 1, "y": 1}, "to": map[string]int{"x": 9, "y": 9}},
	}
	rr := postJSON(t, h.Draw, "/api/canvas/draw", line)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		StrokeCount int    `json:"strokeCount"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.StrokeCount != 1 || resp.Message != "Drawing command executed" {
		t.Errorf("Unexpected response %+v", resp)
	}

	rr = postJSON(t, h.Draw, "/api/canvas/draw", map[string]string{"action": "clear"})
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.StrokeCount != 0 {
		t.Errorf("Expected empty log after clear, got %d", resp.StrokeCount)
	}

	if len(relay.events) != 2 || relay.events[0] != models.EventLLMDraw || relay.events[1] != models.EventClear {
		t.Errorf("Unexpected broadcasts %v", relay.events)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/canvas/state", nil)
	rr = httptest.NewRecorder()
	h.State(rr, req)
	var state struct {
		Success bool               `json:"success"`
		State   models.CanvasState `json:"state"`
	}
	json.NewDecoder(rr.Body).Decode(&state)
	if !state.Success || len(state.State.Strokes) != 0 {
		t.Errorf("Unexpected state %+v", state)
	}
}

func TestCanvasStoreImage(t *testing.T) {
	h, _ := newCanvasHandler()

	rr := postJSON(t, h.StoreImage, "/api/canvas/image", map[string]string{"image": "whatever"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/canvas/state", nil)
	rr = httptest.NewRecorder()
	h.State(rr, req)
	if !strings.Contains(rr.Body.String(), `"currentImage":"whatever"`) {
		t.Errorf("Expected stored image in state, got %s", rr.Body.String())
	}
}

func TestCanvasRender(t *testing.T) {
	h, _ := newCanvasHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/canvas/render.png", nil)
	rr := httptest.NewRecorder()
	h.Render(rr, req)

	if rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("Unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if _, err := png.Decode(rr.Body); err != nil {
		t.Errorf("Expected a PNG body: %v", err)
	}
}

// ─── Health / NotFound ───

func TestHealth(t *testing.T) {
	h := NewHealthHandler("groq", true, &stubRelay{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)

	var resp models.HealthResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "healthy" || resp.Version != Version || !resp.AIConfigured || resp.Clients != 2 || resp.Timestamp == "" {
		t.Errorf("Unexpected health %+v", resp)
	}
}

func TestNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	NotFound(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Success || resp.Error.Message != "Route not found" {
		t.Errorf("Unexpected body %+v", resp)
	}
}
