package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/scheduler"
)

type stubCompleter struct {
	name     string
	resp     *Completion
	err      error
	pingResp *Completion
	pingErr  error

	calls int
	last  CompletionRequest
}

func (s *stubCompleter) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubCompleter) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	s.calls++
	s.last = req
	return s.resp, s.err
}

func (s *stubCompleter) Ping(context.Context) (*Completion, error) {
	return s.pingResp, s.pingErr
}

type recordingAnimator struct {
	calls int
	key   string
	tasks []scheduler.Task
}

func (a *recordingAnimator) Schedule(key string, tasks []scheduler.Task) uuid.UUID {
	a.calls++
	a.key = key
	a.tasks = tasks
	return uuid.New()
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.DrawEvent
}

func (e *recordingEmitter) Emit(_ context.Context, ev models.DrawEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

type broadcast struct {
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (b *recordingBroadcaster) Broadcast(event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcast{event: event, payload: payload})
	return nil
}

// pngBase64 returns a bare base64 PNG of the given size.
func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
