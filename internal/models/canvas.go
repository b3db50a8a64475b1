package models

import (
	"encoding/json"
	"fmt"
)

// Draw actions understood by the relay and the renderer.
const (
	ActionLine  = "line"
	ActionText  = "text"
	ActionClear = "clear"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LineData is the payload of a "line" action.
type LineData struct {
	From  Point   `json:"from"`
	To    Point   `json:"to"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// TextData is the payload of a "text" action.
type TextData struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

// DrawEvent is the unit broadcast over the relay.
type DrawEvent struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func NewLineEvent(l LineData) DrawEvent {
	data, _ := json.Marshal(l)
	return DrawEvent{Action: ActionLine, Data: data}
}

func NewTextEvent(t TextData) DrawEvent {
	data, _ := json.Marshal(t)
	return DrawEvent{Action: ActionText, Data: data}
}

func NewClearEvent() DrawEvent {
	return DrawEvent{Action: ActionClear}
}

func IsKnownAction(action string) bool {
	switch action {
	case ActionLine, ActionText, ActionClear:
		return true
	}
	return false
}

// Line decodes the payload of a line event.
func (e DrawEvent) Line() (LineData, error) {
	var l LineData
	if e.Action != ActionLine {
		return l, fmt.Errorf("event action is %q, not line", e.Action)
	}
	if err := json.Unmarshal(e.Data, &l); err != nil {
		return l, fmt.Errorf("decode line data: %w", err)
	}
	return l, nil
}

// Text decodes the payload of a text event.
func (e DrawEvent) Text() (TextData, error) {
	var t TextData
	if e.Action != ActionText {
		return t, fmt.Errorf("event action is %q, not text", e.Action)
	}
	if err := json.Unmarshal(e.Data, &t); err != nil {
		return t, fmt.Errorf("decode text data: %w", err)
	}
	return t, nil
}

// Stroke is one entry of the advisory stroke log: the event payload
// flattened next to its type.
type Stroke struct {
	Type  string  `json:"type"`
	From  *Point  `json:"from,omitempty"`
	To    *Point  `json:"to,omitempty"`
	Text  string  `json:"text,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

// StrokeFromEvent converts a line or text event into a log entry.
func StrokeFromEvent(e DrawEvent) (Stroke, error) {
	switch e.Action {
	case ActionLine:
		l, err := e.Line()
		if err != nil {
			return Stroke{}, err
		}
		return Stroke{Type: ActionLine, From: &l.From, To: &l.To, Color: l.Color, Width: l.Width}, nil
	case ActionText:
		t, err := e.Text()
		if err != nil {
			return Stroke{}, err
		}
		return Stroke{Type: ActionText, Text: t.Text, X: t.X, Y: t.Y, Color: t.Color, Size: t.Size}, nil
	default:
		return Stroke{}, fmt.Errorf("action %q does not produce a stroke", e.Action)
	}
}

// Event turns a log entry back into the event that produced it.
func (s Stroke) Event() DrawEvent {
	if s.Type == ActionText {
		return NewTextEvent(TextData{Text: s.Text, X: s.X, Y: s.Y, Color: s.Color, Size: s.Size})
	}
	l := LineData{Color: s.Color, Width: s.Width}
	if s.From != nil {
		l.From = *s.From
	}
	if s.To != nil {
		l.To = *s.To
	}
	return NewLineEvent(l)
}

// CanvasState is the advisory server-side copy of the board.
type CanvasState struct {
	Strokes      []Stroke `json:"strokes"`
	CurrentImage *string  `json:"currentImage"`
}

type DrawRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type StoreImageRequest struct {
	Image string `json:"image"`
}
