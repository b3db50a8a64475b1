// Package relayclient is a headless board: it joins the relay, renders what
// other boards draw onto a canvas.Surface and can ask the server to solve
// what is on it.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/canvas"
	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

const (
	handshakeTimeout = 8 * time.Second
	solveTimeout     = 90 * time.Second
)

type Client struct {
	baseURL string
	conn    *websocket.Conn
	surface *canvas.Surface
	http    *http.Client
	logger  zerolog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	id       string
	ready    chan struct{}
	done     chan struct{}
	onEvent  func(models.WSMessage)
	received int
}

// Dial connects to the relay of the server at baseURL (http or https).
func Dial(ctx context.Context, baseURL string, surface *canvas.Surface, logger zerolog.Logger) (*Client, error) {
	wsURL, err := relayURL(baseURL)
	if err != nil {
		return nil, err
	}

	d := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := d.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	logger.Info().Str("url", wsURL).Msg("connected to relay")

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		conn:    conn,
		surface: surface,
		http:    &http.Client{Timeout: solveTimeout},
		logger:  logger,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func relayURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// OnEvent registers fn to run after every inbound frame has been rendered.
func (c *Client) OnEvent(fn func(models.WSMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// ID waits for the relay to assign this board its id.
func (c *Client) ID(ctx context.Context) (string, error) {
	select {
	case <-c.ready:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.id, nil
	case <-c.done:
		return "", fmt.Errorf("relay connection closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed when the relay connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Received counts inbound draw frames.
func (c *Client) Received() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.received
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("relay read failed")
			}
			return
		}

		var msg models.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg models.WSMessage) {
	switch msg.Type {
	case models.EventConnected:
		var ev models.ConnectedEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			c.logger.Warn().Err(err).Msg("bad connected event")
			return
		}
		c.mu.Lock()
		first := c.id == ""
		c.id = ev.ClientID
		c.mu.Unlock()
		if first {
			close(c.ready)
		}
	case models.EventDraw:
		var line models.LineData
		if err := json.Unmarshal(msg.Payload, &line); err != nil {
			c.logger.Debug().Err(err).Msg("bad draw event")
			return
		}
		c.surface.DrawLine(line)
	case models.EventClear:
		c.surface.Clear()
	case models.EventLLMDraw:
		var ev models.DrawEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("bad llm-draw event")
			return
		}
		if err := c.surface.Apply(ev); err != nil {
			c.logger.Debug().Err(err).Msg("llm-draw not rendered")
		}
	default:
		return
	}

	c.mu.Lock()
	if msg.Type != models.EventConnected {
		c.received++
	}
	fn := c.onEvent
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) send(event string, payload any) error {
	msg := models.WSMessage{Type: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

// Stroke draws a polyline with the current tool locally and sends each
// segment to the other boards as it is drawn.
func (c *Client) Stroke(points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	c.surface.PenDown(points[0])
	defer c.surface.PenUp()

	for _, p := range points[1:] {
		seg, ok := c.surface.PenMove(p)
		if !ok {
			continue
		}
		if err := c.send(models.EventDraw, seg); err != nil {
			return fmt.Errorf("send segment: %w", err)
		}
	}
	return nil
}

// Clear wipes this board and asks the others to do the same.
func (c *Client) Clear() error {
	c.surface.Clear()
	return c.send(models.EventClear, nil)
}

// Solve snapshots the surface and posts it to the server.
func (c *Client) Solve(ctx context.Context, opts models.SolveOptions) (*models.Solution, error) {
	img, err := c.surface.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return c.SolveImage(ctx, img, opts)
}

// SolveImage posts an already encoded image (data URL or bare base64). The
// request carries this board's relay id so the answer animation follows it.
func (c *Client) SolveImage(ctx context.Context, image string, opts models.SolveOptions) (*models.Solution, error) {
	id, err := c.ID(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(models.SolveRequest{Image: image, Options: opts, ClientID: id})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/solve", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solve request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error.Message == "" {
			return nil, fmt.Errorf("solve failed: %s", resp.Status)
		}
		if apiErr.Error.Hint != "" {
			return nil, fmt.Errorf("solve failed: %s (%s)", apiErr.Error.Message, apiErr.Error.Hint)
		}
		return nil, fmt.Errorf("solve failed: %s", apiErr.Error.Message)
	}

	var result models.SolveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode solve response: %w", err)
	}
	return &result.Solution, nil
}
