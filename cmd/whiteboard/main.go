// Command whiteboard is a headless board. It joins a running server's relay,
// optionally draws a stroke and asks for a solution, listens for a while and
// writes what it saw to a PNG.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/canvas"
	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/relayclient"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

var (
	serverURL  string
	outPath    string
	strokeSpec string
	penColor   string
	penWidth   float64
	solvePath  string
	stepByStep bool
	listenFor  time.Duration
	verbose    bool
)

func init() {
	flag.StringVar(&serverURL, "server", "http://localhost:3000", "draw-agent server url")
	flag.StringVar(&outPath, "out", "board.png", "where to write the rendered board")
	flag.StringVar(&strokeSpec, "stroke", "", `polyline to draw, e.g. "10,10;80,40;150,10"`)
	flag.StringVar(&penColor, "color", "#000000", "pen color")
	flag.Float64Var(&penWidth, "width", 3, "pen width")
	flag.StringVar(&solvePath, "solve", "", "image file to solve instead of the board (use - for the board)")
	flag.BoolVar(&stepByStep, "steps", false, "ask for a step by step solution")
	flag.DurationVar(&listenFor, "listen", 3*time.Second, "how long to keep rendering relay events")
	flag.BoolVar(&verbose, "v", false, "debug logging")
}

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("whiteboard failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	surface := canvas.NewSurface(services.RenderWidth, services.RenderHeight)

	client, err := relayclient.Dial(ctx, serverURL, surface, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.ID(ctx)
	if err != nil {
		return err
	}
	logger.Info().Str("client_id", id).Msg("joined board")

	client.OnEvent(func(m models.WSMessage) {
		logger.Debug().Str("type", m.Type).Msg("event")
	})

	if strokeSpec != "" {
		points, err := parsePoints(strokeSpec)
		if err != nil {
			return err
		}
		surface.SetTool(canvas.Pen, penColor, penWidth)
		if err := client.Stroke(points); err != nil {
			return err
		}
		logger.Info().Int("points", len(points)).Msg("stroke sent")
	}

	if solvePath != "" {
		opts := models.SolveOptions{StepByStep: stepByStep}
		var sol *models.Solution
		if solvePath == "-" {
			sol, err = client.Solve(ctx, opts)
		} else {
			var img string
			img, err = readImage(solvePath)
			if err == nil {
				sol, err = client.SolveImage(ctx, img, opts)
			}
		}
		if err != nil {
			return err
		}
		fmt.Println(sol.Answer)
		logger.Info().Str("answer", sol.ExtractedAnswer).Int("steps", len(sol.Steps)).
			Int("tool_calls", len(sol.ToolCalls)).Msg("solved")
	}

	select {
	case <-time.After(listenFor):
	case <-client.Done():
		logger.Warn().Msg("relay closed")
	case <-ctx.Done():
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := surface.EncodePNG(f); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info().Str("path", outPath).Int("events", client.Received()).Msg("board saved")
	return nil
}

func parsePoints(s string) ([]models.Point, error) {
	var points []models.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("bad point %q", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("bad point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("bad point %q: %w", pair, err)
		}
		points = append(points, models.Point{X: x, Y: y})
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("a stroke needs at least two points")
	}
	return points, nil
}

func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
