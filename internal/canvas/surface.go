// Package canvas is a raster drawing surface that renders relay events and
// local pointer strokes the same way the browser board does.
package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

var (
	Background       = color.RGBA{0xfa, 0xfa, 0xfa, 0xff}
	defaultLineColor = color.RGBA{0xff, 0x6b, 0x6b, 0xff}
	defaultTextColor = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

const (
	defaultLineWidth = 2
	defaultTextSize  = 16
	minTextSize      = 1
)

type Tool int

const (
	Pen Tool = iota
	Eraser
)

// Surface is safe for concurrent use: relay events and local input may
// arrive on different goroutines.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA

	tool     Tool
	penColor string
	penWidth float64
	down     bool
	last     models.Point
}

func NewSurface(width, height int) *Surface {
	s := &Surface{
		img:      image.NewRGBA(image.Rect(0, 0, width, height)),
		penColor: "#000000",
		penWidth: defaultLineWidth,
	}
	s.fill()
	return s
}

func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Apply renders one relay event.
func (s *Surface) Apply(ev models.DrawEvent) error {
	switch ev.Action {
	case models.ActionLine:
		l, err := ev.Line()
		if err != nil {
			return err
		}
		s.DrawLine(l)
	case models.ActionText:
		t, err := ev.Text()
		if err != nil {
			return err
		}
		s.DrawText(t)
	case models.ActionClear:
		s.Clear()
	default:
		return fmt.Errorf("unknown draw action %q", ev.Action)
	}
	return nil
}

func (s *Surface) DrawLine(l models.LineData) {
	c := colorOr(l.Color, defaultLineColor)
	w := l.Width
	if w <= 0 {
		w = defaultLineWidth
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokeLine(l.From, l.To, c, w)
}

// DrawText places text with its baseline at (X, Y), like fillText.
func (s *Surface) DrawText(t models.TextData) {
	if t.Text == "" {
		return
	}
	if !finite(t.X) || !finite(t.Y) {
		return
	}
	c := colorOr(t.Color, defaultTextColor)
	size := t.Size
	if size <= 0 || !finite(size) {
		size = defaultTextSize
	}
	bounds := s.Bounds()
	size = math.Min(size, float64(bounds.Dy()))
	if size < minTextSize {
		return
	}

	face := basicfont.Face7x13
	scale := size / float64(face.Height)
	if t.Y+float64(face.Descent)*scale < float64(bounds.Min.Y) || t.Y-float64(face.Ascent)*scale > float64(bounds.Max.Y) {
		return
	}
	text, x := visibleText(t.Text, t.X, float64(face.Advance)*scale, bounds)
	if text == "" {
		return
	}
	width := font.MeasureString(face, text).Ceil()
	glyphs := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	scaledW := int(math.Round(float64(width) * scale))
	if scaledW <= 0 {
		return
	}
	scaled := imaging.Resize(glyphs, scaledW, 0, imaging.Linear)

	top := int(math.Round(t.Y - float64(face.Ascent)*scale))
	origin := image.Pt(int(math.Round(x)), top)

	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, scaled.Bounds().Add(origin), scaled, image.Point{}, draw.Over)
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fill()
}

// SetTool selects the pen or the eraser for local pointer input.
func (s *Surface) SetTool(tool Tool, color string, width float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = tool
	if color != "" {
		s.penColor = color
	}
	if width > 0 {
		s.penWidth = width
	}
}

func (s *Surface) PenDown(p models.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = true
	s.last = p
}

// PenMove renders the segment from the previous pointer position and returns
// it so the caller can broadcast it. It returns false while the pen is up.
func (s *Surface) PenMove(p models.Point) (models.LineData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.down {
		return models.LineData{}, false
	}

	seg := models.LineData{From: s.last, To: p, Color: s.penColor, Width: s.penWidth}
	if s.tool == Eraser {
		seg.Color = "#fafafa"
		seg.Width = s.penWidth * 3
	}
	s.strokeLine(seg.From, seg.To, colorOr(seg.Color, defaultLineColor), seg.Width)
	s.last = p
	return seg, true
}

func (s *Surface) PenUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = false
}

// At returns the pixel at (x, y).
func (s *Surface) At(x, y int) color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.RGBAAt(x, y)
}

// Image returns a copy of the current raster.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

func (s *Surface) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, s.Image(), imaging.PNG)
}

// Snapshot exports the surface as a PNG data URL, the input of a solve call.
func (s *Surface) Snapshot() (string, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Surface) fill() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
}

// strokeLine stamps round discs along the segment, giving round caps and
// joins. The width is capped at the larger surface edge and the segment is
// clipped to the surface grown by the pen radius, so the work is bounded by
// the surface size whatever the coordinates. Caller holds mu.
func (s *Surface) strokeLine(from, to models.Point, c color.RGBA, width float64) {
	if !finite(from.X) || !finite(from.Y) || !finite(to.X) || !finite(to.Y) || math.IsNaN(width) {
		return
	}
	b := s.img.Bounds()
	width = math.Min(width, float64(max(b.Dx(), b.Dy())))
	r := width / 2

	from, to, ok := clipSegment(from, to,
		float64(b.Min.X)-r-1, float64(b.Min.Y)-r-1, float64(b.Max.X)+r+1, float64(b.Max.Y)+r+1)
	if !ok {
		return
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy)) * 2))
	if steps == 0 {
		s.disc(from.X, from.Y, r, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.disc(from.X+dx*t, from.Y+dy*t, r, c)
	}
}

func (s *Surface) disc(cx, cy, r float64, c color.RGBA) {
	if r < 0.5 {
		r = 0.5
	}
	b := s.img.Bounds()
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))
	for y := minY; y <= maxY; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			px, py := float64(x)+0.5-cx, float64(y)+0.5-cy
			if px*px+py*py <= r*r {
				s.img.SetRGBA(x, y, c)
			}
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clipSegment cuts the segment down to the rectangle (Liang-Barsky). It
// reports false when nothing of the segment lies inside.
func clipSegment(from, to models.Point, minX, minY, maxX, maxY float64) (models.Point, models.Point, bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, from.X - minX},
		{dx, maxX - from.X},
		{-dy, from.Y - minY},
		{dy, maxY - from.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return from, to, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return from, to, false
			}
			t1 = math.Min(t1, t)
		}
	}

	clippedFrom := models.Point{X: from.X + t0*dx, Y: from.Y + t0*dy}
	clippedTo := models.Point{X: from.X + t1*dx, Y: from.Y + t1*dy}
	return clippedFrom, clippedTo, true
}

// visibleText drops the runes of a fixed-advance label that would land
// left or right of the surface and returns the label with its new x.
func visibleText(text string, x, advance float64, bounds image.Rectangle) (string, float64) {
	if advance <= 0 || x >= float64(bounds.Max.X) {
		return "", x
	}
	runes := []rune(text)

	if x < float64(bounds.Min.X) {
		skip := int(math.Floor((float64(bounds.Min.X) - x) / advance))
		if skip >= len(runes) {
			return "", x
		}
		runes = runes[skip:]
		x += float64(skip) * advance
	}

	fit := int(math.Ceil((float64(bounds.Max.X)-x)/advance)) + 1
	if fit < len(runes) {
		runes = runes[:fit]
	}
	return string(runes), x
}
