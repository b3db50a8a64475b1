// Package snapshot decodes canvas captures sent as data URLs or bare base64
// and prepares them for upload to a vision model.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const defaultMIME = "image/png"

var ErrEmpty = errors.New("snapshot is empty")

type Image struct {
	MIME string
	Data []byte
}

// Decode accepts "data:<mime>;base64,<payload>" or a bare base64 payload,
// which is assumed to be PNG.
func Decode(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}

	mime := defaultMIME
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URL")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("data URL is not base64 encoded")
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = m
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &Image{MIME: mime, Data: data}, nil
}

// DataURL renders the image the way browsers export a canvas.
func (i *Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Format is the short image format name ("png", "jpeg", ...).
func (i *Image) Format() string {
	_, f, ok := strings.Cut(i.MIME, "/")
	if !ok {
		return i.MIME
	}
	return f
}

// Dimensions reads the image header only.
func (i *Image) Dimensions() (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Fit shrinks the image so its longest edge is at most maxEdge, re-encoding
// it as PNG. Images already small enough, or maxEdge <= 0, are returned
// unchanged.
func Fit(img *Image, maxEdge int) (*Image, error) {
	if maxEdge <= 0 {
		return img, nil
	}
	w, h, err := img.Dimensions()
	if err != nil {
		return nil, err
	}
	if w <= maxEdge && h <= maxEdge {
		return img, nil
	}

	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Fit(src, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return &Image{MIME: defaultMIME, Data: buf.Bytes()}, nil
}
