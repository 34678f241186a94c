// Package compositor renders shareable roast cards.
//
// A card is the source photo scaled to a fixed width, darkened towards the
// bottom by a gradient, with a title in the top-right corner and the roast
// caption word-wrapped above the bottom edge. Rendering is headless and
// deterministic: the same inputs always encode to the same PNG bytes.
package compositor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"

	"github.com/menta2k/roast-cam/pkg/processing"
	"github.com/menta2k/roast-cam/pkg/types"
)

// Config controls card layout. All sizes are in output pixels.
type Config struct {
	Width           int
	MaxHeight       int // tallest canvas that will be allocated
	Title           string
	TitleColor      color.NRGBA
	TitleSize       float64
	LabelColor      color.NRGBA
	LabelSize       float64
	EdgeInset       float64 // distance of the title block from the right edge
	FontSize        float64 // caption font size
	MinFontSize     float64 // smallest size tried before letting a caption overflow
	FontStep        float64
	LineSpacing     float64 // line height as a multiple of the font size
	SidePadding     float64 // caption lines stay narrower than Width-SidePadding
	BottomMargin    float64
	HeaderHeight    float64 // area reserved for the title block
	ShadowBlur      float64
	GradientOpacity [3]float64 // alpha at 0, 0.6 and 1 of the lower half
}

// DefaultConfig returns the standard card layout
func DefaultConfig() Config {
	return Config{
		Width:           1080,
		MaxHeight:       32767,
		Title:           "AI Roast Cam",
		TitleColor:      color.NRGBA{0xec, 0x48, 0x99, 0xff},
		TitleSize:       40,
		LabelColor:      color.NRGBA{0xff, 0xff, 0xff, 0xb3},
		LabelSize:       24,
		EdgeInset:       40,
		FontSize:        48,
		MinFontSize:     28,
		FontStep:        4,
		LineSpacing:     1.4,
		SidePadding:     100,
		BottomMargin:    80,
		HeaderHeight:    140,
		ShadowBlur:      10,
		GradientOpacity: [3]float64{0, 0.8, 0.95},
	}
}

// Compositor draws roast cards
type Compositor struct {
	config Config
}

// New creates a Compositor with the default layout
func New() *Compositor {
	return &Compositor{config: DefaultConfig()}
}

// NewWithConfig creates a Compositor with a custom layout
func NewWithConfig(config Config) *Compositor {
	return &Compositor{config: config}
}

// Config returns the layout in use
func (c *Compositor) Config() Config {
	return c.config
}

// TargetSize returns the canvas size for a source of w x h pixels
func (c *Compositor) TargetSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	tw := c.config.Width
	th := int(math.Round(float64(h) * float64(tw) / float64(w)))
	if th < 1 {
		th = 1
	}
	return tw, th
}

// MaxLineWidth is the exclusive upper bound on a caption line's width
func (c *Compositor) MaxLineWidth() float64 {
	return float64(c.config.Width) - c.config.SidePadding
}

// ComposeBytes decodes data and composes it. See Compose.
func (c *Compositor) ComposeBytes(data []byte, caption, label string) ([]byte, error) {
	src, err := processing.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImageDecode, err)
	}
	return c.Compose(src, caption, label)
}

// Compose renders a card and encodes it as PNG. src is not modified.
func (c *Compositor) Compose(src image.Image, caption, label string) ([]byte, error) {
	canvas, err := c.Render(src, caption, label)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", types.ErrCompositing, err)
	}
	return buf.Bytes(), nil
}

// Render draws a card onto a fresh canvas
func (c *Compositor) Render(src image.Image, caption, label string) (*image.RGBA, error) {
	if src == nil {
		return nil, types.ErrImageDecode
	}
	b := src.Bounds()
	w, h := c.TargetSize(b.Dx(), b.Dy())
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d source", types.ErrRenderContext, b.Dx(), b.Dy())
	}
	if c.config.MaxHeight > 0 && h > c.config.MaxHeight {
		return nil, fmt.Errorf("%w: %dx%d canvas exceeds height limit %d", types.ErrRenderContext, w, h, c.config.MaxHeight)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	// 1. photo, stretched to fill exactly
	scaled := imaging.Resize(src, w, h, imaging.Lanczos)
	draw.Draw(canvas, canvas.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	// 2. gradient over the lower half
	c.drawGradient(canvas)

	// 3. title and style label
	if err := c.drawHeader(canvas, label); err != nil {
		return nil, err
	}

	// 4. caption
	if err := c.drawCaption(canvas, caption); err != nil {
		return nil, err
	}

	return canvas, nil
}

// GradientAlpha returns the overlay opacity at fraction t of the lower half
func (c *Compositor) GradientAlpha(t float64) float64 {
	stops := c.config.GradientOpacity
	switch {
	case t <= 0:
		return stops[0]
	case t >= 1:
		return stops[2]
	case t <= 0.6:
		return stops[0] + (stops[1]-stops[0])*t/0.6
	default:
		return stops[1] + (stops[2]-stops[1])*(t-0.6)/0.4
	}
}

func (c *Compositor) drawGradient(canvas *image.RGBA) {
	b := canvas.Bounds()
	start := float64(b.Dy()) / 2
	span := float64(b.Dy()) - start

	for y := int(start); y < b.Max.Y; y++ {
		t := (float64(y) + 0.5 - start) / span
		a := c.GradientAlpha(t)
		if a <= 0 {
			continue
		}
		shade := image.NewUniform(color.NRGBA{A: uint8(math.Round(a * 255))})
		row := image.Rect(b.Min.X, y, b.Max.X, y+1)
		draw.Draw(canvas, row, shade, image.Point{}, draw.Over)
	}
}

func (c *Compositor) drawHeader(canvas *image.RGBA, label string) error {
	x := float64(c.config.Width) - c.config.EdgeInset

	titleFace, err := newFace(c.config.TitleSize)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrRenderContext, err)
	}
	defer titleFace.Close()
	drawText(canvas, titleFace, c.config.TitleColor, c.config.Title, x, 60, alignRight)

	labelFace, err := newFace(c.config.LabelSize)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrRenderContext, err)
	}
	defer labelFace.Close()
	drawText(canvas, labelFace, c.config.LabelColor, "Style: "+label, x, 100, alignRight)

	return nil
}

// captionLayout is the result of fitting a caption onto a canvas
type captionLayout struct {
	face       font.Face
	size       float64
	lines      []string
	lineHeight float64
	firstY     float64 // vertical centre of the first line
}

// layoutCaption wraps caption at the largest font size whose text block
// stays below the header. At MinFontSize the block is allowed to overflow.
func (c *Compositor) layoutCaption(height int, caption string) (*captionLayout, error) {
	maxWidth := c.MaxLineWidth()
	size := c.config.FontSize

	for {
		face, err := newFace(size)
		if err != nil {
			return nil, err
		}

		lines := Wrap(FaceMeasurer(face), caption, maxWidth)
		lh := size * c.config.LineSpacing
		n := float64(len(lines))
		firstY := float64(height) - c.config.BottomMargin - n*lh + lh

		fits := firstY-lh/2 >= c.config.HeaderHeight
		next := size - c.config.FontStep
		if fits || c.config.FontStep <= 0 || next < c.config.MinFontSize {
			return &captionLayout{face: face, size: size, lines: lines, lineHeight: lh, firstY: firstY}, nil
		}
		face.Close()
		size = next
	}
}

func (c *Compositor) drawCaption(canvas *image.RGBA, caption string) error {
	b := canvas.Bounds()
	layout, err := c.layoutCaption(b.Dy(), caption)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrRenderContext, err)
	}
	defer layout.face.Close()

	cx := float64(b.Dx()) / 2

	if c.config.ShadowBlur > 0 {
		c.drawShadow(canvas, layout, cx)
	}

	y := layout.firstY
	for _, line := range layout.lines {
		drawText(canvas, layout.face, color.White, line, cx, middleBaseline(layout.face, y), alignCenter)
		y += layout.lineHeight
	}
	return nil
}

// drawShadow renders the caption in black on a separate layer, blurs it and
// composites it under where the caption will be drawn.
func (c *Compositor) drawShadow(canvas *image.RGBA, layout *captionLayout, cx float64) {
	b := canvas.Bounds()
	pad := int(math.Ceil(c.config.ShadowBlur * 2))
	top := int(layout.firstY-layout.lineHeight/2) - pad
	bottom := int(layout.firstY+float64(len(layout.lines))*layout.lineHeight) + pad
	band := image.Rect(b.Min.X, top, b.Max.X, bottom).Intersect(b)
	if band.Empty() {
		return
	}

	layer := image.NewNRGBA(image.Rect(0, 0, band.Dx(), band.Dy()))
	offset := float64(band.Min.Y)
	y := layout.firstY
	for _, line := range layout.lines {
		drawText(layer, layout.face, color.Black, line, cx, middleBaseline(layout.face, y)-offset, alignCenter)
		y += layout.lineHeight
	}

	blurred := imaging.Blur(layer, c.config.ShadowBlur/2)
	draw.Draw(canvas, band, blurred, image.Point{}, draw.Over)
}

// DataURI formats PNG bytes as a data URI
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
