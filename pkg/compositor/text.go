package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// MeasureFunc returns the rendered width of s in pixels
type MeasureFunc func(s string) float64

// boldFont is parsed once; faces built from it are per call because
// font.Face implementations are not safe for concurrent use.
var boldFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// newFace returns a bold face where one unit of size is one pixel
func newFace(size float64) (font.Face, error) {
	f, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %.0fpx face: %w", size, err)
	}
	return face, nil
}

// FaceMeasurer measures strings with face
func FaceMeasurer(face font.Face) MeasureFunc {
	return func(s string) float64 {
		return fixedToFloat(font.MeasureString(face, s))
	}
}

// Wrap packs the space separated words of text greedily into lines. A word
// joins the current line only while the joined line measures strictly less
// than maxWidth; otherwise the line is flushed and the word starts a new
// one. A single word wider than maxWidth is never split. Joining the result
// with single spaces gives back text unchanged.
func Wrap(measure MeasureFunc, text string, maxWidth float64) []string {
	words := strings.Split(text, " ")
	lines := make([]string, 0, 4)
	line := words[0]

	for _, w := range words[1:] {
		candidate := line + " " + w
		if measure(candidate) < maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// drawText draws s with its anchor at x and its alphabetic baseline at y
func drawText(dst draw.Image, face font.Face, c color.Color, s string, x, baseline float64, a align) {
	w := fixedToFloat(font.MeasureString(face, s))
	switch a {
	case alignCenter:
		x -= w / 2
	case alignRight:
		x -= w
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(baseline)},
	}
	d.DrawString(s)
}

// middleBaseline converts a vertical centre into a baseline so the em box
// of face is centred on cy
func middleBaseline(face font.Face, cy float64) float64 {
	m := face.Metrics()
	return cy + (fixedToFloat(m.Ascent)-fixedToFloat(m.Descent))/2
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
