package types

import (
	"fmt"
	"strings"
)

// Style selects one of the three roast variants
type Style int

// Styles in display order. The zero value is Savage.
const (
	Savage Style = iota
	Friendly
	Compliment
)

// StyleInfo holds the presentation data associated with a Style
type StyleInfo struct {
	Key    string // lowercase id used in JSON fields and filenames
	Label  string // display name
	Accent string // hex colour used by the style selector
}

var styleTable = [...]StyleInfo{
	Savage:     {Key: "savage", Label: "Savage", Accent: "#ef4444"},
	Friendly:   {Key: "friendly", Label: "Friendly", Accent: "#2dd4bf"},
	Compliment: {Key: "compliment", Label: "Compliment", Accent: "#ec4899"},
}

// AllStyles returns every style in display order
func AllStyles() []Style {
	return []Style{Savage, Friendly, Compliment}
}

// Valid reports whether s is one of the known styles
func (s Style) Valid() bool {
	return s >= Savage && s <= Compliment
}

// Info returns the lookup-table entry for s. Unknown values fall back to Savage.
func (s Style) Info() StyleInfo {
	if !s.Valid() {
		return styleTable[Savage]
	}
	return styleTable[s]
}

// Key returns the lowercase identifier of the style
func (s Style) Key() string { return s.Info().Key }

// Label returns the display name of the style
func (s Style) Label() string { return s.Info().Label }

// String implements fmt.Stringer
func (s Style) String() string { return s.Key() }

// Next returns the following style, wrapping around
func (s Style) Next() Style {
	if !s.Valid() {
		return Savage
	}
	return (s + 1) % Style(len(styleTable))
}

// Prev returns the preceding style, wrapping around
func (s Style) Prev() Style {
	if !s.Valid() {
		return Savage
	}
	n := Style(len(styleTable))
	return (s + n - 1) % n
}

// ParseStyle accepts a style key or label, case-insensitively
func ParseStyle(v string) (Style, error) {
	v = strings.TrimSpace(v)
	for _, s := range AllStyles() {
		info := styleTable[s]
		if strings.EqualFold(v, info.Key) || strings.EqualFold(v, info.Label) {
			return s, nil
		}
	}
	return Savage, fmt.Errorf("unknown roast style %q (use savage, friendly or compliment)", v)
}

// Roasts is the three-variant result of one inference call
type Roasts struct {
	Savage     string `json:"savage"`
	Friendly   string `json:"friendly"`
	Compliment string `json:"compliment"`
}

// Text returns the roast for the given style
func (r Roasts) Text(s Style) string {
	switch s {
	case Friendly:
		return r.Friendly
	case Compliment:
		return r.Compliment
	default:
		return r.Savage
	}
}

// ImageHandle is an in-memory photo as supplied by the user
type ImageHandle struct {
	Data      []byte
	MediaType string // declared media type, e.g. image/jpeg
	Source    string // path or URL it was read from
}

// IsImage reports whether the declared media type is an image type
func (h *ImageHandle) IsImage() bool {
	return h != nil && strings.HasPrefix(strings.ToLower(h.MediaType), "image/")
}

// RoastRequest contains what a vision backend needs for one roast call
type RoastRequest struct {
	ImageB64          string // base64 encoded image, no data URI prefix
	MimeType          string
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}
