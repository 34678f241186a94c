package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleZeroValueIsSavage(t *testing.T) {
	var s Style
	assert.Equal(t, Savage, s)
	assert.Equal(t, "savage", s.Key())
	assert.Equal(t, "Savage", s.Label())
}

func TestStyleLookupTable(t *testing.T) {
	tests := []struct {
		style Style
		key   string
		label string
	}{
		{Savage, "savage", "Savage"},
		{Friendly, "friendly", "Friendly"},
		{Compliment, "compliment", "Compliment"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			info := tt.style.Info()
			assert.Equal(t, tt.key, info.Key)
			assert.Equal(t, tt.label, info.Label)
			assert.NotEmpty(t, info.Accent)
		})
	}
}

func TestStyleCycle(t *testing.T) {
	assert.Equal(t, Friendly, Savage.Next())
	assert.Equal(t, Compliment, Friendly.Next())
	assert.Equal(t, Savage, Compliment.Next())

	assert.Equal(t, Compliment, Savage.Prev())
	assert.Equal(t, Savage, Friendly.Prev())

	assert.Equal(t, Savage, Style(42).Next())
	assert.Equal(t, "savage", Style(-1).Key())
}

func TestParseStyle(t *testing.T) {
	for _, in := range []string{"friendly", "Friendly", " FRIENDLY "} {
		s, err := ParseStyle(in)
		require.NoError(t, err)
		assert.Equal(t, Friendly, s)
	}

	_, err := ParseStyle("brutal")
	assert.Error(t, err)
}

func TestRoastsText(t *testing.T) {
	r := Roasts{Savage: "a", Friendly: "b", Compliment: "c"}
	assert.Equal(t, "a", r.Text(Savage))
	assert.Equal(t, "b", r.Text(Friendly))
	assert.Equal(t, "c", r.Text(Compliment))
}

func TestImageHandleIsImage(t *testing.T) {
	assert.True(t, (&ImageHandle{MediaType: "image/jpeg"}).IsImage())
	assert.True(t, (&ImageHandle{MediaType: "IMAGE/PNG"}).IsImage())
	assert.False(t, (&ImageHandle{MediaType: "text/plain"}).IsImage())
	assert.False(t, (&ImageHandle{}).IsImage())

	var h *ImageHandle
	assert.False(t, h.IsImage())
}

func TestCompositingErrorsWrapCategory(t *testing.T) {
	assert.True(t, errors.Is(ErrImageDecode, ErrCompositing))
	assert.True(t, errors.Is(ErrRenderContext, ErrCompositing))
	assert.False(t, errors.Is(ErrImageDecode, ErrInference))
}
