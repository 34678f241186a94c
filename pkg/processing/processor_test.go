package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/roast-cam/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadSource_File(t *testing.T) {
	dir := t.TempDir()
	data := pngBytes(t, createTestImage(40, 30))

	path := filepath.Join(dir, "selfie.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	h, err := NewProcessor().LoadSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", h.MediaType)
	assert.Equal(t, data, h.Data)
	assert.Equal(t, path, h.Source)
	assert.True(t, h.IsImage())
}

func TestLoadSource_DeclaredTypeWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, pngBytes(t, createTestImage(4, 4)), 0o644))

	h, err := NewProcessor().LoadSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", h.MediaType)
	assert.False(t, h.IsImage())
}

func TestLoadSource_SniffsWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture")
	require.NoError(t, os.WriteFile(path, pngBytes(t, createTestImage(4, 4)), 0o644))

	h, err := NewProcessor().LoadSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", h.MediaType)
}

func TestLoadSource_MissingFile(t *testing.T) {
	_, err := NewProcessor().LoadSource(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = NewProcessor().LoadSource(context.Background(), "  ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = NewProcessor().LoadSource(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, types.ErrInvalidInput, "a directory is not a photo")
}

func TestLoadSource_URL(t *testing.T) {
	data := pngBytes(t, createTestImage(8, 8))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			_, _ = w.Write(data)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessorWithClient(srv.Client(), 1)

	h, err := p.LoadSource(context.Background(), srv.URL+"/photo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", h.MediaType)
	assert.Equal(t, data, h.Data)

	h, err = p.LoadSource(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.False(t, h.IsImage())

	_, err = p.LoadSource(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(pngBytes(t, createTestImage(30, 20)))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	_, err = DecodeImage([]byte("garbage"))
	assert.Error(t, err)
}

func TestDecodeHandle(t *testing.T) {
	p := NewProcessor()

	_, err := p.DecodeHandle(nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = p.DecodeHandle(&types.ImageHandle{Data: []byte("xx"), MediaType: "image/jpeg"})
	assert.ErrorIs(t, err, types.ErrImageDecode)
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 200)

	b64, err := p.PrepareImageForModel(img, "jpg", 100, 80)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	b64, err = p.PrepareImageForModel(img, "png", 0, 0)
	require.NoError(t, err)
	raw, err = base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
}

func TestModelMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ModelMimeType("jpg"))
	assert.Equal(t, "image/jpeg", ModelMimeType(""))
	assert.Equal(t, "image/png", ModelMimeType("PNG"))
}

func TestGetImageInfo(t *testing.T) {
	info := GetImageInfo(createTestImage(400, 300))
	assert.Equal(t, 400, info.Width)
	assert.Equal(t, 300, info.Height)
	assert.InDelta(t, 4.0/3.0, info.AspectRatio, 0.001)
	assert.Equal(t, 120000, info.Area)
}

func TestValidateImage(t *testing.T) {
	p := NewProcessorWithClient(nil, 100)
	assert.NoError(t, p.ValidateImage(createTestImage(200, 150)))
	assert.ErrorIs(t, p.ValidateImage(createTestImage(50, 150)), types.ErrInvalidInput)
}

func TestDecodeImage_WebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, createTestImage(32, 24), &webp.Options{Lossless: true}))

	decoded, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 24, decoded.Bounds().Dy())
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h
// grayscale pixels, with no image data behind it
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; colour type, compression, filter and interlace stay 0

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeImage_RejectsHugeDeclaredSize(t *testing.T) {
	_, err := DecodeImage(pngHeader(30000, 30000))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = NewProcessor().DecodeHandle(&types.ImageHandle{Data: pngHeader(30000, 30000), MediaType: "image/png"})
	assert.ErrorIs(t, err, types.ErrImageDecode)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestDecodeImage_SmallHeaderWithoutDataIsNotTooLarge(t *testing.T) {
	_, err := DecodeImage(pngHeader(10, 10))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageTooLarge)
}
