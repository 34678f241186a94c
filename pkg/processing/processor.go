package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/roast-cam/internal/utils"
	"github.com/menta2k/roast-cam/pkg/types"
)

// MaxSourceBytes caps how much is read from a file or URL
const MaxSourceBytes = 32 << 20

// MaxSourcePixels caps the decoded size of a photo. Compressed formats can
// declare dimensions far beyond what their byte size suggests.
const MaxSourcePixels = 64 << 20

// ErrImageTooLarge is returned when a photo declares more than MaxSourcePixels
var ErrImageTooLarge = errors.New("image dimensions too large")

// Processor loads source photos and prepares them for the vision model
type Processor struct {
	httpClient *http.Client
	minSize    int
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		minSize:    1,
	}
}

// NewProcessorWithClient creates a processor that downloads through hc
func NewProcessorWithClient(hc *http.Client, minSize int) *Processor {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if minSize < 1 {
		minSize = 1
	}
	return &Processor{httpClient: hc, minSize: minSize}
}

// IsURL reports whether source should be downloaded rather than opened
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadSource reads a file path or http(s) URL into an image handle. The
// handle's media type is what the source declares (file extension or
// Content-Type header), falling back to content sniffing when it declares
// nothing. A non-image media type is not an error here.
func (p *Processor) LoadSource(ctx context.Context, source string) (*types.ImageHandle, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", types.ErrInvalidInput)
	}
	if IsURL(source) {
		return p.loadURL(ctx, source)
	}
	return p.loadFile(source)
}

func (p *Processor) loadFile(path string) (*types.ImageHandle, error) {
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("%w: %s is not a readable file", types.ErrInvalidInput, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrInvalidInput, path, err)
	}

	return &types.ImageHandle{
		Data:      data,
		MediaType: declaredType(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), data),
		Source:    path,
	}, nil
}

func (p *Processor) loadURL(ctx context.Context, imageURL string) (*types.ImageHandle, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", types.ErrInvalidInput, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported URL scheme: %s", types.ErrInvalidInput, parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", types.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", "Roast-Cam/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %v", types.ErrInvalidInput, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: HTTP %s", types.ErrInvalidInput, resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image data: %v", types.ErrInvalidInput, err)
	}

	return &types.ImageHandle{
		Data:      data,
		MediaType: declaredType(resp.Header.Get("Content-Type"), data),
		Source:    imageURL,
	}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSourceBytes {
		return nil, fmt.Errorf("source larger than %d bytes", MaxSourceBytes)
	}
	return data, nil
}

// declaredType strips parameters from a declared media type and sniffs the
// content when nothing was declared
func declaredType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" {
		return strings.ToLower(mt)
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return strings.ToLower(declared)
	}
	return SniffType(data)
}

// SniffType returns the media type detected from the content itself
func SniffType(data []byte) string {
	mt, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
	return mt
}

// DecodeImage decodes image bytes, honouring EXIF orientation, with an
// explicit WebP fallback
func DecodeImage(data []byte) (image.Image, error) {
	if err := checkDimensions(data); err != nil {
		return nil, err
	}

	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// checkDimensions reads only the image header. Undecodable headers are left
// for the decoders to report.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if cfg, err = webp.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil
		}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d (limit %d pixels)", ErrImageTooLarge, cfg.Width, cfg.Height, MaxSourcePixels)
	}
	return nil
}

// DecodeHandle decodes the bytes held by h
func (p *Processor) DecodeHandle(h *types.ImageHandle) (image.Image, error) {
	if h == nil || len(h.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data", types.ErrInvalidInput)
	}
	img, err := DecodeImage(h.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrImageDecode, h.Source, err)
	}
	return img, nil
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ModelMimeType is the media type of the payload PrepareImageForModel emits
func ModelMimeType(format string) string {
	if strings.EqualFold(format, "png") {
		return "image/png"
	}
	return "image/jpeg"
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) types.ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := types.ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ValidateImage checks that an image meets the minimum dimension
func (p *Processor) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < p.minSize || bounds.Dy() < p.minSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)",
			types.ErrInvalidInput, bounds.Dx(), bounds.Dy(), p.minSize)
	}
	return nil
}
