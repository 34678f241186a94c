// Package roastcam turns photos into comedic roasts and shareable roast cards.
//
// A photo is sent to a multimodal model which answers with three short
// roasts in Nigerian Pidgin: Savage, Friendly and a Compliment sandwich. The
// chosen roast can then be composited onto the photo as a 1080px wide PNG
// card and saved.
//
// Basic usage:
//
//	cfg := config.Default()
//	cfg.Inference.APIKey = os.Getenv("GEMINI_API_KEY")
//
//	rc, err := roastcam.New(ctx, roastcam.Options{Config: cfg})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := rc.RunOnce(ctx, "selfie.jpg", types.Savage)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(out.Caption, "->", out.Path)
//
// The package is a thin facade over:
//
//  1. pkg/processing: loading files and URLs, preparing model payloads
//  2. pkg/roaster with a pkg/gemini, pkg/ollama or pkg/llamacpp backend
//  3. pkg/compositor: rendering the share card
//  4. pkg/export: naming and saving cards
//  5. pkg/session: the idle/analyzing/result/error state machine
package roastcam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menta2k/roast-cam/internal/config"
	"github.com/menta2k/roast-cam/internal/logging"
	"github.com/menta2k/roast-cam/pkg/client"
	"github.com/menta2k/roast-cam/pkg/compositor"
	"github.com/menta2k/roast-cam/pkg/export"
	"github.com/menta2k/roast-cam/pkg/gemini"
	"github.com/menta2k/roast-cam/pkg/llamacpp"
	"github.com/menta2k/roast-cam/pkg/ollama"
	"github.com/menta2k/roast-cam/pkg/processing"
	"github.com/menta2k/roast-cam/pkg/roaster"
	"github.com/menta2k/roast-cam/pkg/session"
	"github.com/menta2k/roast-cam/pkg/types"
)

// Version of the roast cam library
const Version = "1.0.0"

// Options configures a RoastCam. Zero fields get defaults; Client is built
// from Config when nil.
type Options struct {
	Config   *config.Config
	Client   client.VisionClient
	Logger   *zap.Logger
	Exporter export.Exporter
	Namer    *export.Namer
}

// RoastCam provides a high-level interface for roasting photos
type RoastCam struct {
	cfg        *config.Config
	processor  *processing.Processor
	roaster    *roaster.Roaster
	compositor *compositor.Compositor
	exporter   export.Exporter
	namer      *export.Namer
	logger     *zap.Logger
}

// NewClient builds the vision backend selected in cfg
func NewClient(ctx context.Context, cfg *config.Config) (client.VisionClient, error) {
	switch cfg.Inference.Backend {
	case config.BackendGemini:
		return gemini.NewClient(ctx, cfg.Inference.APIKey)
	case config.BackendOllama:
		return ollama.NewClient(cfg.Inference.URL)
	case config.BackendLlamaCpp:
		return llamacpp.NewClient(cfg.Inference.URL)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use gemini, ollama or llamacpp)", cfg.Inference.Backend)
	}
}

// New creates a RoastCam
func New(ctx context.Context, opts Options) (*RoastCam, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	vc := opts.Client
	if vc == nil {
		var err error
		if vc, err = NewClient(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Inference.Backend, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	exporter := opts.Exporter
	if exporter == nil {
		exporter = export.NewFileExporter(cfg.Output.OutputDir)
	}
	namer := opts.Namer
	if namer == nil {
		namer = export.NewNamer()
	}

	layout := compositor.DefaultConfig()
	layout.Width = cfg.Card.Width
	layout.FontSize = cfg.Card.FontSize
	layout.MinFontSize = cfg.Card.MinFontSize

	return &RoastCam{
		cfg:        cfg,
		processor:  processing.NewProcessorWithClient(nil, cfg.Input.MinImageSize),
		roaster:    roaster.NewRoaster(vc, cfg.Inference.Model).WithTemperature(cfg.Inference.Temperature),
		compositor: compositor.NewWithConfig(layout),
		exporter:   exporter,
		namer:      namer,
		logger:     logger,
	}, nil
}

// Config returns the configuration in use
func (rc *RoastCam) Config() *config.Config {
	return rc.cfg
}

// Load reads a file path or URL into an image handle
func (rc *RoastCam) Load(ctx context.Context, source string) (*types.ImageHandle, error) {
	h, err := rc.processor.LoadSource(ctx, source)
	if err != nil {
		return nil, logging.NewOperationError("roastcam.load", "", err)
	}
	rc.logger.Debug("source loaded",
		zap.String("source", h.Source),
		zap.String("media_type", h.MediaType),
		zap.Int("bytes", len(h.Data)))
	return h, nil
}

// Roast generates the three roasts for h. Every failure wraps
// types.ErrInference; the cause is logged here and is not meant for users.
func (rc *RoastCam) Roast(ctx context.Context, h *types.ImageHandle) (*types.Roasts, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(rc.logger, "roastcam.roast", requestID)

	ctx, cancel := context.WithTimeout(ctx, rc.Timeout())
	defer cancel()

	start := time.Now()
	roasts, err := rc.roast(ctx, h)
	if err != nil {
		wrapped := logging.NewOperationError("roastcam.roast", requestID, err)
		opLogger.Error("roast generation failed", zap.Error(wrapped), zap.Duration("elapsed", time.Since(start)))
		return nil, wrapped
	}

	opLogger.Info("roasts generated",
		zap.String("backend", rc.cfg.Inference.Backend),
		zap.String("model", rc.roaster.Model()),
		zap.Duration("elapsed", time.Since(start)))
	return roasts, nil
}

func (rc *RoastCam) roast(ctx context.Context, h *types.ImageHandle) (*types.Roasts, error) {
	img, err := rc.processor.DecodeHandle(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInference, err)
	}
	if err := rc.processor.ValidateImage(img); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInference, err)
	}

	format := rc.cfg.Input.SendFormat
	b64, err := rc.processor.PrepareImageForModel(img, format, rc.cfg.Input.SendSize, rc.cfg.Input.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare image: %v", types.ErrInference, err)
	}
	return rc.roaster.Roast(ctx, b64, processing.ModelMimeType(format))
}

// Timeout is the deadline applied to one inference call
func (rc *RoastCam) Timeout() time.Duration {
	return time.Duration(rc.cfg.Inference.TimeoutSeconds) * time.Second
}

// Compose renders the share card for style. The card is built from
// scratch on every call.
func (rc *RoastCam) Compose(h *types.ImageHandle, roasts *types.Roasts, style types.Style) ([]byte, error) {
	if h == nil || roasts == nil {
		return nil, export.ErrNothingToExport
	}
	return rc.compositor.ComposeBytes(h.Data, roasts.Text(style), style.Label())
}

// Share composes the card for style and delivers it through the exporter,
// returning where it went
func (rc *RoastCam) Share(ctx context.Context, h *types.ImageHandle, roasts *types.Roasts, style types.Style) (string, error) {
	opLogger := logging.WithOperation(rc.logger, "roastcam.share", "")

	data, err := rc.Compose(h, roasts, style)
	if err != nil {
		opLogger.Error("compositing failed", zap.Error(err))
		return "", logging.NewOperationError("roastcam.share", "", err)
	}

	path, err := rc.exporter.Export(ctx, data, rc.namer.Next(style))
	if err != nil {
		opLogger.Error("export failed", zap.Error(err))
		return "", logging.NewOperationError("roastcam.share", "", err)
	}

	opLogger.Info("card exported", zap.String("path", path), zap.Int("bytes", len(data)), zap.Stringer("style", style))
	return path, nil
}

// ShareState exports the card for the result currently held by st
func (rc *RoastCam) ShareState(ctx context.Context, st session.State) (string, error) {
	if st.Status != session.Result {
		return "", export.ErrNothingToExport
	}
	return rc.Share(ctx, st.Image, st.Roasts, st.Style)
}

// CheckVision asks the backend for a plain description of h. It is a
// preflight that shows whether the configured model can see images at all.
func (rc *RoastCam) CheckVision(ctx context.Context, h *types.ImageHandle) (string, error) {
	opLogger := logging.WithOperation(rc.logger, "roastcam.check", uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, rc.Timeout())
	defer cancel()

	img, err := rc.processor.DecodeHandle(h)
	if err != nil {
		return "", logging.NewOperationError("roastcam.check", "", err)
	}
	info := processing.GetImageInfo(img)
	opLogger.Debug("checking vision",
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("aspect_ratio", info.AspectRatio))

	b64, err := rc.processor.PrepareImageForModel(img, rc.cfg.Input.SendFormat, rc.cfg.Input.SendSize, rc.cfg.Input.SendQuality)
	if err != nil {
		return "", logging.NewOperationError("roastcam.check", "", err)
	}
	out, err := rc.roaster.TestVision(ctx, b64)
	if err != nil {
		opLogger.Error("vision check failed", zap.Error(err))
		return "", logging.NewOperationError("roastcam.check", "", err)
	}
	return out, nil
}

// Outcome is the result of RunOnce
type Outcome struct {
	State   session.State
	Caption string
	Path    string
}

// ErrRejected is returned by RunOnce when the source is not an image
var ErrRejected = fmt.Errorf("%w: %s", types.ErrInvalidInput, session.MsgInvalidImage)

// RunOnce drives one full pass through the session state machine: load,
// roast, select style and export
func (rc *RoastCam) RunOnce(ctx context.Context, source string, style types.Style) (*Outcome, error) {
	sess := session.New()

	h, err := rc.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	seq, ok := sess.Begin(h)
	if !ok {
		return &Outcome{State: sess.State()}, fmt.Errorf("%w (%s is %s)", ErrRejected, h.Source, h.MediaType)
	}

	roasts, err := rc.Roast(ctx, h)
	if err != nil {
		st := sess.Dispatch(session.InferenceFailed{Seq: seq, Err: err})
		return &Outcome{State: st}, err
	}
	sess.Dispatch(session.InferenceSucceeded{Seq: seq, Roasts: *roasts})
	st := sess.Dispatch(session.StyleSelected{Style: style})

	if err := session.Validate(st); err != nil {
		rc.logger.Warn("session invariant broken", zap.Error(err))
	}

	caption, _ := st.Caption()
	out := &Outcome{State: st, Caption: caption}

	path, err := rc.ShareState(ctx, st)
	if err != nil {
		return out, err
	}
	out.Path = path
	return out, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
