package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	roastcam "github.com/menta2k/roast-cam"
	"github.com/menta2k/roast-cam/internal/config"
	"github.com/menta2k/roast-cam/internal/logging"
	"github.com/menta2k/roast-cam/internal/tui"
	"github.com/menta2k/roast-cam/internal/utils"
	"github.com/menta2k/roast-cam/pkg/session"
	"github.com/menta2k/roast-cam/pkg/types"
)

func main() {
	var in, styleName, configPath, outDir string
	var backend, model, url string
	var sendFmt string
	var sendSize, sendQ, timeout int
	var verbose, initConfig, showVersion, check bool

	flag.StringVar(&in, "in", "", "photo path or URL; runs once and exits instead of opening the interactive UI")
	flag.StringVar(&styleName, "style", "savage", "roast style exported in one-shot mode: savage|friendly|compliment")
	flag.StringVar(&configPath, "config", config.GetConfigPath(), "config file (JSON)")
	flag.StringVar(&outDir, "out", "", "directory for exported cards (overrides config)")

	flag.StringVar(&backend, "backend", "", "inference backend: gemini|ollama|llamacpp (overrides config)")
	flag.StringVar(&model, "model", "", "model name (overrides config)")
	flag.StringVar(&url, "url", "", "server URL for ollama or llamacpp")

	flag.StringVar(&sendFmt, "sendfmt", "", "format sent to the model: jpg|png")
	flag.IntVar(&sendSize, "sendsize", -1, "max long side sent to the model (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for the image sent to the model (1-100)")
	flag.IntVar(&timeout, "timeout", 0, "inference timeout in seconds")

	flag.BoolVar(&verbose, "verbose", false, "debug logging")
	flag.BoolVar(&check, "check", false, "ask the model to describe the -in photo and exit; verifies the backend can see images")
	flag.BoolVar(&initConfig, "init-config", false, "write the effective config to -config and exit")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("roast-cam", roastcam.GetVersion())
		return
	}

	config.LoadDotEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.ApplyEnv(os.Getenv)

	// Flags win over file and environment.
	if backend != "" {
		cfg.SetBackend(backend)
	}
	if model != "" {
		cfg.Inference.Model = model
	}
	if url != "" {
		cfg.Inference.URL = url
	}
	if outDir != "" {
		cfg.Output.OutputDir = outDir
	}
	if sendFmt != "" {
		cfg.Input.SendFormat = sendFmt
	}
	if sendSize >= 0 {
		cfg.Input.SendSize = sendSize
	}
	if sendQ > 0 {
		cfg.Input.SendQuality = sendQ
	}
	if timeout > 0 {
		cfg.Inference.TimeoutSeconds = timeout
	}

	if initConfig {
		if err := cfg.SaveToFile(configPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", configPath)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.RequiresAPIKey() && cfg.Inference.APIKey == "" {
		log.Fatalf("%s backend needs an API key: set GEMINI_API_KEY (or API_KEY) in the environment or a .env file", cfg.Inference.Backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if check && in == "" {
		log.Fatalf("usage: %s -check -in photo.jpg|URL", filepath.Base(os.Args[0]))
	}
	if in != "" {
		run := func() int { return runOnce(ctx, cfg, in, styleName, verbose) }
		if check {
			run = func() int { return runCheck(ctx, cfg, in, verbose) }
		}
		code := run()
		stop()
		os.Exit(code)
	}
	if err := runInteractive(ctx, cfg, verbose); err != nil {
		log.Fatal(err)
	}
}

func runOnce(ctx context.Context, cfg *config.Config, in, styleName string, verbose bool) int {
	style, err := types.ParseStyle(styleName)
	if err != nil {
		log.Print(err)
		return 2
	}

	logger, err := logging.NewLogger(logging.Options{Verbose: verbose})
	if err != nil {
		log.Print(err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	rc, err := roastcam.New(ctx, roastcam.Options{Config: cfg, Logger: logger})
	if err != nil {
		log.Print(err)
		return 1
	}

	out, err := rc.RunOnce(ctx, utils.CleanPathInput(in), style)
	switch {
	case errors.Is(err, roastcam.ErrRejected):
		fmt.Fprintln(os.Stderr, out.State.ErrMsg)
		return 2
	case errors.Is(err, types.ErrInvalidInput):
		fmt.Fprintln(os.Stderr, "Couldn't read that photo:", err)
		return 2
	case out != nil && out.State.ErrMsg != "":
		// inference failed; the cause is already in the log
		fmt.Fprintln(os.Stderr, out.State.ErrMsg)
		return 1
	case err != nil:
		logger.Error("share failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, session.MsgExportFailed)
		return 1
	}

	fmt.Printf("%s: %q\n", style.Label(), out.Caption)
	if info, err := os.Stat(out.Path); err == nil {
		fmt.Printf("wrote %s (%s)\n", out.Path, utils.FormatFileSize(info.Size()))
	} else {
		fmt.Printf("wrote %s\n", out.Path)
	}
	return 0
}

func runCheck(ctx context.Context, cfg *config.Config, in string, verbose bool) int {
	logger, err := logging.NewLogger(logging.Options{Verbose: verbose})
	if err != nil {
		log.Print(err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	rc, err := roastcam.New(ctx, roastcam.Options{Config: cfg, Logger: logger})
	if err != nil {
		log.Print(err)
		return 1
	}

	h, err := rc.Load(ctx, utils.CleanPathInput(in))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Couldn't read that photo:", err)
		return 2
	}
	fmt.Printf("checking %s (%s) against %s on %s\n",
		h.Source, utils.FormatFileSize(int64(len(h.Data))), cfg.Inference.Model, cfg.Inference.Backend)

	out, err := rc.CheckVision(ctx, h)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vision check failed:", err)
		return 1
	}
	fmt.Println(out)
	return 0
}

func runInteractive(ctx context.Context, cfg *config.Config, verbose bool) error {
	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		return err
	}
	logPath := cfg.Output.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cfg.Output.OutputDir, logPath)
	}

	logger, err := logging.NewLogger(logging.Options{Verbose: verbose, OutputPath: logPath})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rc, err := roastcam.New(ctx, roastcam.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	logger.Info("starting roast cam",
		zap.String("backend", cfg.Inference.Backend),
		zap.String("model", cfg.Inference.Model),
		zap.String("output_dir", cfg.Output.OutputDir))

	return tui.Run(ctx, rc, fmt.Sprintf("%s (%s)", cfg.Inference.Model, cfg.Inference.Backend))
}
