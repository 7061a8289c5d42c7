package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/voicescribe/internal/backend"
	"github.com/ekisa-team/voicescribe/internal/backend/ffmpeg"
	"github.com/ekisa-team/voicescribe/internal/backend/whisper"
	"github.com/ekisa-team/voicescribe/internal/config"
	"github.com/ekisa-team/voicescribe/internal/env"
	"github.com/ekisa-team/voicescribe/internal/envvar"
	"github.com/ekisa-team/voicescribe/internal/logger"
	"github.com/ekisa-team/voicescribe/internal/media"
	"github.com/ekisa-team/voicescribe/internal/metrics"
	serverhttp "github.com/ekisa-team/voicescribe/internal/server/http"
	"github.com/ekisa-team/voicescribe/internal/service"
	"github.com/ekisa-team/voicescribe/internal/transport/telegram"
)

func main() {
	var (
		flagConfigPath = flag.String("config", os.Getenv(envvar.VoicescribeConfig), "Path to an optional YAML config file")
		flagEnvFile    = flag.String("env-file", ".env", "Path to an optional KEY=value file loaded into the environment")
	)
	flag.Parse()

	if err := config.LoadEnvFiles(*flagEnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	environment := env.FromEnv()

	cfg, err := config.Load(*flagConfigPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(environment,
		logger.WithLogToFile(cfg.Log.File != ""),
		logger.WithLogFile(cfg.Log.File),
	)
	slog.SetDefault(log)

	if err := run(cfg, *flagConfigPath, log); err != nil {
		log.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.Transcription.ModelPath); err != nil {
		log.Warn("Model file not accessible; transcriptions will fail until it is", "path", cfg.Transcription.ModelPath, "error", err)
	}

	if err := os.MkdirAll(cfg.Storage.TempDir, 0o700); err != nil {
		return fmt.Errorf("failed to prepare temp dir %s: %w", cfg.Storage.TempDir, err)
	}

	watcher, err := config.NewWatcher([]string{cfg.Transcription.ModelPath, configPath}, log, nil)
	if err != nil {
		log.Warn("File watcher disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	ffmpegExec, err := backend.NewExecutor(cfg.Transcoding.FFmpegPath, cfg.Transcoding.Timeout.Std())
	if err != nil {
		log.Warn("ffmpeg not found; conversions will fail until it is installed", "path", cfg.Transcoding.FFmpegPath, "error", err)
		ffmpegExec = backend.NewExecutorWithRunner(cfg.Transcoding.FFmpegPath, cfg.Transcoding.Timeout.Std(), backend.ExecCommandRunner{})
	}

	locator := backend.NewLocator(cfg.Transcription.Binaries)
	if bin, ok := locator.Locate(); ok {
		log.Info("Transcription binary found", "path", bin)
	} else {
		log.Warn("Transcription binary not found", "candidates", locator.Candidates())
	}

	reg := metrics.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	bot, err := telegram.New(cfg.Telegram, log)
	if err != nil {
		return err
	}

	stt := service.NewSTT(cfg, service.Deps{
		Fetcher:    media.NewFetcher(bot, cfg.Download.Timeout.Std()),
		Transcoder: ffmpeg.NewTranscoder(ffmpegExec),
		Locator:    locator,
		Transcriber: whisper.NewTranscriber(
			cfg.Transcription.ModelPath,
			cfg.Transcription.ExtraArgs,
			cfg.Transcription.Timeout.Std(),
			backend.ExecCommandRunner{},
		),
		Replier: bot,
		Metrics: recorder,
		Logger:  log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		log.Info("Bot started", "mode", "polling", "max_concurrent", cfg.Telegram.MaxConcurrent)
		return bot.Run(gctx, stt)
	})

	if cfg.Server.Addr != "" {
		srv := serverhttp.NewServer(cfg.Server.Addr, reg, log)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				log.Error("Ops server stopped; bot keeps running", "addr", cfg.Server.Addr, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
