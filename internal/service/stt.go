package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekisa-team/voicescribe/internal/backend/whisper"
	"github.com/ekisa-team/voicescribe/internal/config"
	"github.com/ekisa-team/voicescribe/internal/media"
	"github.com/ekisa-team/voicescribe/internal/metrics"
	"github.com/ekisa-team/voicescribe/internal/reply"
	"github.com/ekisa-team/voicescribe/internal/transport"
	"github.com/ekisa-team/voicescribe/internal/xfs"
)

// Fetcher downloads the audio attachment of a message.
type Fetcher interface {
	Fetch(ctx context.Context, msg *transport.Message, temps *xfs.TempSet) (*media.Fetched, error)
}

// Transcoder converts input audio to canonical WAV.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string) error
}

// Locator finds the transcription binary.
type Locator interface {
	Locate() (string, bool)
}

// Transcriber runs speech recognition on a WAV file.
type Transcriber interface {
	Transcribe(ctx context.Context, binPath, wavPath string) whisper.Result
}

// Deps are the collaborators of the STT service.
type Deps struct {
	Fetcher     Fetcher
	Transcoder  Transcoder
	Locator     Locator
	Transcriber Transcriber
	Replier     transport.Replier
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// STT is the speech-to-text request handler: download, transcode, locate
// whisper, transcribe, reply, clean up.
type STT struct {
	cfg         *config.Config
	fetcher     Fetcher
	transcoder  Transcoder
	locator     Locator
	transcriber Transcriber
	responder   *reply.Responder
	metrics     *metrics.Recorder
	log         *slog.Logger
}

// NewSTT creates a new STT service. cfg must not be modified afterwards.
func NewSTT(cfg *config.Config, deps Deps) *STT {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &STT{
		cfg:         cfg,
		fetcher:     deps.Fetcher,
		transcoder:  deps.Transcoder,
		locator:     deps.Locator,
		transcriber: deps.Transcriber,
		responder:   reply.NewResponder(deps.Replier, cfg.Messages),
		metrics:     deps.Metrics,
		log:         log,
	}
}

// Handle processes one inbound message. Every failure of a pipeline step is
// turned into a reply to the user; the returned error only reports a reply
// that could not be sent. All temp files are removed before Handle returns.
func (s *STT) Handle(ctx context.Context, msg *transport.Message) error {
	log := s.log.With("chat_id", msg.ChatID, "message_id", msg.MessageID)

	s.metrics.RequestStarted()
	outcome := metrics.OutcomeOK
	defer func() {
		s.metrics.RequestDone(outcome)
	}()

	temps := xfs.NewTempSet(s.cfg.Storage.TempDir, log)
	defer temps.Cleanup()

	start := time.Now()
	fetched, err := s.fetcher.Fetch(ctx, msg, temps)
	switch {
	case errors.Is(err, media.ErrUnsupported):
		outcome = metrics.OutcomeUnsupported
		log.Debug("Message carries no audio")
		return s.notice(ctx, msg, s.cfg.Messages.SendAudio)
	case err != nil:
		outcome = metrics.OutcomeDownloadFailed
		log.Error("Failed to download audio", "error", err)
		return s.notice(ctx, msg, s.cfg.Messages.DownloadFailed)
	}
	s.metrics.ObserveStage(metrics.StageDownload, time.Since(start))

	log = log.With("kind", fetched.Kind, "ext", fetched.Ext)

	wav := temps.New("wav")
	start = time.Now()
	if err := s.transcoder.Transcode(ctx, fetched.Path, wav); err != nil {
		outcome = metrics.OutcomeTranscodeFailed
		log.Error("Failed to transcode audio", "error", err)
		return s.notice(ctx, msg, s.cfg.Messages.ConvertFailed)
	}
	s.metrics.ObserveStage(metrics.StageTranscode, time.Since(start))

	bin, ok := s.locator.Locate()
	if !ok {
		outcome = metrics.OutcomeBinaryMissing
		log.Error("Transcription binary not installed", "candidates", s.cfg.Transcription.Binaries)
		return s.notice(ctx, msg, s.cfg.Messages.ToolMissing)
	}

	res := s.transcriber.Transcribe(ctx, bin, wav)
	s.metrics.ObserveStage(metrics.StageTranscribe, res.Duration)

	switch {
	case res.Status == whisper.StatusTimedOut:
		outcome = metrics.OutcomeTimeout
		log.Warn("Transcription timed out", "binary", bin, "timeout", s.cfg.Transcription.Timeout.String())
	case res.Status == whisper.StatusFailed:
		outcome = metrics.OutcomeExecFailed
		log.Error("Transcription failed", "binary", bin, "error", res.Err)
	case res.Empty():
		outcome = metrics.OutcomeEmpty
		log.Info("Transcription produced no text", "binary", bin)
	case res.Err != nil:
		log.Warn("Transcription exited with error, replying with its output", "binary", bin, "error", res.Err)
	default:
		log.Info("Transcription done", "binary", bin, "chars", len([]rune(res.Text)), "duration", res.Duration)
	}

	start = time.Now()
	mode, err := s.responder.Respond(ctx, msg, res, temps)
	s.metrics.ObserveStage(metrics.StageReply, time.Since(start))
	if err != nil {
		return fmt.Errorf("service: send %s reply: %w", mode, err)
	}
	s.metrics.Reply(string(mode))

	return nil
}

// notice sends a fixed message and ends the request.
func (s *STT) notice(ctx context.Context, msg *transport.Message, text string) error {
	if err := s.responder.Notice(ctx, msg, text); err != nil {
		return fmt.Errorf("service: send notice: %w", err)
	}
	s.metrics.Reply(string(reply.ModeNotice))

	return nil
}
