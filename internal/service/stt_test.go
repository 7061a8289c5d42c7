package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicescribe/internal/backend"
	"github.com/ekisa-team/voicescribe/internal/backend/backendtest"
	"github.com/ekisa-team/voicescribe/internal/backend/ffmpeg"
	"github.com/ekisa-team/voicescribe/internal/backend/whisper"
	"github.com/ekisa-team/voicescribe/internal/config"
	"github.com/ekisa-team/voicescribe/internal/media"
	"github.com/ekisa-team/voicescribe/internal/metrics"
	"github.com/ekisa-team/voicescribe/internal/transport"
	"github.com/ekisa-team/voicescribe/internal/transport/transporttest"
)

const (
	whisperBin = "/usr/local/bin/whisper"
	modelPath  = "/app/models/ggml-small.bin"
)

type stubLocator struct {
	path  string
	found bool
	calls int
}

func (l *stubLocator) Locate() (string, bool) {
	l.calls++
	return l.path, l.found
}

type harness struct {
	dir       string
	cfg       *config.Config
	transport *transporttest.Fake
	ffmpeg    *backendtest.MockRunner
	whisper   *backendtest.MockRunner
	locator   *stubLocator
	svc       *STT
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		dir:       t.TempDir(),
		cfg:       config.Default(),
		transport: transporttest.NewFake(),
		ffmpeg:    new(backendtest.MockRunner),
		whisper:   new(backendtest.MockRunner),
		locator:   &stubLocator{path: whisperBin, found: true},
	}
	h.cfg.Telegram.Token = "test"
	h.cfg.Storage.TempDir = h.dir
	h.cfg.Transcription.ModelPath = modelPath

	h.svc = NewSTT(h.cfg, Deps{
		Fetcher:     media.NewFetcher(h.transport, time.Second),
		Transcoder:  ffmpeg.NewTranscoder(backend.NewExecutorWithRunner("ffmpeg", time.Second, h.ffmpeg)),
		Locator:     h.locator,
		Transcriber: whisper.NewTranscriber(modelPath, nil, 50*time.Millisecond, h.whisper),
		Replier:     h.transport,
		Metrics:     metrics.NewRecorder(prometheus.NewRegistry()),
	})

	return h
}

// transcodeSucceeds makes the ffmpeg mock write the output WAV.
func (h *harness) transcodeSucceeds() {
	h.ffmpeg.On("Run", mock.Anything, "ffmpeg", mock.Anything, nil).
		Run(func(args mock.Arguments) {
			argv := args.Get(2).([]string)
			_ = os.WriteFile(argv[len(argv)-1], []byte("RIFF"), 0o600)
		}).
		Return(nil, nil, nil).Once()
}

func (h *harness) assertTempDirEmpty(t *testing.T) {
	t.Helper()

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func (h *harness) texts() []string {
	var out []string
	for _, r := range h.transport.Replies() {
		out = append(out, r.Text)
	}
	return out
}

func voiceMessage() *transport.Message {
	return &transport.Message{ChatID: 10, MessageID: 20, Voice: &transport.Attachment{FileID: "voice-1", MIMEType: "audio/ogg"}}
}

func TestHandle_VoiceNoteInline(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["voice-1"] = []byte("OggS")

	var input, wav string
	h.ffmpeg.On("Run", mock.Anything, "ffmpeg", mock.Anything, nil).
		Run(func(args mock.Arguments) {
			argv := args.Get(2).([]string)
			input, wav = argv[2], argv[len(argv)-1]
			assert.Equal(t, ffmpeg.Args(input, wav), argv)
			_ = os.WriteFile(wav, []byte("RIFF"), 0o600)
		}).
		Return(nil, nil, nil).Once()
	h.whisper.On("Run", mock.Anything, whisperBin, mock.Anything, nil).
		Run(func(args mock.Arguments) {
			assert.Equal(t, []string{"-m", modelPath, "-f", wav}, args.Get(2))
		}).
		Return([]byte("hello world\n"), []byte("whisper_print_timings"), nil).Once()

	require.NoError(t, h.svc.Handle(context.Background(), voiceMessage()))

	assert.Equal(t, h.dir, filepath.Dir(input))
	assert.True(t, strings.HasSuffix(input, ".ogg"))
	assert.True(t, strings.HasSuffix(wav, ".wav"))
	assert.Equal(t, []transporttest.Reply{{ChatID: 10, ReplyTo: 20, Text: "hello world"}}, h.transport.Replies())
	h.assertTempDirEmpty(t)
	h.ffmpeg.AssertExpectations(t)
	h.whisper.AssertExpectations(t)
}

func TestHandle_AudioDocumentTranscodeFails(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["doc-1"] = []byte("ID3")
	h.ffmpeg.On("Run", mock.Anything, "ffmpeg", mock.Anything, nil).
		Run(func(args mock.Arguments) {
			argv := args.Get(2).([]string)
			assert.True(t, strings.HasSuffix(argv[2], ".mp3"))
		}).
		Return(nil, []byte("Invalid data found"), errors.New("exit status 1")).Once()

	msg := &transport.Message{ChatID: 1, MessageID: 2, Document: &transport.Attachment{FileID: "doc-1", FileName: "clip.mp3", MIMEType: "audio/mpeg"}}
	require.NoError(t, h.svc.Handle(context.Background(), msg))

	assert.Equal(t, []string{h.cfg.Messages.ConvertFailed}, h.texts())
	assert.Zero(t, h.locator.calls)
	h.whisper.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.assertTempDirEmpty(t)
}

func TestHandle_LongTranscriptAsDocument(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["voice-1"] = []byte("OggS")
	h.transcodeSucceeds()
	transcript := strings.Repeat("abcd", 1000)
	h.whisper.On("Run", mock.Anything, whisperBin, mock.Anything, nil).
		Return([]byte(transcript), nil, nil).Once()

	require.NoError(t, h.svc.Handle(context.Background(), voiceMessage()))

	replies := h.transport.Replies()
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].DocumentBody, 4000)
	assert.Equal(t, transcript, replies[0].DocumentBody)
	assert.True(t, strings.HasSuffix(replies[0].Document, ".txt"))
	h.assertTempDirEmpty(t)
}

func TestHandle_BinaryMissing(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["voice-1"] = []byte("OggS")
	h.transcodeSucceeds()
	h.locator.found = false
	h.locator.path = ""

	require.NoError(t, h.svc.Handle(context.Background(), voiceMessage()))

	assert.Equal(t, []string{h.cfg.Messages.ToolMissing}, h.texts())
	assert.Equal(t, 1, h.locator.calls)
	h.whisper.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.assertTempDirEmpty(t)
}

func TestHandle_Unsupported(t *testing.T) {
	h := newHarness(t)

	msg := &transport.Message{ChatID: 3, MessageID: 4, Document: &transport.Attachment{FileID: "pdf", FileName: "a.pdf", MIMEType: "application/pdf"}}
	require.NoError(t, h.svc.Handle(context.Background(), msg))

	assert.Equal(t, []string{h.cfg.Messages.SendAudio}, h.texts())
	assert.Empty(t, h.transport.Downloads())
	h.ffmpeg.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.assertTempDirEmpty(t)
}

func TestHandle_DownloadFails(t *testing.T) {
	h := newHarness(t)
	h.transport.DownloadErr = errors.New("telegram: file is too big")

	require.NoError(t, h.svc.Handle(context.Background(), voiceMessage()))

	assert.Equal(t, []string{h.cfg.Messages.DownloadFailed}, h.texts())
	h.ffmpeg.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.assertTempDirEmpty(t)
}

func TestHandle_TranscriptionTimeout(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["voice-1"] = []byte("OggS")
	h.transcodeSucceeds()
	h.whisper.On("Run", mock.Anything, whisperBin, mock.Anything, nil).
		Run(backendtest.BlockUntilDone).
		Return(nil, nil, errors.New("signal: killed")).Once()

	done := make(chan error, 1)
	go func() { done <- h.svc.Handle(context.Background(), voiceMessage()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after the transcription timeout")
	}

	assert.Equal(t, []string{h.cfg.Messages.Timeout}, h.texts())
	h.assertTempDirEmpty(t)
}

func TestHandle_TranscriptionFailsAndEmpty(t *testing.T) {
	tests := []struct {
		name   string
		stdout []byte
		stderr []byte
		err    error
		want   func(config.Messages) string
	}{
		{"exec fault", nil, []byte("failed to load model"), errors.New("exit status 1"), func(m config.Messages) string { return m.ExecFailed }},
		{"empty", []byte("  "), []byte("\n"), nil, func(m config.Messages) string { return m.NoText }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.transport.Files["voice-1"] = []byte("OggS")
			h.transcodeSucceeds()
			h.whisper.On("Run", mock.Anything, whisperBin, mock.Anything, nil).
				Return(tt.stdout, tt.stderr, tt.err).Once()

			require.NoError(t, h.svc.Handle(context.Background(), voiceMessage()))

			assert.Equal(t, []string{tt.want(h.cfg.Messages)}, h.texts())
			h.assertTempDirEmpty(t)
		})
	}
}

func TestHandle_ReplyErrorIsReturnedAndFilesCleaned(t *testing.T) {
	h := newHarness(t)
	h.transport.Files["voice-1"] = []byte("OggS")
	h.transport.SendErr = errors.New("telegram: forbidden")
	h.transcodeSucceeds()
	h.whisper.On("Run", mock.Anything, whisperBin, mock.Anything, nil).
		Return([]byte("hi"), nil, nil).Once()

	err := h.svc.Handle(context.Background(), voiceMessage())

	assert.ErrorContains(t, err, "telegram: forbidden")
	h.assertTempDirEmpty(t)
}
