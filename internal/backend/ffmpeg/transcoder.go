package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ekisa-team/voicescribe/internal/backend"
)

// Canonical output format expected by whisper.cpp.
const (
	SampleRate = 16000
	Channels   = 1
	Codec      = "pcm_s16le"
)

// ErrTranscode is returned when ffmpeg cannot produce the WAV file.
var ErrTranscode = errors.New("ffmpeg: transcode failed")

// Transcoder normalizes arbitrary input audio to 16 kHz mono PCM WAV.
type Transcoder struct {
	executor *backend.Executor
}

// NewTranscoder creates a transcoder on top of an ffmpeg executor.
func NewTranscoder(executor *backend.Executor) *Transcoder {
	return &Transcoder{executor: executor}
}

// Transcode converts in to out, overwriting out. Any non-zero exit or launch
// failure is reported as ErrTranscode.
func (t *Transcoder) Transcode(ctx context.Context, in, out string) error {
	_, stderr, err := t.executor.Execute(ctx, Args(in, out), nil)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return fmt.Errorf("%w: %w: %s", ErrTranscode, err, lastLine(msg))
		}
		return fmt.Errorf("%w: %w", ErrTranscode, err)
	}

	return nil
}

// Args builds the ffmpeg command line for a conversion.
func Args(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-ac", fmt.Sprintf("%d", Channels),
		"-c:a", Codec,
		out,
	}
}

// ffmpeg prints its banner first; the reason for a failure is on the last line.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
