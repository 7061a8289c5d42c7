package whisper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ekisa-team/voicescribe/internal/backend"
)

// DefaultTimeout bounds a single whisper.cpp run.
const DefaultTimeout = 300 * time.Second

// Status tags the outcome of a transcription.
type Status int

const (
	StatusOK Status = iota
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimedOut:
		return "timeout"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a transcription. Text is only meaningful for
// StatusOK and may be empty. Err is set for StatusFailed, and for StatusOK
// when the tool printed text but exited non-zero.
type Result struct {
	Status   Status
	Text     string
	Err      error
	Duration time.Duration
}

// Empty reports whether a successful run produced no text.
func (r Result) Empty() bool {
	return r.Status == StatusOK && strings.TrimSpace(r.Text) == ""
}

// Transcriber runs the whisper.cpp CLI against a WAV file.
type Transcriber struct {
	runner    backend.CommandRunner
	modelPath string
	extraArgs []string
	timeout   time.Duration
}

// NewTranscriber creates a transcriber. A zero timeout uses DefaultTimeout.
func NewTranscriber(modelPath string, extraArgs []string, timeout time.Duration, runner backend.CommandRunner) *Transcriber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if runner == nil {
		runner = backend.ExecCommandRunner{}
	}

	return &Transcriber{
		runner:    runner,
		modelPath: modelPath,
		extraArgs: append([]string(nil), extraArgs...),
		timeout:   timeout,
	}
}

// Args builds the whisper.cpp command line.
func (t *Transcriber) Args(wavPath string) []string {
	args := []string{"-m", t.modelPath, "-f", wavPath}
	return append(args, t.extraArgs...)
}

// Transcribe runs binPath on wavPath. It never returns an error; failures are
// folded into the Result.
func (t *Transcriber) Transcribe(ctx context.Context, binPath, wavPath string) Result {
	executor := backend.NewExecutorWithRunner(binPath, t.timeout, t.runner)

	start := time.Now()
	stdout, stderr, err := executor.Execute(ctx, t.Args(wavPath), nil)
	elapsed := time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, backend.ErrTimeout):
		return Result{Status: StatusTimedOut, Duration: elapsed}
	case errors.As(err, &exitErr):
		// A non-zero exit still carries whatever the tool printed.
		if text := output(stdout, stderr); text != "" {
			return Result{Status: StatusOK, Text: text, Err: err, Duration: elapsed}
		}
		return Result{Status: StatusFailed, Err: err, Duration: elapsed}
	case err != nil:
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return Result{Status: StatusFailed, Err: err, Duration: elapsed}
	}

	return Result{Status: StatusOK, Text: output(stdout, stderr), Duration: elapsed}
}

// output returns trimmed stdout, or trimmed stderr when stdout is blank.
func output(stdout, stderr []byte) string {
	if text := strings.TrimSpace(string(stdout)); text != "" {
		return text
	}
	return strings.TrimSpace(string(stderr))
}
