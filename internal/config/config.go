package config

import (
	"errors"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

// Error definitions for the config package.
var (
	ErrMissingToken = errors.New("config: BOT_TOKEN environment variable not set")
	ErrInvalid      = errors.New("config: invalid configuration")
)

// Config holds the main configuration for the application. It is built once
// at startup and treated as read-only afterwards.
type Config struct {
	Version       string              `json:"version"       yaml:"version"`
	Telegram      TelegramConfig      `json:"telegram"      yaml:"telegram"`
	Transcription TranscriptionConfig `json:"transcription" yaml:"transcription"`
	Transcoding   TranscodingConfig   `json:"transcoding"   yaml:"transcoding"`
	Download      DownloadConfig      `json:"download"      yaml:"download"`
	Storage       StorageConfig       `json:"storage"       yaml:"storage"`
	Server        ServerConfig        `json:"server"        yaml:"server"`
	Log           LogConfig           `json:"log"           yaml:"log"`
	Messages      Messages            `json:"messages"      yaml:"messages"`
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token         string  `json:"-"              yaml:"token,omitempty"`
	PollTimeout   int     `json:"poll_timeout"   yaml:"poll_timeout"`
	MaxConcurrent int     `json:"max_concurrent" yaml:"max_concurrent"`
	SendRate      float64 `json:"send_rate"      yaml:"send_rate"`
	Debug         bool    `json:"debug"          yaml:"debug"`
}

// TranscriptionConfig configures the whisper.cpp invocation.
type TranscriptionConfig struct {
	ModelPath string   `json:"model_path"           yaml:"model_path"`
	Binaries  []string `json:"binaries"             yaml:"binaries"`
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
	Timeout   Duration `json:"timeout"              yaml:"timeout"`
}

// TranscodingConfig configures the ffmpeg invocation.
type TranscodingConfig struct {
	FFmpegPath string   `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Timeout    Duration `json:"timeout"     yaml:"timeout"`
}

// DownloadConfig configures attachment downloads.
type DownloadConfig struct {
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

// StorageConfig holds the temp directory used for per-request files.
type StorageConfig struct {
	TempDir string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
}

// ServerConfig configures the ops HTTP server. An empty Addr disables it.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LogConfig configures log file output. An empty File logs to stderr only.
type LogConfig struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Messages holds every user-facing reply string.
type Messages struct {
	SendAudio      string `json:"send_audio"      yaml:"send_audio"`
	DownloadFailed string `json:"download_failed" yaml:"download_failed"`
	ConvertFailed  string `json:"convert_failed"  yaml:"convert_failed"`
	ToolMissing    string `json:"tool_missing"    yaml:"tool_missing"`
	Timeout        string `json:"timeout"         yaml:"timeout"`
	ExecFailed     string `json:"exec_failed"     yaml:"exec_failed"`
	NoText         string `json:"no_text"         yaml:"no_text"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "5m").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Validate checks the invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}

	var errs []error
	if c.Transcription.ModelPath == "" {
		errs = append(errs, errors.New("transcription.model_path is empty"))
	}
	if len(c.Transcription.Binaries) == 0 {
		errs = append(errs, errors.New("transcription.binaries is empty"))
	}
	if c.Transcoding.FFmpegPath == "" {
		errs = append(errs, errors.New("transcoding.ffmpeg_path is empty"))
	}
	for name, d := range map[string]Duration{
		"transcription.timeout": c.Transcription.Timeout,
		"transcoding.timeout":   c.Transcoding.Timeout,
		"download.timeout":      c.Download.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Telegram.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("telegram.max_concurrent must be at least 1, got %d", c.Telegram.MaxConcurrent))
	}
	if c.Telegram.SendRate <= 0 {
		errs = append(errs, fmt.Errorf("telegram.send_rate must be positive, got %v", c.Telegram.SendRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return nil
}
