package config

import (
	"os"
	"time"

	"github.com/ekisa-team/voicescribe/internal/backend"
)

// DefaultModelPath is where the ggml model is expected when MODEL_PATH is unset.
const DefaultModelPath = "/app/models/ggml-small.bin"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Telegram: TelegramConfig{
			PollTimeout:   60,
			MaxConcurrent: 4,
			SendRate:      25,
		},
		Transcription: TranscriptionConfig{
			ModelPath: DefaultModelPath,
			Binaries:  append([]string(nil), backend.DefaultWhisperCandidates...),
			Timeout:   Duration(300 * time.Second),
		},
		Transcoding: TranscodingConfig{
			FFmpegPath: "ffmpeg",
			Timeout:    Duration(120 * time.Second),
		},
		Download: DownloadConfig{
			Timeout: Duration(60 * time.Second),
		},
		Storage: StorageConfig{
			TempDir: os.TempDir(),
		},
		Messages: DefaultMessages(),
	}
}

// DefaultMessages returns the stock Persian reply strings.
func DefaultMessages() Messages {
	return Messages{
		SendAudio:      "لطفاً یک پیام صوتی یا فایل صوتی بفرستید.",
		DownloadFailed: "خطا در دریافت فایل صوتی از تلگرام.",
		ConvertFailed:  "خطا در تبدیل فایل صوتی (ffmpeg).",
		ToolMissing:    "ابزار تبدیل صدا (whisper) نصب نیست. لطفاً حساب سرور را بررسی کنید.",
		Timeout:        "خطا: پردازش صوت طولانی شد (timeout).",
		ExecFailed:     "خطا در اجرای ابزار تبدیل صدا.",
		NoText:         "متن قابل استخراج پیدا نشد.",
	}
}
