package envvar

const (
	// BotToken is the Telegram bot token. Required.
	BotToken = "BOT_TOKEN"

	// ModelPath is the path to the whisper.cpp ggml model file.
	ModelPath = "MODEL_PATH"

	// VoicescribeEnv is the environment variable used to determine the environment
	VoicescribeEnv = "VOICESCRIBE_ENV"

	// VoicescribeConfig points to an optional YAML config file.
	VoicescribeConfig = "VOICESCRIBE_CONFIG"

	// VoicescribeTempDir overrides the directory used for per-request temp files.
	VoicescribeTempDir = "VOICESCRIBE_TMPDIR"

	// VoicescribeHTTPAddr is the listen address of the ops HTTP server.
	VoicescribeHTTPAddr = "VOICESCRIBE_HTTP_ADDR"

	// VoicescribeLogFile is the rotating log file path.
	VoicescribeLogFile = "VOICESCRIBE_LOG_FILE"
)
