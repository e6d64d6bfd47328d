package config

const (
	defaultDataDir        = "~/.local/share/librasflow"
	defaultLogDir         = "~/.local/share/librasflow/logs"
	defaultExportDir      = "~/.local/share/librasflow/exports"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTargetLanguage = "pt-BR"
	defaultYouTubeTimeout = 15
	defaultGeminiModel    = "gemini-pro"
	defaultGeminiTimeout  = 30
	defaultBatchSize      = 3
	defaultBatchPauseMS   = 800
	defaultStorageBackend = "local"
	defaultNtfyTimeout    = 10
	defaultUploadTimeout  = 120
	defaultJPEGQuality    = 95
)

// DefaultInstruction is the directive sent to the generative provider when the
// caller supplies none. It asks for a rendering that follows Libras grammar:
// concise, subject-verb-object order, articles and prepositions dropped.
const DefaultInstruction = "Converta o texto em português para uma interpretação em Libras. " +
	"Use a ordem sujeito-verbo-objeto, omita artigos e preposições, e mantenha a " +
	"interpretação concisa e adequada à estrutura espacial da Libras. " +
	"Responda apenas com a interpretação."

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		YouTube: YouTube{
			BaseURL:        defaultYouTubeBaseURL,
			TargetLanguage: defaultTargetLanguage,
			RequestTimeout: defaultYouTubeTimeout,
		},
		Gemini: Gemini{
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Interpretation: Interpretation{
			BatchSize:          defaultBatchSize,
			BatchPauseMS:       defaultBatchPauseMS,
			DefaultInstruction: DefaultInstruction,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Export: Export{
			UploadTimeoutSeconds: defaultUploadTimeout,
			JPEGQuality:          defaultJPEGQuality,
		},
	}
}
