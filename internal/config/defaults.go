package config

const (
	defaultInputDir   = "~/.local/share/demusic/videos/input"
	defaultOutputDir  = "~/.local/share/demusic/videos/output"
	defaultWorkingDir = "~/.local/share/demusic/videos/working"
	defaultLogDir     = "~/.local/share/demusic/logs"
	defaultAPIBind    = "127.0.0.1:7465"

	defaultStoreBackend = "memory"

	defaultIsolationProvider     = "replicate"
	defaultReplicateBaseURL      = "https://api.replicate.com/v1"
	defaultReplicateModel        = "ryan5453/demucs"
	defaultReplicateTimeout      = 600
	defaultReplicatePollInterval = 5

	defaultDemucsPythonBin = "python3"
	defaultDemucsModel     = "htdemucs"

	defaultFFmpegBin    = "ffmpeg"
	defaultFFprobeBin   = "ffprobe"
	defaultMediaTimeout = 900

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:   defaultInputDir,
			OutputDir:  defaultOutputDir,
			WorkingDir: defaultWorkingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Isolation: Isolation{
			Provider: defaultIsolationProvider,
		},
		Replicate: Replicate{
			Model:               defaultReplicateModel,
			BaseURL:             defaultReplicateBaseURL,
			TimeoutSeconds:      defaultReplicateTimeout,
			PollIntervalSeconds: defaultReplicatePollInterval,
		},
		Demucs: Demucs{
			PythonBin: defaultDemucsPythonBin,
			Model:     defaultDemucsModel,
		},
		Media: Media{
			FFmpegBin:      defaultFFmpegBin,
			FFprobeBin:     defaultFFprobeBin,
			TimeoutSeconds: defaultMediaTimeout,
		},
		Cleanup: Cleanup{
			RemoveSourceOnSuccess: true,
			KeepSourceOnError:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
