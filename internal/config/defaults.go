package config

const (
	defaultConfigPath     = "~/.config/ncmdump/config.toml"
	projectConfigName     = "ncmdump.toml"
	defaultOutputDir      = "~/Music/ncmdump"
	defaultStateDir       = "~/.local/share/ncmdump"
	defaultScanWindow     = 8 * 1024
	minScanWindow         = 2 * 1024
	maxScanWindow         = 64 * 1024
	defaultMaxInputMiB    = 256
	defaultTimeoutSeconds = 60
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultMP3Bitrate     = "320k"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultRetentionDays  = 30

	// FFmpegEnv and FFprobeEnv override the configured binaries.
	FFmpegEnv  = "NCMDUMP_FFMPEG"
	FFprobeEnv = "NCMDUMP_FFPROBE"
)

// Output formats accepted by output.format.
const (
	FormatAuto = "auto"
	FormatMP3  = "mp3"
	FormatWAV  = "wav"
	FormatFLAC = "flac"
	FormatM4A  = "m4a"
)

// Cover modes accepted by cover.mode.
const (
	CoverNone   = "none"
	CoverExport = "export"
	CoverEmbed  = "embed"
	CoverBoth   = "both"
)

// Naming templates accepted by output.name_template.
const (
	NameFromTags   = "tags"
	NameFromSource = "source"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
		},
		Decode: Decode{
			ScanWindow:     defaultScanWindow,
			MaxInputMiB:    defaultMaxInputMiB,
			TimeoutSeconds: defaultTimeoutSeconds,
			Extensions:     []string{".ncm"},
		},
		Output: Output{
			Format:       FormatAuto,
			NameTemplate: NameFromTags,
		},
		Transcode: Transcode{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			MP3Bitrate:     defaultMP3Bitrate,
			ValidateOutput: true,
		},
		Cover: Cover{
			Mode:         CoverEmbed,
			ExportFormat: "original",
		},
		History: History{
			Enabled:       true,
			SkipConverted: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
