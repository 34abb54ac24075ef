package deps

import (
	"ncmdump/internal/config"
)

// TranscodeRequirements lists the tools the configuration will invoke.
// FFmpeg is optional while output.format is auto since decrypted streams are
// written as-is; FFprobe is optional unless output validation is enabled.
func TranscodeRequirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for converting to a different output format",
			Optional:    cfg.Output.Format == config.FormatAuto,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for validating converted output",
			Optional:    cfg.Output.Format == config.FormatAuto || !cfg.Transcode.ValidateOutput,
		},
	}
}

// CheckTranscodeTools resolves ffmpeg and ffprobe for the configuration.
func CheckTranscodeTools(cfg *config.Config) []Status {
	return CheckBinaries(TranscodeRequirements(cfg))
}

// MissingRequired returns the unavailable, non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
