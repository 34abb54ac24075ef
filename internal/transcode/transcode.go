package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ncmdump/internal/config"
	"ncmdump/internal/fileutil"
	"ncmdump/internal/logging"
	"ncmdump/internal/media/ffprobe"
	"ncmdump/internal/ncm"
	"ncmdump/internal/services"
)

const stage = "transcode"

// ErrOutputExists reports a destination that is already present while
// overwriting is disabled.
var ErrOutputExists = errors.New("output already exists")

// Result describes a written output file.
type Result struct {
	Path       string
	Format     string
	Transcoded bool
	Validated  bool
}

// ProbeFunc inspects a written file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Transcoder writes streams according to the output and transcode settings.
type Transcoder struct {
	cfg    *config.Config
	logger *slog.Logger
	probe  ProbeFunc
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithProbe overrides the ffprobe runner.
func WithProbe(fn ProbeFunc) Option {
	return func(t *Transcoder) {
		if fn != nil {
			t.probe = fn
		}
	}
}

// New constructs a Transcoder.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Transcoder{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stage),
		probe:  ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TargetFormat resolves the output format for a stream. "auto" keeps the
// detected container.
func TargetFormat(requested string, hint ncm.FormatHint) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" || requested == config.FormatAuto {
		return hint.Extension()
	}
	return requested
}

// NeedsTranscode reports whether writing hint as format requires ffmpeg.
func NeedsTranscode(format string, hint ncm.FormatHint) bool {
	return format != hint.Extension()
}

// Write stores stream at base plus the target extension.
func (t *Transcoder) Write(ctx context.Context, stream []byte, hint ncm.FormatHint, base string) (Result, error) {
	format := TargetFormat(t.cfg.Output.Format, hint)
	dest := base + "." + format
	logger := logging.WithContext(ctx, t.logger)

	if !t.cfg.Output.OverwriteExisting {
		if _, err := os.Stat(dest); err == nil {
			return Result{Path: dest, Format: format}, fmt.Errorf("%w: %s", ErrOutputExists, dest)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stage, "create output directory", "Failed to create output directory", err)
	}

	if !NeedsTranscode(format, hint) {
		if err := fileutil.WriteFileAtomic(dest, stream, 0o644); err != nil {
			return Result{}, services.Wrap(services.ErrTransient, stage, "write stream", "Failed to write decrypted audio", err)
		}
		logger.Debug("stream written",
			logging.String("output", dest),
			logging.String("format", format),
			logging.Int("stream_bytes", len(stream)),
		)
		return Result{Path: dest, Format: format}, nil
	}

	if !hint.Known() {
		logging.WarnWithContext(logger, "converting stream of unknown format", "transcode_unknown_input",
			logging.String("target_format", format),
			logging.String(logging.FieldErrorHint, "ffmpeg will probe the input; check the output if conversion fails"),
		)
	}

	result, err := t.convert(ctx, stream, hint, format, dest)
	if err != nil {
		return Result{}, err
	}
	logger.Info("stream transcoded",
		logging.String(logging.FieldEventType, "transcode_complete"),
		logging.String("output", dest),
		logging.String("source_format", string(hint)),
		logging.String("format", format),
		logging.Bool("validated", result.Validated),
	)
	return result, nil
}

func (t *Transcoder) convert(ctx context.Context, stream []byte, hint ncm.FormatHint, format, dest string) (Result, error) {
	args, err := CodecArgs(format, t.cfg.Transcode.MP3Bitrate)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stage, "codec args", "Unsupported output format", err)
	}

	dir := filepath.Dir(dest)
	staged, err := os.CreateTemp(dir, ".ncmdump-src-*."+hint.Extension())
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stage, "stage input", "Failed to stage decrypted stream", err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)
	if _, err := staged.Write(stream); err != nil {
		staged.Close()
		return Result{}, services.Wrap(services.ErrTransient, stage, "stage input", "Failed to stage decrypted stream", err)
	}
	if err := staged.Close(); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stage, "stage input", "Failed to stage decrypted stream", err)
	}

	tmpOut := filepath.Join(dir, ".ncmdump-out-"+filepath.Base(dest))
	defer os.Remove(tmpOut)

	cmdArgs := []string{"-y", "-hide_banner", "-v", "error", "-i", stagedPath, "-map", "0:a:0"}
	cmdArgs = append(cmdArgs, args...)
	cmdArgs = append(cmdArgs, tmpOut)
	cmd := exec.CommandContext(ctx, t.cfg.FFmpegBinary(), cmdArgs...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		return Result{}, services.Wrap(services.ErrExternalTool, stage, "ffmpeg", "ffmpeg conversion failed: "+detail, err)
	}

	validated := false
	if t.cfg.Transcode.ValidateOutput {
		probe, err := t.probe(ctx, t.cfg.FFprobeBinary(), tmpOut)
		if err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, stage, "ffprobe", "Failed to inspect converted output", err)
		}
		if err := ffprobe.Validate(probe, ""); err != nil {
			return Result{}, services.Wrap(services.ErrValidation, stage, "validate output", "Converted output is not playable audio", err)
		}
		validated = true
	}

	if err := fileutil.MoveFile(tmpOut, dest); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stage, "finalize output", "Failed to move converted output into place", err)
	}
	return Result{Path: dest, Format: format, Transcoded: true, Validated: validated}, nil
}

// CodecArgs returns the ffmpeg encoder arguments for a target format.
func CodecArgs(format, mp3Bitrate string) ([]string, error) {
	switch format {
	case config.FormatMP3:
		if strings.TrimSpace(mp3Bitrate) == "" {
			mp3Bitrate = "320k"
		}
		return []string{"-c:a", "libmp3lame", "-b:a", mp3Bitrate}, nil
	case config.FormatFLAC:
		return []string{"-c:a", "flac"}, nil
	case config.FormatWAV:
		return []string{"-c:a", "pcm_s16le"}, nil
	case config.FormatM4A:
		return []string{"-c:a", "aac", "-b:a", "256k", "-movflags", "+faststart"}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
