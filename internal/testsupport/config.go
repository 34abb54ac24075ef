package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ncmdump/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Transcoding is pointed at binaries that do not exist unless a stub option
// is applied, so tests never reach a real ffmpeg by accident.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Decode.Workers = 2
	cfgVal.Transcode.FFmpegBinary = filepath.Join(base, "missing", "ffmpeg")
	cfgVal.Transcode.FFprobeBinary = filepath.Join(base, "missing", "ffprobe")
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithOutputFormat overrides output.format.
func WithOutputFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Format = format
	}
}

// WithCoverMode overrides cover.mode.
func WithCoverMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cover.Mode = mode
	}
}

// WithStubbedBinaries writes stub executables for the provided names into the
// config's bin directory and points the transcode settings at them. If names
// is empty, ffmpeg and ffprobe are stubbed. The ffmpeg stub copies its -i
// input to the last argument; the ffprobe stub reports one audio stream.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, stubScript(name), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffmpeg":
				b.cfg.Transcode.FFmpegBinary = target
			case "ffprobe":
				b.cfg.Transcode.FFprobeBinary = target
			}
		}
	}
}

func stubScript(name string) []byte {
	switch name {
	case "ffmpeg":
		return []byte(`#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version stub"
  exit 0
fi
in=""
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-i" ]; then
    in="$2"
    shift 2
    continue
  fi
  out="$1"
  shift
done
cp "$in" "$out"
`)
	case "ffprobe":
		return []byte(`#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffprobe version stub"
  exit 0
fi
echo '{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"format_name":"mp3","duration":"1.000000","size":"1668","bit_rate":"128000","nb_streams":1}}'
`)
	default:
		return []byte("#!/bin/sh\nexit 0\n")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
