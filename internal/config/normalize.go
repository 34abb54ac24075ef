package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDecode()
	c.normalizeOutput()
	c.normalizeTranscode()
	c.normalizeCover()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDecode() {
	if c.Decode.Workers < 0 {
		c.Decode.Workers = 0
	}
	switch {
	case c.Decode.ScanWindow <= 0:
		c.Decode.ScanWindow = defaultScanWindow
	case c.Decode.ScanWindow < minScanWindow:
		c.Decode.ScanWindow = minScanWindow
	case c.Decode.ScanWindow > maxScanWindow:
		c.Decode.ScanWindow = maxScanWindow
	}
	if c.Decode.MaxInputMiB <= 0 {
		c.Decode.MaxInputMiB = defaultMaxInputMiB
	}
	if c.Decode.TimeoutSeconds <= 0 {
		c.Decode.TimeoutSeconds = defaultTimeoutSeconds
	}
	exts := make([]string, 0, len(c.Decode.Extensions))
	seen := make(map[string]struct{}, len(c.Decode.Extensions))
	for _, ext := range c.Decode.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".ncm"}
	}
	c.Decode.Extensions = exts
}

func (c *Config) normalizeOutput() {
	c.Output.Format = lowerOr(c.Output.Format, FormatAuto)
	c.Output.NameTemplate = lowerOr(c.Output.NameTemplate, NameFromTags)
}

func (c *Config) normalizeTranscode() {
	if value, ok := os.LookupEnv(FFmpegEnv); ok && strings.TrimSpace(value) != "" {
		c.Transcode.FFmpegBinary = value
	}
	if value, ok := os.LookupEnv(FFprobeEnv); ok && strings.TrimSpace(value) != "" {
		c.Transcode.FFprobeBinary = value
	}
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
	if c.Transcode.FFprobeBinary == "" {
		c.Transcode.FFprobeBinary = defaultFFprobeBinary
	}
	c.Transcode.MP3Bitrate = lowerOr(c.Transcode.MP3Bitrate, defaultMP3Bitrate)
}

func (c *Config) normalizeCover() {
	c.Cover.Mode = lowerOr(c.Cover.Mode, CoverEmbed)
	c.Cover.ExportFormat = lowerOr(c.Cover.ExportFormat, "original")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lowerOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = lowerOr(c.Logging.Level, defaultLogLevel)
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
