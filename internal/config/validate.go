package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var bitratePattern = regexp.MustCompile(`^[0-9]+k$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDecode(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateCover(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateDecode() error {
	if c.Decode.Workers > 256 {
		return fmt.Errorf("decode.workers must be at most 256 (got %d)", c.Decode.Workers)
	}
	if c.Decode.ScanWindow < minScanWindow || c.Decode.ScanWindow > maxScanWindow {
		return fmt.Errorf("decode.scan_window must be between %d and %d", minScanWindow, maxScanWindow)
	}
	if c.Decode.MaxInputMiB > 4096 {
		return fmt.Errorf("decode.max_input_mib must be at most 4096 (got %d)", c.Decode.MaxInputMiB)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatAuto, FormatMP3, FormatWAV, FormatFLAC, FormatM4A:
	default:
		return fmt.Errorf("output.format: unsupported value %q (want auto, mp3, wav, flac, or m4a)", c.Output.Format)
	}
	switch c.Output.NameTemplate {
	case NameFromTags, NameFromSource:
	default:
		return fmt.Errorf("output.name_template: unsupported value %q (want tags or source)", c.Output.NameTemplate)
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if !bitratePattern.MatchString(c.Transcode.MP3Bitrate) {
		return fmt.Errorf("transcode.mp3_bitrate: %q is not a bitrate like 320k", c.Transcode.MP3Bitrate)
	}
	return nil
}

func (c *Config) validateCover() error {
	switch c.Cover.Mode {
	case CoverNone, CoverExport, CoverEmbed, CoverBoth:
	default:
		return fmt.Errorf("cover.mode: unsupported value %q (want none, export, embed, or both)", c.Cover.Mode)
	}
	switch c.Cover.ExportFormat {
	case "original", "webp":
	default:
		return fmt.Errorf("cover.export_format: unsupported value %q (want original or webp)", c.Cover.ExportFormat)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
