package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ncmdump/internal/artwork"
	"ncmdump/internal/config"
	"ncmdump/internal/fileutil"
	"ncmdump/internal/history"
	"ncmdump/internal/logging"
	"ncmdump/internal/ncm"
	"ncmdump/internal/services"
	"ncmdump/internal/tagging"
	"ncmdump/internal/textutil"
	"ncmdump/internal/transcode"
)

func (m *Manager) processFile(ctx context.Context, runID, source string) (result Result) {
	start := time.Now()
	ctx = services.WithFile(ctx, source)
	logger := logging.WithContext(ctx, m.logger)
	result = Result{Source: source}

	var rec *history.Record
	defer func() {
		result.Duration = time.Since(start)
		m.finish(ctx, logger, rec, &result)
	}()

	fingerprint, err := fileutil.Fingerprint(source)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		result.Err = services.Wrap(marker, "fingerprint", "hash input", "Failed to read input", err)
		result.Status = services.FailureStatus(result.Err)
		return result
	}

	if m.store != nil {
		if prev := m.previousConversion(ctx, logger, fingerprint); prev != nil {
			result.Status = history.StatusSkipped
			result.Output = prev.OutputPath
			result.Format = prev.Format
			result.Reason = "already converted"
			rec = m.begin(ctx, logger, runID, source, fingerprint)
			return result
		}
		rec = m.begin(ctx, logger, runID, source, fingerprint)
	}

	decodeCtx, cancel := context.WithTimeout(services.WithStage(ctx, "decode"), m.cfg.DecodeTimeout())
	audio, err := m.decoder.Decode(decodeCtx, source)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTimeout, "decode", "decode", fmt.Sprintf("Decode exceeded %s", m.cfg.DecodeTimeout()), err)
		}
		if errors.Is(err, ncm.ErrInputTooLarge) {
			err = services.Wrap(services.ErrValidation, "decode", "read input", "Input exceeds decode.max_input_mib", err)
		}
		result.Status = services.FailureStatus(err)
		result.Err = err
		return result
	}
	result.Hint = string(audio.Format)
	result.Repaired = audio.Repaired
	result.RepairRule = audio.RepairRule
	result.RepairOffset = audio.Offset
	result.Confidence = audio.Confidence

	stream := audio.Stream()
	tags, err := tagging.ReadTags(stream)
	if err != nil {
		logger.Debug("embedded tags unreadable; naming from source", logging.Error(err))
	}
	base := m.claimName(filepath.Join(m.cfg.Paths.OutputDir, m.outputName(source, tags)))

	writeCtx := services.WithStage(ctx, "write")
	written, err := m.transcoder.Write(writeCtx, stream, audio.Format, base)
	if err != nil {
		if errors.Is(err, transcode.ErrOutputExists) {
			result.Status = history.StatusSkipped
			result.Output = written.Path
			result.Format = written.Format
			result.Reason = "output exists"
			return result
		}
		result.Status = services.FailureStatus(err)
		result.Err = err
		return result
	}
	result.Output = written.Path
	result.Format = written.Format
	result.Transcoded = written.Transcoded

	if tags.Title == "" {
		tags.Title = sourceStem(source)
	}
	result.Cover = m.handleCover(services.WithStage(ctx, "cover"), audio.Cover, base, written, tags)
	result.Status = history.StatusCompleted
	return result
}

// previousConversion returns the completed record for fingerprint when the
// history allows skipping and its output still exists.
func (m *Manager) previousConversion(ctx context.Context, logger *slog.Logger, fingerprint string) *history.Record {
	if m.force || !m.cfg.History.Enabled || !m.cfg.History.SkipConverted {
		return nil
	}
	prev, err := m.store.FindCompletedByFingerprint(ctx, fingerprint)
	if err != nil {
		logger.Warn("history lookup failed; converting anyway",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_lookup_failed"),
			logging.String(logging.FieldErrorHint, "check the history database"),
		)
		return nil
	}
	if prev == nil || prev.OutputPath == "" {
		return nil
	}
	if _, err := os.Stat(prev.OutputPath); err != nil {
		return nil
	}
	return prev
}

func (m *Manager) begin(ctx context.Context, logger *slog.Logger, runID, source, fingerprint string) *history.Record {
	if m.store == nil || !m.cfg.History.Enabled {
		return nil
	}
	rec, err := m.store.Begin(ctx, runID, source, fingerprint)
	if err != nil {
		logger.Warn("failed to record conversion start",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_begin_failed"),
			logging.String(logging.FieldImpact, "conversion will not appear in history"),
		)
		return nil
	}
	return rec
}

func (m *Manager) finish(ctx context.Context, logger *slog.Logger, rec *history.Record, result *Result) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "file_"+string(result.Status)),
		logging.String("status", string(result.Status)),
		logging.Duration("duration", result.Duration),
	}
	if result.Output != "" {
		attrs = append(attrs, logging.String("output", result.Output))
	}
	if result.Hint != "" {
		attrs = append(attrs, logging.String("source_format", result.Hint))
	}
	if result.Repaired {
		attrs = append(attrs,
			logging.String("repair_rule", result.RepairRule),
			logging.Int("stream_offset", result.RepairOffset),
		)
	}
	switch result.Status {
	case history.StatusCompleted:
		logger.Info("file converted", logging.Args(attrs...)...)
	case history.StatusSkipped:
		logger.Info("file skipped", logging.Args(append(attrs, logging.String("reason", result.Reason))...)...)
	default:
		logging.ErrorWithContext(logger, "file conversion failed", "file_"+string(result.Status),
			append(attrs,
				logging.Error(result.Err),
				logging.String("error_kind", errorKind(result.Err)),
				logging.String(logging.FieldErrorHint, failureHint(result)),
			)...,
		)
	}

	if rec == nil {
		return
	}
	rec.Status = result.Status
	rec.Format = result.Format
	rec.RepairOffset = result.RepairOffset
	rec.RepairRule = result.RepairRule
	rec.OutputPath = result.Output
	if result.Err != nil {
		rec.ErrorKind = errorKind(result.Err)
		rec.ErrorMessage = result.Err.Error()
	} else if result.Reason != "" {
		rec.ErrorMessage = result.Reason
	}
	// The batch context may already be cancelled; record the outcome anyway.
	if err := m.store.Update(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to record conversion outcome",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_update_failed"),
		)
	}
}

func (m *Manager) outputName(source string, tags tagging.Tags) string {
	stem := sourceStem(source)
	if m.cfg.Output.NameTemplate == config.NameFromTags && !tags.Empty() {
		return textutil.OutputName(tags.Artist, tags.Title, stem)
	}
	if name := textutil.SanitizeFileName(stem); name != "" {
		return name
	}
	return "track"
}

func (m *Manager) handleCover(ctx context.Context, data []byte, base string, written transcode.Result, tags tagging.Tags) string {
	mode := m.cfg.Cover.Mode
	if len(data) == 0 || mode == config.CoverNone {
		return ""
	}
	logger := logging.WithContext(ctx, m.logger)
	cover, err := artwork.Sniff(data)
	if err != nil {
		logging.WarnWithContext(logger, "cover image unrecognised; skipped", "cover_unrecognised",
			logging.Error(err),
			logging.Int("cover_bytes", len(data)),
			logging.String(logging.FieldImpact, "output has no cover art"),
		)
		return ""
	}

	exported := ""
	if artwork.WantsExport(mode) {
		path, err := artwork.Export(cover, base, m.cfg.Cover.ExportFormat)
		if err != nil {
			logging.WarnWithContext(logger, "cover export failed", "cover_export_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output directory permissions"),
			)
		} else {
			exported = path
		}
	}
	if artwork.WantsEmbed(mode) {
		err := tagging.Embed(written.Path, written.Format, cover, tags)
		switch {
		case errors.Is(err, tagging.ErrUnsupported):
			logger.Debug("cover embedding not supported for format", logging.String("format", written.Format))
		case err != nil:
			logging.WarnWithContext(logger, "cover embedding failed", "cover_embed_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "output has no embedded cover art"),
			)
		}
	}
	return exported
}

func sourceStem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func errorKind(err error) string {
	if kind := ncm.KindOf(err); kind != 0 {
		return kind.String()
	}
	return services.MarkerName(err)
}

func failureHint(result *Result) string {
	switch {
	case result.Status == history.StatusRejected:
		return "the file is not a readable container; re-download it"
	case errors.Is(result.Err, services.ErrExternalTool):
		return "check the ffmpeg installation or use output.format = \"auto\""
	case errors.Is(result.Err, services.ErrTimeout):
		return "raise decode.timeout_seconds"
	default:
		return "check logs for details"
	}
}
