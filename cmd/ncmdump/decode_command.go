package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ncmdump/internal/config"
	"ncmdump/internal/history"
	"ncmdump/internal/logging"
	"ncmdump/internal/services"
	"ncmdump/internal/workflow"
)

type decodeFlags struct {
	output  string
	format  string
	workers int
	force   bool
	cover   string
	json    bool
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var flags decodeFlags

	cmd := &cobra.Command{
		Use:   "decode <path>...",
		Short: "Decode containers or directories of containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			runID := uuid.NewString()
			logger, logPath, err := logging.NewFromConfig(cfg, runID)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.PruneRunLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays, logPath)

			inputs, err := workflow.CollectInputs(cfg, args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No files matching %s found\n", strings.Join(cfg.Decode.Extensions, ", "))
				return nil
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runCtx = services.WithRunID(runCtx, runID)

			manager := workflow.NewManager(cfg, store, logger, workflow.WithForce(flags.force))
			summary, runErr := manager.Run(runCtx, inputs)
			if summary != nil && (runErr == nil || len(summary.Results) > 0) {
				if err := printDecodeSummary(cmd, summary, flags.json); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if failures := summary.Failures(); failures > 0 {
				return fmt.Errorf("%d of %d files failed", failures, len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: auto, mp3, wav, flac, or m4a")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "Concurrent decodes (0 uses decode.workers)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Convert files even when history records them as converted")
	cmd.Flags().StringVar(&flags.cover, "cover", "", "Cover handling: none, export, embed, or both")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the batch summary as JSON")
	return cmd
}

func (f decodeFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("output") {
		dir, err := config.ExpandPath(strings.TrimSpace(f.output))
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(f.format))
	}
	if cmd.Flags().Changed("workers") {
		cfg.Decode.Workers = max(f.workers, 0)
	}
	if cmd.Flags().Changed("cover") {
		cfg.Cover.Mode = strings.ToLower(strings.TrimSpace(f.cover))
	}
	return cfg.Validate()
}

type decodeReport struct {
	RunID     string             `json:"run_id"`
	Elapsed   string             `json:"elapsed"`
	Converted int                `json:"converted"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Files     []decodeFileReport `json:"files"`
}

type decodeFileReport struct {
	Source       string `json:"source"`
	Status       string `json:"status"`
	Output       string `json:"output,omitempty"`
	Cover        string `json:"cover,omitempty"`
	SourceFormat string `json:"source_format,omitempty"`
	Format       string `json:"format,omitempty"`
	Transcoded   bool   `json:"transcoded,omitempty"`
	RepairRule   string `json:"repair_rule,omitempty"`
	RepairOffset int    `json:"repair_offset,omitempty"`
	Confidence   string `json:"confidence,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newDecodeReport(summary *workflow.Summary) decodeReport {
	report := decodeReport{
		RunID:     summary.RunID,
		Elapsed:   summary.Elapsed.Round(time.Millisecond).String(),
		Converted: summary.Count(history.StatusCompleted),
		Skipped:   summary.Count(history.StatusSkipped),
		Failed:    summary.Failures(),
		Files:     make([]decodeFileReport, 0, len(summary.Results)),
	}
	for _, r := range summary.Results {
		file := decodeFileReport{
			Source:       r.Source,
			Status:       string(r.Status),
			Output:       r.Output,
			Cover:        r.Cover,
			SourceFormat: r.Hint,
			Format:       r.Format,
			Transcoded:   r.Transcoded,
			Reason:       r.Reason,
		}
		if r.Repaired {
			file.RepairRule = r.RepairRule
			file.RepairOffset = r.RepairOffset
			file.Confidence = string(r.Confidence)
		}
		if r.Err != nil {
			file.Error = r.Err.Error()
		}
		report.Files = append(report.Files, file)
	}
	return report
}

func printDecodeSummary(cmd *cobra.Command, summary *workflow.Summary, asJSON bool) error {
	report := newDecodeReport(summary)
	if asJSON {
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()
	if len(report.Files) > 0 {
		rows := make([][]string, 0, len(report.Files))
		for _, f := range report.Files {
			rows = append(rows, []string{filepath.Base(f.Source), f.Status, displayOutput(f), decodeDetail(f)})
		}
		fmt.Fprintln(out, renderTable([]string{"Source", "Status", "Output", "Detail"}, rows, nil))
	}
	printTotals(out, report)
	return nil
}

func printTotals(out io.Writer, report decodeReport) {
	fmt.Fprintf(out, "Converted %d, skipped %d, failed %d in %s\n", report.Converted, report.Skipped, report.Failed, report.Elapsed)
}

func displayOutput(f decodeFileReport) string {
	if f.Output == "" {
		return "-"
	}
	return filepath.Base(f.Output)
}

func decodeDetail(f decodeFileReport) string {
	switch {
	case f.Error != "":
		return f.Error
	case f.Reason != "":
		return f.Reason
	}
	var parts []string
	if f.Transcoded {
		parts = append(parts, f.SourceFormat+" -> "+f.Format)
	}
	if f.RepairRule != "" {
		parts = append(parts, "repaired by "+f.RepairRule+" at "+strconv.Itoa(f.RepairOffset)+" ("+f.Confidence+")")
	}
	if f.Cover != "" {
		parts = append(parts, "cover "+filepath.Base(f.Cover))
	}
	return strings.Join(parts, "; ")
}
