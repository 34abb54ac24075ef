package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ncmdump/internal/deps"
	"ncmdump/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := []string{renderSectionHeader("Configuration", colorize)}
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found, defaults)"
			}
			lines = append(lines,
				renderStatusLine("Config", statusInfo, source, colorize),
				renderStatusLine("Output format", statusInfo, cfg.Output.Format, colorize),
				renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d", cfg.WorkerCount()), colorize),
				renderStatusLine("History", statusInfo, yesNo(cfg.History.Enabled), colorize),
			)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines = append(lines, "", renderSectionHeader("Preflight", colorize))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			lines = append(lines, "", renderSectionHeader("External tools", colorize))
			tools := deps.CheckTranscodeTools(cfg)
			for _, status := range tools {
				probe := preflight.ProbeTool(cmd.Context(), status.Command)
				kind := statusOK
				switch {
				case !probe.Found && status.Optional:
					kind = statusWarn
				case !probe.Found:
					kind = statusError
				}
				detail := probe.Detail()
				if status.Optional {
					detail += " [optional]"
				}
				lines = append(lines, renderStatusLine(status.Name, kind, detail, colorize))
			}

			if missing := deps.MissingRequired(tools); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				lines = append(lines, "", fmt.Sprintf("Output format %q needs %s; install it or set output.format = \"auto\"", cfg.Output.Format, strings.Join(names, " and ")))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(failed))
			}
			return nil
		},
	}
}
