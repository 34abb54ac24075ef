package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ncmdump/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlag string
		limit      int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := history.ListOptions{Limit: limit}
			if statusFlag != "" {
				status, err := history.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				opts.Status = status
			}
			return withHistory(cmd, ctx, func(store *history.Store) error {
				records, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, historyJSON(records))
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Source", "Output", "Detail", "Updated"},
					historyRows(records, time.Now()),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show records with this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove recorded conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]history.Status, 0, len(statuses))
			for _, value := range statuses {
				status, err := history.ParseStatus(value)
				if err != nil {
					return err
				}
				parsed = append(parsed, status)
			}
			return withHistory(cmd, ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context(), parsed...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only remove records with these statuses")
	return cmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "History is disabled (history.enabled = false)")
		return nil
	}
	defer store.Close()
	return fn(store)
}

func historyRows(records []*history.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		output := "-"
		if rec.OutputPath != "" {
			output = filepath.Base(rec.OutputPath)
		}
		detail := rec.ErrorMessage
		if rec.RepairRule != "" && detail == "" {
			detail = fmt.Sprintf("repaired by %s at %d", rec.RepairRule, rec.RepairOffset)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			string(rec.Status),
			filepath.Base(rec.SourcePath),
			output,
			detail,
			humanize.RelTime(rec.UpdatedAt, now, "ago", "from now"),
		})
	}
	return rows
}

type historyRecordJSON struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	Output       string    `json:"output,omitempty"`
	Format       string    `json:"format,omitempty"`
	RepairRule   string    `json:"repair_rule,omitempty"`
	RepairOffset int       `json:"repair_offset,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func historyJSON(records []*history.Record) []historyRecordJSON {
	out := make([]historyRecordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, historyRecordJSON{
			ID:           rec.ID,
			RunID:        rec.RunID,
			Status:       string(rec.Status),
			Source:       rec.SourcePath,
			Output:       rec.OutputPath,
			Format:       rec.Format,
			RepairRule:   rec.RepairRule,
			RepairOffset: rec.RepairOffset,
			ErrorKind:    rec.ErrorKind,
			ErrorMessage: rec.ErrorMessage,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		})
	}
	return out
}
