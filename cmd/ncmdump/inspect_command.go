package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ncmdump/internal/artwork"
	"ncmdump/internal/config"
	"ncmdump/internal/fileutil"
	"ncmdump/internal/logging"
	"ncmdump/internal/ncm"
	"ncmdump/internal/textutil"
)

type inspectReport struct {
	Path          string `json:"path"`
	SizeBytes     int64  `json:"size_bytes"`
	Fingerprint   string `json:"fingerprint"`
	Version       uint16 `json:"version"`
	KeyBlockBytes int    `json:"key_block_bytes"`
	KeyBytes      int    `json:"key_bytes"`
	ModifyCount   uint32 `json:"modify_count"`
	Checksum      string `json:"checksum"`
	ChecksumState string `json:"checksum_state"`
	CoverBytes    int    `json:"cover_bytes"`
	CoverFormat   string `json:"cover_format,omitempty"`
	CoverWidth    int    `json:"cover_width,omitempty"`
	CoverHeight   int    `json:"cover_height,omitempty"`
	PayloadOffset int    `json:"payload_offset"`
	PayloadBytes  int    `json:"payload_bytes"`
	Format        string `json:"format"`
	Repaired      bool   `json:"repaired"`
	RepairRule    string `json:"repair_rule,omitempty"`
	StreamOffset  int    `json:"stream_offset"`
	Confidence    string `json:"confidence,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the block layout of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := inspectContainer(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(report.fields()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func inspectContainer(cmd *cobra.Command, cfg *config.Config, raw string) (*inspectReport, error) {
	path, err := config.ExpandPath(raw)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", raw, err)
	}
	if info.Size() > cfg.MaxInputBytes() {
		return nil, fmt.Errorf("inspect %s: %w", raw, ncm.ErrInputTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", raw, err)
	}

	container, err := ncm.Parse(data)
	if err != nil {
		return nil, err
	}
	key, err := ncm.RecoverKey(container.KeyBlock)
	if err != nil {
		return nil, err
	}
	decoder := ncm.NewDecoder(
		ncm.WithLogger(logging.NewNop()),
		ncm.WithScanWindow(cfg.Decode.ScanWindow),
		ncm.WithMaxInputSize(cfg.MaxInputBytes()),
	)
	audio, err := decoder.DecodeBytes(cmd.Context(), data)
	if err != nil {
		return nil, err
	}

	report := &inspectReport{
		Path:          path,
		SizeBytes:     info.Size(),
		Fingerprint:   fileutil.FingerprintBytes(data),
		Version:       container.Version,
		KeyBlockBytes: len(container.KeyBlock),
		KeyBytes:      len(key),
		ModifyCount:   container.ModifyCount,
		Checksum:      fmt.Sprintf("%08x", container.Checksum),
		ChecksumState: string(audio.Checksum),
		CoverBytes:    len(container.Cover),
		PayloadOffset: container.AudioOffset,
		PayloadBytes:  len(container.Audio),
		Format:        string(audio.Format),
		Repaired:      audio.Repaired,
		RepairRule:    audio.RepairRule,
		StreamOffset:  audio.Offset,
		Confidence:    string(audio.Confidence),
	}
	if cover, err := artwork.Sniff(container.Cover); err == nil {
		report.CoverFormat = cover.Format
		report.CoverWidth = cover.Width
		report.CoverHeight = cover.Height
	}
	return report, nil
}

func (r *inspectReport) fields() [][2]string {
	cover := "none"
	if r.CoverBytes > 0 {
		cover = humanize.IBytes(uint64(r.CoverBytes))
		if r.CoverFormat != "" {
			cover += fmt.Sprintf(" %s %dx%d", r.CoverFormat, r.CoverWidth, r.CoverHeight)
		}
	}
	repairState := "no"
	if r.Repaired {
		repairState = fmt.Sprintf("%s at +%d (%s confidence)", r.RepairRule, r.StreamOffset, r.Confidence)
	}
	return [][2]string{
		{"File", r.Path},
		{"Size", humanize.IBytes(uint64(r.SizeBytes))},
		{"Fingerprint", r.Fingerprint},
		{"Version", strconv.Itoa(int(r.Version))},
		{"Key block", fmt.Sprintf("%d bytes (key %d bytes)", r.KeyBlockBytes, r.KeyBytes)},
		{"Modify count", strconv.FormatUint(uint64(r.ModifyCount), 10)},
		{"Checksum", fmt.Sprintf("%s (%s)", r.Checksum, r.ChecksumState)},
		{"Cover", cover},
		{"Payload", fmt.Sprintf("%s at offset %d", humanize.IBytes(uint64(r.PayloadBytes)), r.PayloadOffset)},
		{"Format", textutil.FormatLabel(r.Format)},
		{"Repaired", repairState},
	}
}
