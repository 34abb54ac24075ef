package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ncmdump/internal/artwork"
	"ncmdump/internal/config"
	"ncmdump/internal/fileutil"
	"ncmdump/internal/ncm"
)

type packFlags struct {
	output      string
	key         string
	cover       string
	modifyCount uint32
	overwrite   bool
}

func newPackCommand() *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:         "pack <audio>",
		Short:       "Wrap plain audio in a synthetic container for testing",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			audio, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}

			spec := ncm.ContainerSpec{
				Version:     1,
				Key:         []byte(flags.key),
				Audio:       audio,
				ModifyCount: flags.modifyCount,
				Checksum:    ncm.ChecksumOf(audio),
			}
			if strings.TrimSpace(flags.key) == "" {
				spec.Key = []byte(strings.ReplaceAll(uuid.NewString(), "-", ""))
			}
			if flags.cover != "" {
				coverPath, err := config.ExpandPath(flags.cover)
				if err != nil {
					return fmt.Errorf("resolve cover path: %w", err)
				}
				if spec.Cover, err = os.ReadFile(coverPath); err != nil {
					return fmt.Errorf("read cover: %w", err)
				}
				if _, err := artwork.Sniff(spec.Cover); err != nil {
					return fmt.Errorf("cover %s: %w", flags.cover, err)
				}
			}

			target, err := packTarget(source, flags.output)
			if err != nil {
				return err
			}
			if !flags.overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check output path: %w", err)
				}
			}

			data, err := ncm.Marshal(spec)
			if err != nil {
				return fmt.Errorf("build container: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				return fmt.Errorf("write container: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes, %s stream)\n", target, len(data), ncm.DetectFormat(audio))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Container path (default: <audio>.ncm beside the source)")
	cmd.Flags().StringVar(&flags.key, "key", "", "ASCII stream key (default: random)")
	cmd.Flags().StringVar(&flags.cover, "cover", "", "Cover image to embed")
	cmd.Flags().Uint32Var(&flags.modifyCount, "modify-count", 0, "Value for the modify counter field")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Replace an existing container")
	return cmd
}

func packTarget(source, output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return strings.TrimSuffix(source, filepath.Ext(source)) + ".ncm", nil
	}
	target, err := config.ExpandPath(output)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return target, nil
}
