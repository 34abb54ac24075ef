package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"ncmdump/internal/config"
	"ncmdump/internal/services"
)

// CollectInputs expands paths into the list of files to decode. Directories
// are walked recursively and filtered by the configured extensions; files
// named explicitly are always included. The result is sorted and free of
// duplicates.
func CollectInputs(cfg *config.Config, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "collect", "inputs", "No input paths given", nil)
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, raw := range paths {
		path, err := config.ExpandPath(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "collect", "resolve path", fmt.Sprintf("Invalid path %q", raw), err)
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrNotFound, "collect", "stat", fmt.Sprintf("Input %q does not exist", raw), err)
			}
			return nil, services.Wrap(services.ErrTransient, "collect", "stat", fmt.Sprintf("Cannot access %q", raw), err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if p != path && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && cfg.MatchesExtension(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "collect", "walk", fmt.Sprintf("Failed to scan %q", raw), err)
		}
	}
	sort.Strings(out)
	return out, nil
}
