package preflight

import (
	"context"
	"fmt"

	"ncmdump/internal/config"
	"ncmdump/internal/deps"
)

// minFreeBytes is the free space required on the output filesystem.
const minFreeBytes = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a batch needs for the given config. Tool checks
// are only included when the configured output format requires them.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Output filesystem", cfg.Paths.OutputDir, minFreeBytes),
	}

	for _, status := range deps.CheckTranscodeTools(cfg) {
		if status.Optional {
			continue
		}
		results = append(results, CheckTool(ctx, status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summary joins failed results into a single message.
func Summary(results []Result) string {
	failed := Failed(results)
	if len(failed) == 0 {
		return ""
	}
	msg := ""
	for i, result := range failed {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", result.Name, result.Detail)
	}
	return msg
}
