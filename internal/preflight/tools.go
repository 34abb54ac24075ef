package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ncmdump/internal/deps"
)

const toolProbeTimeout = 5 * time.Second

// ToolProbe reports the version banner of an external tool.
type ToolProbe struct {
	Found   bool
	Path    string
	Version string
}

// ProbeTool runs "<binary> -version" and captures the first banner line.
func ProbeTool(ctx context.Context, binary string) ToolProbe {
	resolved, err := deps.Resolve(binary)
	if err != nil {
		return ToolProbe{Path: strings.TrimSpace(binary)}
	}

	probeCtx, cancel := context.WithTimeout(ctx, toolProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, resolved, "-version").Output()
	if err != nil {
		return ToolProbe{Found: true, Path: resolved}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return ToolProbe{Found: true, Path: resolved, Version: strings.TrimSpace(line)}
}

// Detail renders a display-friendly summary for status UIs.
func (p ToolProbe) Detail() string {
	switch {
	case !p.Found:
		return fmt.Sprintf("binary %q not found", p.Path)
	case p.Version == "":
		return fmt.Sprintf("%s (version unknown)", p.Path)
	default:
		return fmt.Sprintf("%s (%s)", p.Path, p.Version)
	}
}

// CheckTool turns a dependency status into a preflight result, probing the
// binary when it resolved.
func CheckTool(ctx context.Context, status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	probe := ProbeTool(ctx, status.Command)
	if probe.Version == "" {
		return Result{Name: status.Name, Detail: fmt.Sprintf("%s did not answer -version", probe.Path)}
	}
	return Result{Name: status.Name, Passed: true, Detail: probe.Detail()}
}
