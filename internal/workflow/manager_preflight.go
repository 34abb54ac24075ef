package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ncmdump/internal/logging"
	"ncmdump/internal/preflight"
	"ncmdump/internal/services"
)

// runPreflightChecks validates directories and tools before a batch starts.
// Returns nil when all checks pass, or an error describing all failures.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, m.cfg)

	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "run ncmdump doctor and fix the reported issue"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}

	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "checks", "Preflight checks failed: "+strings.Join(failures, "; "), nil)
	}
	return nil
}
