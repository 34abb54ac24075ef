// Package services defines shared utilities consumed by the decode workflow
// and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs, source files, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed vs rejected).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
