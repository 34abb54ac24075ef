// Package logging builds the slog loggers ncmdump writes to the terminal and
// to per-run log files.
//
// The console handler prints a subject line per record (run, file, stage)
// followed by the most useful fields; the JSON handler emits one object per
// record for machine consumption. WithContext copies the run ID, source file,
// and stage carried by a context onto a logger.
package logging
