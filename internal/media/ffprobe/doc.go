// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Inspect executes ffprobe and returns a parsed Result. Validate checks
// that a transcoded file carries a decodable audio stream of the expected
// codec before it replaces anything in the output directory.
package ffprobe
