// Package workflow converts batches of containers into audio files.
//
// The Manager collects inputs, takes an exclusive lock on the output
// directory, and decodes files concurrently on a bounded errgroup. Each file
// moves through fingerprinting, an optional history skip, decoding, output
// naming, writing (with ffmpeg when a different container is requested),
// and cover handling. Per-file failures are recorded in the history store
// and reported in the Summary without cancelling sibling files; only context
// cancellation stops the batch early.
package workflow
