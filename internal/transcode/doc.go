// Package transcode writes decrypted streams to the output directory.
//
// When the requested format matches the container the stream already is (or
// the format is "auto") the bytes are written atomically as-is. Otherwise
// the stream is staged next to the destination and ffmpeg converts it; the
// result is checked with ffprobe before it is renamed into place.
package transcode
