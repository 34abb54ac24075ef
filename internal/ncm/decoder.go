package ncm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"ncmdump/internal/logging"
	"ncmdump/internal/repair"
	"ncmdump/internal/streamcipher"
)

// DefaultMaxInputSize bounds how much of a file Decode reads into memory.
const DefaultMaxInputSize = 256 << 20

// ErrInputTooLarge reports a file above the decoder's size limit.
var ErrInputTooLarge = errors.New("input exceeds maximum size")

// ChecksumStatus reports the outcome of the CRC-32 comparison.
type ChecksumStatus string

const (
	ChecksumUnset    ChecksumStatus = "unset"
	ChecksumMatch    ChecksumStatus = "match"
	ChecksumMismatch ChecksumStatus = "mismatch"
)

// DecryptedAudio is the result of a successful decode.
type DecryptedAudio struct {
	// Bytes starts at the nominal payload position. Bytes[:Offset] is kept
	// undecrypted when the stream start had to be relocated.
	Bytes  []byte
	Offset int
	Format FormatHint

	Repaired   bool
	RepairRule string
	Confidence repair.Confidence

	Cover       []byte
	ModifyCount uint32
	Checksum    ChecksumStatus
}

// Stream returns the decrypted elementary stream.
func (a *DecryptedAudio) Stream() []byte {
	return a.Bytes[a.Offset:]
}

// Decoder decodes containers. It holds no per-call state and is safe for
// concurrent use.
type Decoder struct {
	logger   *slog.Logger
	window   int
	maxInput int64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the decoder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithScanWindow sets the repair scan window in bytes.
func WithScanWindow(n int) Option {
	return func(d *Decoder) {
		d.window = repair.ClampWindow(n)
	}
}

// WithMaxInputSize sets the largest file Decode will read.
func WithMaxInputSize(n int64) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxInput = n
		}
	}
}

// NewDecoder returns a decoder with defaults applied.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		logger:   logging.NewNop(),
		window:   repair.DefaultWindow,
		maxInput: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "ncm")
	return d
}

// Decode reads and decodes the file at path with default options.
func Decode(path string) (*DecryptedAudio, error) {
	return NewDecoder().Decode(context.Background(), path)
}

// Decode reads the whole file at path and decodes it.
func (d *Decoder) Decode(ctx context.Context, path string) (*DecryptedAudio, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %s is a directory", path)
	}
	if info.Size() > d.maxInput {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrInputTooLarge, path, info.Size(), d.maxInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return d.DecodeBytes(ctx, data)
}

// DecodeBytes decodes an in-memory container. data is not modified.
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*DecryptedAudio, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithContext(ctx, d.logger)

	container, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Debug("container parsed",
		logging.Int("key_block_bytes", len(container.KeyBlock)),
		logging.Int("cover_bytes", len(container.Cover)),
		logging.Int("payload_offset", container.AudioOffset),
		logging.Int("payload_bytes", len(container.Audio)),
		logging.Bool("needs_repair", container.NeedsRepair),
	)

	key, err := RecoverKey(container.KeyBlock)
	if err != nil {
		return nil, err
	}

	result := &DecryptedAudio{
		Cover:       container.Cover,
		ModifyCount: container.ModifyCount,
	}
	if container.NeedsRepair {
		if err := d.decryptRepaired(ctx, logger, container, key, result); err != nil {
			return nil, err
		}
	} else {
		plain, err := streamcipher.Apply(key, container.Audio)
		if err != nil {
			return nil, decodeErr(KindKeyParseFailed, "stream key", container.AudioOffset, err)
		}
		result.Bytes = plain
	}

	result.Format = DetectFormat(result.Stream())
	result.Checksum = compareChecksum(container.Checksum, result.Stream())
	if result.Checksum == ChecksumMismatch {
		logging.WarnWithContext(logger, "checksum mismatch; stream kept", "checksum_mismatch",
			logging.String("stored", fmt.Sprintf("%08x", container.Checksum)),
			logging.String("computed", fmt.Sprintf("%08x", ChecksumOf(result.Stream()))),
			logging.String(logging.FieldErrorHint, "the source file may be modified or damaged"),
			logging.String(logging.FieldImpact, "output may contain audible glitches"),
		)
	}
	logger.Debug("payload decrypted",
		logging.String("format", string(result.Format)),
		logging.Int("stream_offset", result.Offset),
		logging.Int("stream_bytes", len(result.Stream())),
		logging.String("checksum", string(result.Checksum)),
	)
	return result, nil
}

func (d *Decoder) decryptRepaired(ctx context.Context, logger *slog.Logger, container *Container, key KeyMaterial, result *DecryptedAudio) error {
	logger.Debug("cover length implausible; locating stream start",
		logging.Int64("declared_cover_length", int64(container.DeclaredCoverLength)),
		logging.Int("scan_window", d.window),
	)
	keystream, err := streamcipher.Keystream(key, repair.ProbeLength)
	if err != nil {
		return decodeErr(KindKeyParseFailed, "stream key", container.AudioOffset, err)
	}
	match, err := repair.NewLocator(repair.WithWindow(d.window)).Locate(ctx, container.Audio, keystream)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// A plausible cover length that runs past the end of the input means
		// the file was cut inside the cover block.
		if container.DeclaredCoverLength <= MaxBlockSize {
			return decodeErr(KindTruncated, "cover", container.AudioOffset, err)
		}
		return decodeErr(KindRepairFailed, "locate stream", container.AudioOffset, err)
	}

	cipher, err := streamcipher.New(key)
	if err != nil {
		return decodeErr(KindKeyParseFailed, "stream key", container.AudioOffset, err)
	}
	out := make([]byte, len(container.Audio))
	copy(out[:match.Offset], container.Audio[:match.Offset])
	cipher.XORKeyStream(out[match.Offset:], container.Audio[match.Offset:])

	result.Bytes = out
	result.Offset = match.Offset
	result.Repaired = true
	result.RepairRule = match.Rule.Name
	result.Confidence = match.Confidence

	attrs := []logging.Attr{
		logging.Int("stream_offset", match.Offset),
		logging.String("repair_rule", match.Rule.Name),
		logging.String("confidence", string(match.Confidence)),
	}
	if match.Confidence == repair.ConfidenceLow {
		logging.WarnWithContext(logger, "stream start located by wide sync sweep", "repair_low_confidence",
			append(attrs,
				logging.String(logging.FieldErrorHint, "verify the output plays correctly"),
				logging.String(logging.FieldImpact, "leading audio may be lost or garbled"),
				logging.Alert("low_confidence_repair"),
			)...,
		)
		return nil
	}
	logger.Info("stream start relocated", logging.Args(attrs...)...)
	return nil
}

func compareChecksum(stored uint32, stream []byte) ChecksumStatus {
	if stored == 0 {
		return ChecksumUnset
	}
	if ChecksumOf(stream) == stored {
		return ChecksumMatch
	}
	return ChecksumMismatch
}
