package blobpack

import (
	"log/slog"
	"time"

	"github.com/blobpack/blobpack/internal/comp"
)

// DefaultCompressionLevel is the zlib level Writers use unless
// overridden with WriterWithCompressionLevel.
const DefaultCompressionLevel = comp.DefaultLevel

// WriterOption configures a Writer or Store.
type WriterOption func(*writerConfig)

type writerConfig struct {
	level  int
	logger *slog.Logger
	now    func() time.Time
}

func newWriterConfig(opts []WriterOption) writerConfig {
	cfg := writerConfig{
		level: comp.DefaultLevel,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// log returns the configured logger, falling back to a discard logger.
func (c *writerConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// WriterWithCompressionLevel sets the zlib compression level (1 fastest
// to 9 smallest, default 6). The level affects compressed sizes only;
// checksums are computed over pre-compression bytes and do not change.
func WriterWithCompressionLevel(level int) WriterOption {
	return func(c *writerConfig) {
		c.level = level
	}
}

// WriterWithLogger sets the logger for write-side operations. By default
// logs are discarded.
func WriterWithLogger(l *slog.Logger) WriterOption {
	return func(c *writerConfig) {
		c.logger = l
	}
}

// writerWithClock overrides the time source. Used by tests.
func writerWithClock(now func() time.Time) WriterOption {
	return func(c *writerConfig) {
		c.now = now
	}
}
