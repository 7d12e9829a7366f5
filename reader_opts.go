package blobpack

import "log/slog"

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	logger *slog.Logger
}

func newReaderConfig(opts []ReaderOption) readerConfig {
	var cfg readerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c *readerConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// ReaderWithLogger sets the logger for read-side operations, including
// dependency-resolution warnings. By default logs are discarded.
func ReaderWithLogger(l *slog.Logger) ReaderOption {
	return func(c *readerConfig) {
		c.logger = l
	}
}

// ExtractOption configures Extract and ExtractMany.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	verify      bool
	resolveDeps bool
}

func newExtractConfig(opts []ExtractOption) extractConfig {
	cfg := extractConfig{verify: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ExtractWithVerify controls checksum verification during extraction.
// Verification is on by default; ExtractBytes and VerifyAll always verify
// regardless of this option.
func ExtractWithVerify(verify bool) ExtractOption {
	return func(c *extractConfig) {
		c.verify = verify
	}
}

// ExtractWithDependencies makes ExtractMany expand the requested keys to
// their dependency closure before extracting. Off by default.
func ExtractWithDependencies(resolve bool) ExtractOption {
	return func(c *extractConfig) {
		c.resolveDeps = resolve
	}
}
