package engine

import (
	"time"

	"github.com/spf13/pflag"
)

// Config carries every option spec.md section 6 recognizes. Zero-value
// Config is not valid; use DefaultConfig and override from there.
type Config struct {
	// PageSize is the on-disk size of a page in bytes. Must be large enough
	// to hold the bitmap header plus at least one tuple slot.
	PageSize int
	// BufferPages is the buffer manager's cache capacity, in pages.
	BufferPages int
	// StringCapacity is the maximum payload bytes of a String(N) field.
	StringCapacity int
	// NumHistBins is the number of buckets a fresh IntHistogram/
	// StringHistogram is built with.
	NumHistBins int
	// IoCostPerPage is the planner's per-page I/O cost unit.
	IoCostPerPage int
	// LockRetryQuantum is how long the lock manager's acquire loop sleeps
	// between retries.
	LockRetryQuantum time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() *Config {
	return &Config{
		PageSize:         4096,
		BufferPages:      50,
		StringCapacity:   128,
		NumHistBins:      100,
		IoCostPerPage:    1000,
		LockRetryQuantum: 10 * time.Millisecond,
	}
}

// Validate checks the invariants section 6 places on a Config.
func (c *Config) Validate() error {
	minPageSize := 1 + c.StringCapacity + 4 // 1 header byte, 1 slot of a string field
	if c.PageSize < minPageSize {
		return newErr(IllegalArgument, "page_size %d too small for at least one slot (need >= %d)", c.PageSize, minPageSize)
	}
	if c.BufferPages < 1 {
		return newErr(IllegalArgument, "buffer_pages must be >= 1, got %d", c.BufferPages)
	}
	if c.NumHistBins < 1 {
		return newErr(IllegalArgument, "num_hist_bins must be >= 1, got %d", c.NumHistBins)
	}
	return nil
}

// LoadConfig parses a flag-shaped argument list (e.g. from an embedding
// host's own flag set, or a test harness) into a Config seeded with the
// defaults. This is not a CLI entry point: nothing in this module reads
// os.Args or prints a prompt, but hosts embedding the engine may want to
// tune it from their own command line without hand-rolling a parser.
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("engine", pflag.ContinueOnError)
	pageSize := fs.Int("page-size", cfg.PageSize, "page size in bytes")
	bufferPages := fs.Int("buffer-pages", cfg.BufferPages, "buffer manager capacity in pages")
	stringCap := fs.Int("string-capacity", cfg.StringCapacity, "max bytes per string field")
	histBins := fs.Int("num-hist-bins", cfg.NumHistBins, "histogram bucket count")
	ioCost := fs.Int("io-cost-per-page", cfg.IoCostPerPage, "planner per-page I/O cost")
	retryMS := fs.Int("lock-retry-quantum-ms", int(cfg.LockRetryQuantum/time.Millisecond), "lock acquire retry quantum, in ms")

	if err := fs.Parse(args); err != nil {
		return nil, newErr(IllegalArgument, "parsing config flags: %v", err)
	}

	cfg.PageSize = *pageSize
	cfg.BufferPages = *bufferPages
	cfg.StringCapacity = *stringCap
	cfg.NumHistBins = *histBins
	cfg.IoCostPerPage = *ioCost
	cfg.LockRetryQuantum = time.Duration(*retryMS) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
