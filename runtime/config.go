package runtime

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/ribosome/errors"
)

// Config holds the tunables of a Runtime.
type Config struct {
	// MemoryName is the guest memory export to prime and marshal through.
	MemoryName string `toml:"memory_name"`

	// PrimeBytes is written at PrimeOffset before the export runs.
	PrimeBytes []uint8 `toml:"prime_bytes"`

	// DispatchTimeout bounds each commit's wait for its observer. 0 waits forever.
	DispatchTimeout time.Duration `toml:"dispatch_timeout"`

	PrimeOffset uint32 `toml:"prime_offset"`

	// MaxEntrySize caps each length-prefixed commit argument, in bytes.
	MaxEntrySize uint32 `toml:"max_entry_size"`

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 means the wazero default.
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`

	// CloseOnContextDone lets context cancellation interrupt guest code.
	CloseOnContextDone bool `toml:"close_on_context_done"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MemoryName:      "memory",
		PrimeOffset:     0,
		PrimeBytes:      []uint8{6, 7, 8},
		DispatchTimeout: 30 * time.Second,
		MaxEntrySize:    1 << 20,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.MemoryName == "":
		return errors.InvalidInput(errors.PhaseConfig, "memory_name cannot be empty")
	case c.MaxEntrySize == 0:
		return errors.InvalidInput(errors.PhaseConfig, "max_entry_size must be positive")
	case c.DispatchTimeout < 0:
		return errors.InvalidInput(errors.PhaseConfig, "dispatch_timeout cannot be negative")
	case uint64(c.PrimeOffset)+uint64(len(c.PrimeBytes)) > 1<<32:
		return errors.InvalidInput(errors.PhaseConfig, "prime block overflows the address space")
	}
	return nil
}

func parseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.InvalidInput(errors.PhaseConfig, "unknown config keys: "+strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open config")
	}
	defer f.Close()
	return parseConfig(f)
}
