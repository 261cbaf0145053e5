package ffhandle

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/internal/debug"
)

// Options configures a Context.
type Options struct {
	// Debug wraps the handle table with generation tracking and misuse
	// detection.
	Debug bool `yaml:"debug"`

	// InitialHandles is the initial handle table capacity, null slot included.
	InitialHandles int `yaml:"initial_handles"`

	// Globals is the initial number of global slots.
	Globals int `yaml:"globals"`

	// ClosedQueueSize bounds the debug closed-handle queue.
	ClosedQueueSize int `yaml:"closed_queue_size"`

	// TrackerSize is the initial buffer size of new trackers.
	TrackerSize int `yaml:"tracker_size"`

	// ABIVersion is the ABI version native modules were built against.
	ABIVersion string `yaml:"abi_version"`

	// OffHeap places the native mirror cache and native structs in C memory.
	// When the C library cannot be loaded the Go heap is used instead.
	OffHeap bool `yaml:"offheap"`

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger `yaml:"-"`

	// OnInvalidHandle is called on handle misuse in debug mode. When nil,
	// misuse is fatal.
	OnInvalidHandle func(Misuse) `yaml:"-"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		InitialHandles:  64,
		Globals:         0,
		ClosedQueueSize: debug.DefaultClosedQueueSize,
		TrackerSize:     8,
		ABIVersion:      abi.Version,
		OffHeap:         true,
	}
}

// ParseOptions reads YAML on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("ffhandle: parsing options: %w", err)
	}
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptions reads YAML options from path.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("ffhandle: reading options: %w", err)
	}
	return ParseOptions(data)
}

func (o Options) validate() error {
	switch {
	case o.InitialHandles < 0:
		return fmt.Errorf("ffhandle: initial_handles must not be negative, got %d", o.InitialHandles)
	case o.Globals < 0:
		return fmt.Errorf("ffhandle: globals must not be negative, got %d", o.Globals)
	case o.ClosedQueueSize < 0:
		return fmt.Errorf("ffhandle: closed_queue_size must not be negative, got %d", o.ClosedQueueSize)
	case o.TrackerSize < 0:
		return fmt.Errorf("ffhandle: tracker_size must not be negative, got %d", o.TrackerSize)
	}
	if o.ABIVersion != "" {
		if err := abi.CheckVersion(o.ABIVersion); err != nil {
			return err
		}
	}
	return nil
}
