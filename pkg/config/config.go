// Package config loads and validates the daemon configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/filter"
	"github.com/prajnoha/lvm2/pkg/scan"
)

// Static errors for configuration validation.
var (
	ErrBadScanMode    = errors.New("scan mode must be \"deferred\" or \"direct\"")
	ErrBadScanAction  = errors.New("scan action must be \"add\", \"change\" or \"remove\"")
	ErrNoScanCommand  = errors.New("scan command must not be empty")
	ErrBadWorkerCount = errors.New("worker count must be positive")
)

// Config is the daemon configuration.
type Config struct {
	Devices  Devices  `yaml:"devices"`
	Scan     Scan     `yaml:"scan"`
	Listener Listener `yaml:"listener"`
}

// Devices configures the admission filter.
type Devices struct {
	// Filter and GlobalFilter are ordered pattern lists in the
	// <polarity><sep><body><sep> grammar. The global filter is applied
	// first; a device must pass both.
	Filter       []string `yaml:"filter"`
	GlobalFilter []string `yaml:"global_filter"`

	// Bypass switches.
	AllowList             bool `yaml:"allow_list"`
	FilterSkip            bool `yaml:"filter_skip"`
	DevicesFile           bool `yaml:"devices_file"`
	FilterWithDevicesFile bool `yaml:"filter_with_devices_file"`

	// PreferredNamePromotion enables promoting a matching symlink alias
	// over the kernel name. On by default.
	PreferredNamePromotion bool `yaml:"preferred_name_promotion"`
}

// Scan configures scan execution.
type Scan struct {
	Mode    string   `yaml:"mode"`
	Workers int64    `yaml:"workers"`
	Buffer  int      `yaml:"buffer"`
	Command []string `yaml:"command"`

	// TimeoutSeconds bounds one scan invocation.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// ScanActions are the event actions that make an Other-class device
	// scan-worthy.
	ScanActions []string `yaml:"scan_actions"`
}

// Listener configures the uevent listener.
type Listener struct {
	Buffer int `yaml:"buffer"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Devices: Devices{
			PreferredNamePromotion: true,
		},
		Scan: Scan{
			Mode:           string(scan.ModeDeferred),
			Workers:        4,
			Buffer:         64,
			Command:        []string{"pvscan", "--cache", "--activate", "ay"},
			TimeoutSeconds: 30,
			ScanActions:    []string{"add", "change"},
		},
		Listener: Listener{
			Buffer: 64,
		},
	}
}

// Load reads a configuration file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration, including an early compile of the
// filter patterns so malformed entries are named before the daemon starts.
func (c *Config) Validate() error {
	switch scan.Mode(c.Scan.Mode) {
	case scan.ModeDeferred, scan.ModeDirect:
	default:
		return fmt.Errorf("%w, got %q", ErrBadScanMode, c.Scan.Mode)
	}

	if c.Scan.Workers <= 0 {
		return fmt.Errorf("%w, got %d", ErrBadWorkerCount, c.Scan.Workers)
	}
	if len(c.Scan.Command) == 0 {
		return ErrNoScanCommand
	}

	for _, a := range c.Scan.ScanActions {
		switch events.Action(a) {
		case events.ActionAdd, events.ActionChange, events.ActionRemove:
		default:
			return fmt.Errorf("%w, got %q", ErrBadScanAction, a)
		}
	}

	if _, err := filter.Compile(c.Devices.Filter); err != nil {
		return err
	}
	if _, err := filter.Compile(c.Devices.GlobalFilter); err != nil {
		return err
	}
	return nil
}

// Bypass returns the filter bypass flags derived from the configuration.
func (c *Config) Bypass() filter.Bypass {
	return filter.Bypass{
		AllowListActive:       c.Devices.AllowList,
		Skip:                  c.Devices.FilterSkip,
		DevicesFileActive:     c.Devices.DevicesFile,
		FilterWithDevicesFile: c.Devices.FilterWithDevicesFile,
		PreferredNameDisabled: !c.Devices.PreferredNamePromotion,
	}
}

// ScanActions returns the configured scan-worthy actions as typed values.
func (c *Config) ScanActions() []events.Action {
	actions := make([]events.Action, len(c.Scan.ScanActions))
	for i, a := range c.Scan.ScanActions {
		actions[i] = events.Action(a)
	}
	return actions
}
