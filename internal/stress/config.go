package stress

import (
	"errors"
	"fmt"
)

const (
	// DefaultUpdaters is the default number of concurrent updaters.
	DefaultUpdaters = 4

	// DefaultReceivers is the default number of concurrent receivers.
	DefaultReceivers = 4

	// DefaultUpdates is the default number of updates per updater.
	DefaultUpdates = 10000
)

// Config describes a stress run.
type Config struct {
	Updaters  int  `mapstructure:"updaters"`  // concurrent updaters
	Receivers int  `mapstructure:"receivers"` // concurrent receivers
	Updates   int  `mapstructure:"updates"`   // updates per updater
	Take      bool `mapstructure:"take"`      // receive with Take instead of Recv
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Updaters:  DefaultUpdaters,
		Receivers: DefaultReceivers,
		Updates:   DefaultUpdates,
	}
}

// Validate reports an error if c does not describe a valid run.
func (c Config) Validate() error {
	var errs []error
	if c.Updaters <= 0 {
		errs = append(errs, fmt.Errorf("updaters must be positive, got %d", c.Updaters))
	}
	if c.Receivers <= 0 {
		errs = append(errs, fmt.Errorf("receivers must be positive, got %d", c.Receivers))
	}
	if c.Updates < 0 {
		errs = append(errs, fmt.Errorf("updates must not be negative, got %d", c.Updates))
	}

	// Taken values are hidden from other receivers, so only one receiver can
	// be expected to see the last write.
	if c.Take && c.Receivers != 1 {
		errs = append(errs, fmt.Errorf("take requires exactly one receiver, got %d", c.Receivers))
	}
	if len(errs) != 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
