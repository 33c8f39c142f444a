package session

import (
	"time"

	"github.com/mcuadros/go-defaults"
)

// Options tune timing and transport behaviour. Zero fields take the defaults.
type Options struct {
	PollInterval    time.Duration `default:"25ms"`
	WatchdogTimeout time.Duration `default:"4500ms"`
	ConnectTimeout  time.Duration `default:"10s"`
	// WriteTimeout bounds a single frame write; the next frame waits behind it.
	WriteTimeout         time.Duration `default:"1s"`
	WriteWithoutResponse bool          `default:"false"`
	TelemetryBuffer      int           `default:"64"`
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() Options {
	var o Options
	defaults.SetDefaults(&o)
	return o
}

func (o Options) withDefaults() Options {
	defaults.SetDefaults(&o)
	return o
}
