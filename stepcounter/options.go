package stepcounter

import (
	"time"

	"github.com/stepcounting/sdk-golang/stepcounter/bus"
	"github.com/stepcounting/sdk-golang/stepcounter/config"
	"github.com/stepcounting/sdk-golang/stepcounter/lifecycle"
)

type Options struct {
	// ProbeTimeout bounds how long a probe that was not delivered to the native module is retried.
	// It never bounds the wait for a permission answer. Zero or less disables retries.
	ProbeTimeout time.Duration

	// ProbeOnStart runs one capability probe while the session is constructed. A probe failure is
	// logged, not returned.
	ProbeOnStart bool

	// BackgroundService enables the continuity controller. When false app state changes are ignored.
	BackgroundService bool

	// SignalSource feeds app state changes to the continuity controller. Defaults to
	// lifecycle.NewSignalSource().
	SignalSource lifecycle.SignalSource

	// Continuation is started and stopped by the continuity controller. Defaults to the bridge's
	// background service methods.
	Continuation lifecycle.ContinuationService

	// ListenerErrorHandler is told about every listener that panics while a sample is delivered.
	ListenerErrorHandler bus.ErrorHandler

	// Notification identifies the persistent notification the continuation service shows. It is
	// reported by Inspect; rendering it is up to the ContinuationService.
	Notification lifecycle.Notification

	// MetricsSourceId names the metrics registry. Defaults to the session id.
	MetricsSourceId string
}

func DefaultOptions() *Options {
	return &Options{
		ProbeTimeout:      config.DefaultProbeTimeout,
		BackgroundService: true,
		Notification:      lifecycle.DefaultNotification,
	}
}

// OptionsFromConfig converts a loaded config into session options. Collaborators that cannot be
// expressed in a file (signal source, continuation, handlers) are left at their defaults.
func OptionsFromConfig(cfg *config.Config) *Options {
	options := DefaultOptions()
	if cfg == nil {
		return options
	}
	options.ProbeTimeout = cfg.ProbeTimeout.Duration()
	options.ProbeOnStart = cfg.ProbeOnStart
	options.BackgroundService = cfg.BackgroundServiceEnabled()
	options.MetricsSourceId = cfg.MetricsSourceId
	return options
}
