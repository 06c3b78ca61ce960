package stepcounter

import (
	"time"

	"github.com/openziti/metrics"
	"github.com/stepcounting/sdk-golang/stepcounter/lifecycle"
)

type Metrics interface {
	lifecycle.Metrics

	MarkSampleReceived()
	MarkSampleDropped()
	MarkListenerFailure()
	MarkUpstreamRegistration()

	ProbeCompleted(duration time.Duration)
}

type metricsImpl struct {
	samplesReceived       metrics.Meter
	samplesDropped        metrics.Meter
	listenerFailures      metrics.Meter
	upstreamRegistrations metrics.Meter

	backgroundStarts        metrics.Meter
	backgroundStartFailures metrics.Meter
	backgroundStops         metrics.Meter

	probeTimer metrics.Timer
}

func (self *metricsImpl) MarkSampleReceived() {
	self.samplesReceived.Mark(1)
}

func (self *metricsImpl) MarkSampleDropped() {
	self.samplesDropped.Mark(1)
}

func (self *metricsImpl) MarkListenerFailure() {
	self.listenerFailures.Mark(1)
}

func (self *metricsImpl) MarkUpstreamRegistration() {
	self.upstreamRegistrations.Mark(1)
}

func (self *metricsImpl) MarkContinuationStarted() {
	self.backgroundStarts.Mark(1)
}

func (self *metricsImpl) MarkContinuationStartFailed() {
	self.backgroundStartFailures.Mark(1)
}

func (self *metricsImpl) MarkContinuationStopped() {
	self.backgroundStops.Mark(1)
}

func (self *metricsImpl) ProbeCompleted(duration time.Duration) {
	self.probeTimer.Update(duration)
}

// NewMetrics registers the session meters and timers on registry. The gauges are read from
// listeners and active on every poll.
func NewMetrics(registry metrics.Registry, listeners func() int64, active func() int64) Metrics {
	impl := &metricsImpl{
		samplesReceived:         registry.Meter("stepcounter.samples.received"),
		samplesDropped:          registry.Meter("stepcounter.samples.dropped"),
		listenerFailures:        registry.Meter("stepcounter.listener.failures"),
		upstreamRegistrations:   registry.Meter("stepcounter.upstream.registrations"),
		backgroundStarts:        registry.Meter("stepcounter.background.starts"),
		backgroundStartFailures: registry.Meter("stepcounter.background.start_failures"),
		backgroundStops:         registry.Meter("stepcounter.background.stops"),
		probeTimer:              registry.Timer("stepcounter.probe.time"),
	}

	if listeners != nil {
		registry.FuncGauge("stepcounter.listeners", listeners)
	}

	if active != nil {
		registry.FuncGauge("stepcounter.subscription.active", active)
	}

	return impl
}
