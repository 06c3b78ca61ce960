package stepcounter

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/bus"
	"github.com/stepcounting/sdk-golang/stepcounter/sample"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

type SubscriptionState int

const (
	Idle SubscriptionState = iota
	Active
)

func (s SubscriptionState) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// subscriptionManager owns the one upstream registration with the bridge. Listeners live on the
// bus; the manager only decides when the bridge has to be told to start or stop.
type subscriptionManager struct {
	lock          sync.Mutex
	state         SubscriptionState
	from          time.Time
	registrations uint64
	generation    atomic.Uint64
	bridge        sensor.Bridge
	bus           *bus.Bus
	metrics       Metrics
}

func newSubscriptionManager(bridge sensor.Bridge, eventBus *bus.Bus, metrics Metrics) *subscriptionManager {
	return &subscriptionManager{
		state:   Idle,
		bridge:  bridge,
		bus:     eventBus,
		metrics: metrics,
	}
}

// Start registers with the bridge when Idle and adds listener to the step channel. When already
// Active the existing registration, including its from time, is kept. The lock is not held while
// the bridge registers, so samples the bridge delivers during registration may call back into the
// session.
func (mgr *subscriptionManager) Start(from time.Time, listener Listener) (*Subscription, error) {
	if err := mgr.bridge.Available(sensor.MethodStartStepCounterUpdate); err != nil {
		return nil, err
	}

	log := pfxlog.Logger().WithField("bridge", mgr.bridge.Name())

	mgr.lock.Lock()
	register := mgr.state == Idle
	var generation uint64
	if register {
		generation = mgr.generation.Add(1)
		mgr.state = Active
		mgr.from = from
	} else {
		log.WithField("from", from.UnixMilli()).
			WithField("activeFrom", mgr.from.UnixMilli()).
			Debug("step counter updates already active, adding listener to existing registration")
	}
	mgr.lock.Unlock()

	if register {
		if err := mgr.bridge.StartStepCounterUpdate(from, mgr.sinkFor(generation)); err != nil {
			mgr.lock.Lock()
			if mgr.generation.Load() == generation {
				mgr.generation.Add(1)
				mgr.state = Idle
				mgr.from = time.Time{}
			}
			mgr.lock.Unlock()
			log.WithError(err).Error("unable to start step counter updates")
			return nil, errors.Wrap(err, "unable to start step counter updates")
		}

		mgr.lock.Lock()
		mgr.registrations++
		current := mgr.generation.Load() == generation
		mgr.lock.Unlock()

		mgr.metrics.MarkUpstreamRegistration()
		if current {
			log.WithField("from", from.UnixMilli()).Info("step counter updates started")
		} else {
			log.WithField("from", from.UnixMilli()).Info("step counter updates started and stopped during registration")
		}
	}

	if listener == nil {
		return nil, nil
	}
	return mgr.bus.AddListener(EventName, listener), nil
}

// Stop removes every listener from the bus and cancels the upstream registration. Stopping while
// Idle only clears listeners.
func (mgr *subscriptionManager) Stop() error {
	if err := mgr.bridge.Available(sensor.MethodStopStepCounterUpdate); err != nil {
		return err
	}

	mgr.lock.Lock()
	defer mgr.lock.Unlock()

	removed := mgr.bus.Clear()
	log := pfxlog.Logger().WithField("bridge", mgr.bridge.Name()).WithField("removedListeners", removed)

	if mgr.state == Idle {
		log.Debug("step counter updates not active")
		return nil
	}

	if err := mgr.bridge.StopStepCounterUpdate(); err != nil {
		log.WithError(err).Error("unable to stop step counter updates")
		return errors.Wrap(err, "unable to stop step counter updates")
	}

	mgr.generation.Add(1)
	mgr.state = Idle
	mgr.from = time.Time{}
	log.Info("step counter updates stopped")
	return nil
}

func (mgr *subscriptionManager) sinkFor(generation uint64) sensor.SampleSink {
	return func(raw *sensor.RawSample) {
		if raw == nil {
			return
		}
		if mgr.generation.Load() != generation {
			mgr.metrics.MarkSampleDropped()
			pfxlog.Logger().WithField("generation", generation).Debug("dropping sample from a stopped registration")
			return
		}
		mgr.metrics.MarkSampleReceived()
		mgr.bus.Publish(EventName, sample.Normalize(raw))
	}
}

func (mgr *subscriptionManager) State() SubscriptionState {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	return mgr.state
}

type subscriptionSnapshot struct {
	state         SubscriptionState
	from          time.Time
	registrations uint64
}

func (mgr *subscriptionManager) snapshot() subscriptionSnapshot {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	return subscriptionSnapshot{
		state:         mgr.state,
		from:          mgr.from,
		registrations: mgr.registrations,
	}
}
