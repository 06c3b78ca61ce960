/*
	Copyright 2024 StepCounting Authors

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package stepcounter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stepcounting/sdk-golang/inspect"
	"github.com/stepcounting/sdk-golang/stepcounter/bus"
	"github.com/stepcounting/sdk-golang/stepcounter/config"
	"github.com/stepcounting/sdk-golang/stepcounter/lifecycle"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

// Method names reported by UnlinkedError for operations that are handled by the session rather
// than forwarded to the native module.
const (
	MethodAddListener        = "addListener"
	MethodRemoveListener     = "removeListener"
	MethodRemoveAllListeners = "removeAllListeners"
)

type Session interface {
	GetId() string

	// IsStepCountingSupported requests the activity recognition permission and reports whether
	// the device can count steps. Unsupported devices and denied permissions are returned as data.
	IsStepCountingSupported(ctx context.Context) (CapabilityStatus, error)

	// StartStepCounterUpdate starts the shared upstream registration if it isn't running yet and
	// adds listener to EventName. A nil listener only starts the registration.
	StartStepCounterUpdate(from time.Time, listener Listener) (*Subscription, error)

	// StopStepCounterUpdate stops the upstream registration and removes every listener on
	// EventName, not just the caller's.
	StopStepCounterUpdate() error

	// ListenerCount is the number of listeners on EventName.
	ListenerCount() int

	AddListener(channel string, listener Listener) (*Subscription, error)
	RemoveListener(sub *Subscription) error
	RemoveAllListeners(channel string) error

	StartBackgroundService() error
	StopBackgroundService() error

	// HandleAppStateChange feeds an app state change to the background continuity controller
	HandleAppStateChange(state lifecycle.AppState)

	IsSensorWorking() bool

	Inspect() *inspect.SessionInspectResult
	Metrics() metrics.Registry

	// Close stops updates, removes all listeners, stops the background service if the session
	// started it and releases the app state subscription. Closing twice is a no-op; other
	// operations on a closed session return ErrSessionClosed.
	Close() error
}

var _ Session = (*SessionImpl)(nil)

type SessionImpl struct {
	Id string

	options     *Options
	bridge      sensor.Bridge
	bus         *bus.Bus
	prober      *Prober
	manager     *subscriptionManager
	controller  *lifecycle.Controller
	stopSignals func()

	metricsRegistry metrics.Registry
	metrics         Metrics

	closed atomic.Bool
}

// NewSession builds a session over bridge. A nil bridge is treated as an unlinked native module:
// the session is still returned and every operation on it fails with ErrModuleUnlinked.
func NewSession(bridge sensor.Bridge, options *Options) (Session, error) {
	if bridge == nil {
		bridge = sensor.NewUnlinkedBridge(nil)
	}
	if options == nil {
		options = DefaultOptions()
	}

	session := &SessionImpl{
		Id:          uuid.NewString(),
		options:     options,
		bridge:      bridge,
		stopSignals: func() {},
	}

	log := session.logger()

	sourceId := options.MetricsSourceId
	if sourceId == "" {
		sourceId = session.Id
	}
	session.metricsRegistry = metrics.NewRegistry(sourceId, map[string]string{
		"bridge":   bridge.Name(),
		"platform": bridge.Platform().OS,
	})

	session.bus = bus.New(session.onListenerFailure)
	session.metrics = NewMetrics(session.metricsRegistry,
		func() int64 {
			return int64(session.bus.ListenerCount(EventName))
		},
		func() int64 {
			if session.manager.State() == Active {
				return 1
			}
			return 0
		})
	session.prober = NewProber(bridge, options.ProbeTimeout, session.metrics)
	session.manager = newSubscriptionManager(bridge, session.bus, session.metrics)

	if sensor.IsUnlinked(bridge) {
		log.Warn("native step counter module is not linked, all operations will fail")
	}

	if options.BackgroundService {
		continuation := options.Continuation
		if continuation == nil {
			continuation = lifecycle.ContinuationFuncs{
				StartFunc: bridge.StartBackgroundService,
				StopFunc:  bridge.StopBackgroundService,
			}
		}
		session.controller = lifecycle.NewController(continuation, session.metrics)

		source := options.SignalSource
		if source == nil {
			source = lifecycle.NewSignalSource()
		}
		stop, err := session.controller.Listen(source)
		if err != nil {
			return nil, errors.Wrap(err, "unable to listen for app state changes")
		}
		session.stopSignals = stop
	}

	if options.ProbeOnStart && !sensor.IsUnlinked(bridge) {
		if _, err := session.prober.Probe(context.Background()); err != nil {
			log.WithError(err).Warn("initial capability probe failed")
		}
	}

	log.WithField("bridge", bridge.Name()).Debug("step counter session created")
	return session, nil
}

// NewSessionWithConfig selects the bridge named in cfg from the linked modules and builds a
// session with the options cfg describes.
func NewSessionWithConfig(cfg *config.Config, turbo sensor.TurboModule, legacy sensor.LegacyModule) (Session, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bridge, err := sensor.SelectBridgeByName(cfg.Bridge, turbo, legacy, nil)
	if err != nil {
		return nil, err
	}
	return NewSession(bridge, OptionsFromConfig(cfg))
}

func (session *SessionImpl) logger() *logrus.Entry {
	return pfxlog.Logger().WithField("sessionId", session.Id)
}

func (session *SessionImpl) onListenerFailure(sub *bus.Subscription, err error) {
	session.metrics.MarkListenerFailure()
	if session.options.ListenerErrorHandler != nil {
		session.options.ListenerErrorHandler(sub, err)
	}
}

func (session *SessionImpl) GetId() string {
	return session.Id
}

func (session *SessionImpl) checkLinked(method string) error {
	if session.closed.Load() {
		return ErrSessionClosed
	}
	if sensor.IsUnlinked(session.bridge) {
		return &sensor.UnlinkedError{Method: method}
	}
	return nil
}

func (session *SessionImpl) IsStepCountingSupported(ctx context.Context) (CapabilityStatus, error) {
	if session.closed.Load() {
		return CapabilityStatus{}, ErrSessionClosed
	}
	return session.prober.Probe(ctx)
}

func (session *SessionImpl) StartStepCounterUpdate(from time.Time, listener Listener) (*Subscription, error) {
	if session.closed.Load() {
		return nil, ErrSessionClosed
	}
	return session.manager.Start(from, listener)
}

func (session *SessionImpl) StopStepCounterUpdate() error {
	if session.closed.Load() {
		return ErrSessionClosed
	}
	return session.manager.Stop()
}

func (session *SessionImpl) ListenerCount() int {
	return session.bus.ListenerCount(EventName)
}

func (session *SessionImpl) AddListener(channel string, listener Listener) (*Subscription, error) {
	if err := session.checkLinked(MethodAddListener); err != nil {
		return nil, err
	}
	if listener == nil {
		return nil, errors.New("listener must not be nil")
	}
	return session.bus.AddListener(channel, listener), nil
}

func (session *SessionImpl) RemoveListener(sub *Subscription) error {
	if err := session.checkLinked(MethodRemoveListener); err != nil {
		return err
	}
	session.bus.RemoveListener(sub)
	return nil
}

func (session *SessionImpl) RemoveAllListeners(channel string) error {
	if err := session.checkLinked(MethodRemoveAllListeners); err != nil {
		return err
	}
	session.bus.RemoveAllListeners(channel)
	return nil
}

// StartBackgroundService calls the bridge directly. The continuity controller does not see it.
func (session *SessionImpl) StartBackgroundService() error {
	if session.closed.Load() {
		return ErrSessionClosed
	}
	return session.bridge.StartBackgroundService()
}

// StopBackgroundService calls the bridge directly. The continuity controller does not see it.
func (session *SessionImpl) StopBackgroundService() error {
	if session.closed.Load() {
		return ErrSessionClosed
	}
	return session.bridge.StopBackgroundService()
}

func (session *SessionImpl) HandleAppStateChange(state lifecycle.AppState) {
	if session.controller == nil {
		session.logger().WithField("appState", state).Debug("background service disabled, ignoring app state change")
		return
	}
	session.controller.HandleAppStateChange(state)
}

func (session *SessionImpl) IsSensorWorking() bool {
	return session.ListenerCount() > 0
}

func (session *SessionImpl) Metrics() metrics.Registry {
	return session.metricsRegistry
}

func (session *SessionImpl) Close() error {
	if !session.closed.CompareAndSwap(false, true) {
		return nil
	}

	log := session.logger()
	session.stopSignals()

	var err error
	if session.manager.State() == Active {
		if err = session.manager.Stop(); err != nil {
			log.WithError(err).Error("unable to stop step counter updates while closing session")
		}
	}

	session.bus.Clear()

	if session.controller != nil {
		session.controller.Shutdown()
	}

	log.Debug("step counter session closed")
	return err
}
