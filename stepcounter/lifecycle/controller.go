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

// Package lifecycle keeps step sampling alive while the host application is in the background.
package lifecycle

import (
	"sync"

	"github.com/michaelquigley/pfxlog"
	"github.com/sirupsen/logrus"
)

type BackgroundState int

const (
	Foreground BackgroundState = iota
	Background
)

func (s BackgroundState) String() string {
	switch s {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	}
	return "unknown"
}

// ContinuationService is the platform mechanism that keeps the process sampling while it is not
// in the foreground, e.g. an Android foreground service.
type ContinuationService interface {
	Start() error
	Stop() error
}

// ContinuationFuncs adapts a pair of functions to a ContinuationService.
type ContinuationFuncs struct {
	StartFunc func() error
	StopFunc  func() error
}

func (self ContinuationFuncs) Start() error {
	if self.StartFunc == nil {
		return nil
	}
	return self.StartFunc()
}

func (self ContinuationFuncs) Stop() error {
	if self.StopFunc == nil {
		return nil
	}
	return self.StopFunc()
}

var _ ContinuationService = NoOpContinuation{}

type NoOpContinuation struct{}

func (NoOpContinuation) Start() error { return nil }
func (NoOpContinuation) Stop() error  { return nil }

type Metrics interface {
	MarkContinuationStarted()
	MarkContinuationStartFailed()
	MarkContinuationStopped()
}

type noOpMetrics struct{}

func (noOpMetrics) MarkContinuationStarted()     {}
func (noOpMetrics) MarkContinuationStartFailed() {}
func (noOpMetrics) MarkContinuationStopped()     {}

// Snapshot is a point in time view of a Controller.
type Snapshot struct {
	State    BackgroundState
	Running  bool
	Starts   uint64
	Failures uint64
	Stops    uint64
}

// Controller is the Foreground/Background state machine. Only a background signal received in
// Foreground starts the continuation service and only an active signal received in Background
// stops it, so repeated signals never start or stop it twice. A failed start leaves the state in
// Background so the next active signal still issues a stop.
type Controller struct {
	lock         sync.Mutex
	state        BackgroundState
	running      bool
	starts       uint64
	failures     uint64
	stops        uint64
	continuation ContinuationService
	metrics      Metrics
	closed       bool
}

func NewController(continuation ContinuationService, metrics Metrics) *Controller {
	if continuation == nil {
		continuation = NoOpContinuation{}
	}
	if metrics == nil {
		metrics = noOpMetrics{}
	}
	return &Controller{
		state:        Foreground,
		continuation: continuation,
		metrics:      metrics,
	}
}

func (self *Controller) HandleAppStateChange(state AppState) {
	self.lock.Lock()
	defer self.lock.Unlock()

	log := pfxlog.Logger().WithField("appState", state).WithField("backgroundState", self.state.String())

	if self.closed {
		log.Debug("ignoring app state change, controller is shut down")
		return
	}

	switch state {
	case AppStateBackground:
		if self.state == Background {
			log.Debug("already in background, continuation service left as is")
			return
		}
		self.state = Background
		self.starts++
		if err := self.continuation.Start(); err != nil {
			self.failures++
			self.metrics.MarkContinuationStartFailed()
			log.WithError(err).Error("unable to start background continuation service, sampling may be suspended")
			return
		}
		self.running = true
		self.metrics.MarkContinuationStarted()
		log.Debug("background continuation service started")

	case AppStateActive:
		if self.state == Foreground {
			return
		}
		self.state = Foreground
		self.stop(log)

	default:
		log.Debug("app state change not handled")
	}
}

// stop must be called with lock held
func (self *Controller) stop(log *logrus.Entry) {
	self.stops++
	if err := self.continuation.Stop(); err != nil {
		log.WithError(err).Error("unable to stop background continuation service")
		return
	}
	self.running = false
	self.metrics.MarkContinuationStopped()
	log.Debug("background continuation service stopped")
}

func (self *Controller) State() BackgroundState {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.state
}

func (self *Controller) Snapshot() Snapshot {
	self.lock.Lock()
	defer self.lock.Unlock()
	return Snapshot{
		State:    self.state,
		Running:  self.running,
		Starts:   self.starts,
		Failures: self.failures,
		Stops:    self.stops,
	}
}

// Shutdown stops the continuation service if it was started and ignores all later signals.
func (self *Controller) Shutdown() {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.closed {
		return
	}
	self.closed = true

	if self.state == Background {
		self.state = Foreground
		self.stop(pfxlog.Logger().WithField("reason", "shutdown"))
	}
}

// Listen subscribes the controller to source until the returned stop function is called.
func (self *Controller) Listen(source SignalSource) (stop func(), err error) {
	if source == nil {
		return func() {}, nil
	}
	return source.ListenForAppState(self.HandleAppStateChange)
}
