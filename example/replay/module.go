package main

import (
	"context"
	"sync"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

var _ sensor.TurboModule = (*scriptedModule)(nil)
var _ sensor.TurboUpdateModule = (*scriptedModule)(nil)
var _ sensor.BackgroundModule = (*scriptedModule)(nil)

// scriptedModule stands in for the native module. Samples read from a replay file are pushed
// through emit exactly as a device would deliver them.
type scriptedModule struct {
	lock      sync.Mutex
	supported bool
	granted   bool
	from      int64
	sink      func(payload map[string]interface{})
}

func (self *scriptedModule) IsStepCountingSupported(context.Context) (map[string]bool, error) {
	return map[string]bool{
		sensor.KeySupported: self.supported,
		sensor.KeyGranted:   self.granted,
	}, nil
}

func (self *scriptedModule) StartStepCounterUpdate(from int64, emit func(payload map[string]interface{})) error {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.from = from
	self.sink = emit
	pfxlog.Logger().WithField("from", from).Info("module: step counter updates registered")
	return nil
}

func (self *scriptedModule) StopStepCounterUpdate() error {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.sink = nil
	pfxlog.Logger().Info("module: step counter updates unregistered")
	return nil
}

func (self *scriptedModule) StartBackgroundService() error {
	pfxlog.Logger().Info("module: background service started")
	return nil
}

func (self *scriptedModule) StopBackgroundService() error {
	pfxlog.Logger().Info("module: background service stopped")
	return nil
}

func (self *scriptedModule) emit(payload map[string]interface{}) error {
	self.lock.Lock()
	sink := self.sink
	self.lock.Unlock()

	if sink == nil {
		return errors.New("no step counter registration is active")
	}
	sink(payload)
	return nil
}
