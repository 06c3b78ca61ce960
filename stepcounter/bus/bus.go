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

// Package bus fans step samples out to any number of listeners, grouped by channel name.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/uuid"
	"github.com/kataras/go-events"
	"github.com/michaelquigley/pfxlog"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/sample"
)

type Listener func(s *sample.StepSample)

// ErrorHandler is told about every listener that panicked during delivery.
type ErrorHandler func(sub *Subscription, err error)

// Subscription is the handle returned by AddListener.
type Subscription struct {
	id       string
	channel  string
	listener Listener
	active   atomic.Bool
	bus      *Bus
}

func (self *Subscription) Id() string {
	return self.id
}

func (self *Subscription) Channel() string {
	return self.channel
}

func (self *Subscription) IsActive() bool {
	return self.active.Load()
}

// Remove detaches the subscription from its bus. Removing twice is a no-op.
func (self *Subscription) Remove() bool {
	return self.bus.RemoveListener(self)
}

type dispatcher struct {
	emitter events.EventEmmiter
}

// Bus delivers each published sample synchronously, in registration order, on the publishing
// goroutine. The listener registry is only changed by explicit add/remove/clear calls. Each
// change publishes a fresh dispatcher, so a change made while a sample is being delivered,
// even by a listener, applies from the next publish on. Removed subscriptions are skipped
// immediately.
type Bus struct {
	mu           sync.Mutex
	registry     map[string]*linkedhashmap.Map // channel -> subscription id -> *Subscription
	index        cmap.ConcurrentMap[string, *Subscription]
	dispatch     atomic.Pointer[dispatcher]
	errorHandler ErrorHandler
}

func New(errorHandler ErrorHandler) *Bus {
	result := &Bus{
		registry:     map[string]*linkedhashmap.Map{},
		index:        cmap.New[*Subscription](),
		errorHandler: errorHandler,
	}
	result.dispatch.Store(&dispatcher{emitter: events.New()})
	return result
}

func (self *Bus) AddListener(channel string, listener Listener) *Subscription {
	sub := &Subscription{
		id:       uuid.NewString(),
		channel:  channel,
		listener: listener,
		bus:      self,
	}
	sub.active.Store(true)

	self.mu.Lock()
	defer self.mu.Unlock()

	entries, found := self.registry[channel]
	if !found {
		entries = linkedhashmap.New()
		self.registry[channel] = entries
	}
	entries.Put(sub.id, sub)
	self.index.Set(sub.id, sub)
	self.rebuild()

	return sub
}

// RemoveListener removes a single subscription. It returns false if the subscription was
// already removed.
func (self *Bus) RemoveListener(sub *Subscription) bool {
	if sub == nil || sub.bus != self || !sub.active.CompareAndSwap(true, false) {
		return false
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	if entries, found := self.registry[sub.channel]; found {
		entries.Remove(sub.id)
		if entries.Empty() {
			delete(self.registry, sub.channel)
		}
	}
	self.index.Remove(sub.id)
	self.rebuild()

	return true
}

// RemoveAllListeners removes every subscription on channel and returns how many were removed.
func (self *Bus) RemoveAllListeners(channel string) int {
	self.mu.Lock()
	defer self.mu.Unlock()

	entries, found := self.registry[channel]
	if !found {
		return 0
	}

	removed := self.deactivate(entries)
	delete(self.registry, channel)
	self.rebuild()

	return removed
}

// Clear removes every subscription on every channel and returns how many were removed.
func (self *Bus) Clear() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	removed := 0
	for channel, entries := range self.registry {
		removed += self.deactivate(entries)
		delete(self.registry, channel)
	}
	self.rebuild()
	return removed
}

func (self *Bus) deactivate(entries *linkedhashmap.Map) int {
	for _, val := range entries.Values() {
		sub := val.(*Subscription)
		sub.active.Store(false)
		self.index.Remove(sub.id)
	}
	return entries.Size()
}

func (self *Bus) ListenerCount(channel string) int {
	self.mu.Lock()
	defer self.mu.Unlock()

	if entries, found := self.registry[channel]; found {
		return entries.Size()
	}
	return 0
}

// Subscription looks up an active subscription by id.
func (self *Bus) Subscription(id string) (*Subscription, bool) {
	return self.index.Get(id)
}

// Subscriptions returns the active subscriptions on channel in registration order.
func (self *Bus) Subscriptions(channel string) []*Subscription {
	self.mu.Lock()
	defer self.mu.Unlock()

	var result []*Subscription
	if entries, found := self.registry[channel]; found {
		for _, val := range entries.Values() {
			result = append(result, val.(*Subscription))
		}
	}
	return result
}

// Publish delivers s to every listener on channel. A panicking listener is reported and does not
// stop delivery to the listeners after it.
func (self *Bus) Publish(channel string, s *sample.StepSample) {
	self.dispatch.Load().emitter.Emit(events.EventName(channel), s)
}

// rebuild must be called with mu held
func (self *Bus) rebuild() {
	emitter := events.New()
	for channel, entries := range self.registry {
		for _, val := range entries.Values() {
			emitter.AddListener(events.EventName(channel), self.wrap(val.(*Subscription)))
		}
	}
	self.dispatch.Store(&dispatcher{emitter: emitter})
}

func (self *Bus) wrap(sub *Subscription) events.Listener {
	return func(payload ...interface{}) {
		if !sub.active.Load() || len(payload) == 0 {
			return
		}
		s, _ := payload[0].(*sample.StepSample)
		self.deliver(sub, s)
	}
}

func (self *Bus) deliver(sub *Subscription, s *sample.StepSample) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("listener [%s] on channel [%s] panicked: %v", sub.id, sub.channel, r)
			pfxlog.Logger().WithField("subscriptionId", sub.id).WithError(err).Error("step sample delivery failed")
			if self.errorHandler != nil {
				self.errorHandler(sub, err)
			}
		}
	}()

	sub.listener(s)
}
