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

package sensor

import (
	"context"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

const BridgeLegacy = "legacy"

var _ Bridge = (*LegacyBridge)(nil)

// LegacyBridge adapts a LegacyModule, which hands over probe answers and step payloads as
// serialized JSON.
type LegacyBridge struct {
	module   LegacyModule
	platform PlatformProvider
}

func NewLegacyBridge(module LegacyModule, platform PlatformProvider) *LegacyBridge {
	return &LegacyBridge{
		module:   module,
		platform: platformOrDefault(platform),
	}
}

func (self *LegacyBridge) Name() string {
	return BridgeLegacy
}

func (self *LegacyBridge) Platform() PlatformInfo {
	return self.platform.GetPlatformInfo()
}

func (self *LegacyBridge) Available(method string) error {
	switch method {
	case MethodIsStepCountingSupported:
		return nil
	case MethodStartStepCounterUpdate, MethodStopStepCounterUpdate:
		if _, ok := self.module.(LegacyUpdateModule); ok {
			return nil
		}
	case MethodStartBackgroundService, MethodStopBackgroundService:
		if _, ok := self.module.(BackgroundModule); ok {
			return nil
		}
	}
	return self.unavailable(method)
}

func (self *LegacyBridge) unavailable(method string) error {
	return &UnavailableError{
		Module:   ModuleName,
		Method:   method,
		Platform: self.Platform().OS,
	}
}

func (self *LegacyBridge) IsStepCountingSupported(ctx context.Context) (CapabilityStatus, error) {
	result, err := self.module.IsStepCountingSupported(ctx)
	if err != nil {
		return CapabilityStatus{}, err
	}

	container, err := gabs.ParseJSON(result)
	if err != nil {
		return CapabilityStatus{}, errors.Wrap(err, "unable to parse capability response")
	}

	supported, _ := container.Path(KeySupported).Data().(bool)
	granted, _ := container.Path(KeyGranted).Data().(bool)

	return CapabilityStatus{
		Supported: supported,
		Granted:   granted,
	}, nil
}

// ParseLegacyPayload parses a JSON step counter event body.
func ParseLegacyPayload(payload []byte) (*RawSample, error) {
	container, err := gabs.ParseJSON(payload)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse step counter payload")
	}

	fields, ok := container.Data().(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("step counter payload is not an object: %s", container.String())
	}
	return DecodePayload(fields)
}

func (self *LegacyBridge) StartStepCounterUpdate(from time.Time, sink SampleSink) error {
	updater, ok := self.module.(LegacyUpdateModule)
	if !ok {
		return self.unavailable(MethodStartStepCounterUpdate)
	}

	return updater.StartStepCounterUpdate(from.UnixMilli(), func(payload []byte) {
		raw, err := ParseLegacyPayload(payload)
		if err != nil {
			pfxlog.Logger().WithError(err).WithField("bridge", BridgeLegacy).Error("dropping step counter payload")
			return
		}
		sink(raw)
	})
}

func (self *LegacyBridge) StopStepCounterUpdate() error {
	updater, ok := self.module.(LegacyUpdateModule)
	if !ok {
		return self.unavailable(MethodStopStepCounterUpdate)
	}
	return updater.StopStepCounterUpdate()
}

func (self *LegacyBridge) StartBackgroundService() error {
	background, ok := self.module.(BackgroundModule)
	if !ok {
		return self.unavailable(MethodStartBackgroundService)
	}
	return background.StartBackgroundService()
}

func (self *LegacyBridge) StopBackgroundService() error {
	background, ok := self.module.(BackgroundModule)
	if !ok {
		return self.unavailable(MethodStopBackgroundService)
	}
	return background.StopBackgroundService()
}
