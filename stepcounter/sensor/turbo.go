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

	"github.com/michaelquigley/pfxlog"
)

const BridgeTurbo = "turbo"

var _ Bridge = (*TurboBridge)(nil)

// TurboBridge adapts a TurboModule. Payloads arrive as maps and are decoded with DecodePayload.
type TurboBridge struct {
	module   TurboModule
	platform PlatformProvider
}

func NewTurboBridge(module TurboModule, platform PlatformProvider) *TurboBridge {
	return &TurboBridge{
		module:   module,
		platform: platformOrDefault(platform),
	}
}

func (self *TurboBridge) Name() string {
	return BridgeTurbo
}

func (self *TurboBridge) Platform() PlatformInfo {
	return self.platform.GetPlatformInfo()
}

func (self *TurboBridge) Available(method string) error {
	switch method {
	case MethodIsStepCountingSupported:
		return nil
	case MethodStartStepCounterUpdate, MethodStopStepCounterUpdate:
		if _, ok := self.module.(TurboUpdateModule); ok {
			return nil
		}
	case MethodStartBackgroundService, MethodStopBackgroundService:
		if _, ok := self.module.(BackgroundModule); ok {
			return nil
		}
	}
	return self.unavailable(method)
}

func (self *TurboBridge) unavailable(method string) error {
	return &UnavailableError{
		Module:   ModuleName,
		Method:   method,
		Platform: self.Platform().OS,
	}
}

func (self *TurboBridge) IsStepCountingSupported(ctx context.Context) (CapabilityStatus, error) {
	result, err := self.module.IsStepCountingSupported(ctx)
	if err != nil {
		return CapabilityStatus{}, err
	}
	return CapabilityStatus{
		Supported: result[KeySupported],
		Granted:   result[KeyGranted],
	}, nil
}

func (self *TurboBridge) StartStepCounterUpdate(from time.Time, sink SampleSink) error {
	updater, ok := self.module.(TurboUpdateModule)
	if !ok {
		return self.unavailable(MethodStartStepCounterUpdate)
	}

	return updater.StartStepCounterUpdate(from.UnixMilli(), func(payload map[string]interface{}) {
		raw, err := DecodePayload(payload)
		if err != nil {
			pfxlog.Logger().WithError(err).WithField("bridge", BridgeTurbo).Error("dropping step counter payload")
			return
		}
		sink(raw)
	})
}

func (self *TurboBridge) StopStepCounterUpdate() error {
	updater, ok := self.module.(TurboUpdateModule)
	if !ok {
		return self.unavailable(MethodStopStepCounterUpdate)
	}
	return updater.StopStepCounterUpdate()
}

func (self *TurboBridge) StartBackgroundService() error {
	background, ok := self.module.(BackgroundModule)
	if !ok {
		return self.unavailable(MethodStartBackgroundService)
	}
	return background.StartBackgroundService()
}

func (self *TurboBridge) StopBackgroundService() error {
	background, ok := self.module.(BackgroundModule)
	if !ok {
		return self.unavailable(MethodStopBackgroundService)
	}
	return background.StopBackgroundService()
}
