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

// Package sensor defines the boundary between the step counter session and the native
// sensor module. A Bridge is chosen once when a session is built: the typed TurboModule
// surface, the legacy JSON surface, or an UnlinkedBridge when no native module is present.
package sensor

import (
	"context"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	ModuleName = "StepCounter"
	EventName  = "StepCounter.stepCounterUpdate"
)

// wire method names, used in error reporting
const (
	MethodIsStepCountingSupported = "isStepCountingSupported"
	MethodStartStepCounterUpdate  = "startStepCounterUpdate"
	MethodStopStepCounterUpdate   = "stopStepCounterUpdate"
	MethodStartBackgroundService  = "startBackgroundService"
	MethodStopBackgroundService   = "stopBackgroundService"
)

const (
	KeySupported = "supported"
	KeyGranted   = "granted"
)

// PermissionActivityRecognition is the single runtime permission requested by a capability probe.
const PermissionActivityRecognition = "android.permission.ACTIVITY_RECOGNITION"

// CapabilityStatus is the result of one capability probe. Both fields always come from the same
// native answer.
type CapabilityStatus struct {
	Supported bool `json:"supported"`
	Granted   bool `json:"granted"`
}

// RawSample is a step counter payload exactly as the native module reports it. Dates are unix
// epoch milliseconds, floors are only present on platforms that report them.
type RawSample struct {
	CounterType     string  `json:"counterType" mapstructure:"counterType"`
	Steps           int64   `json:"steps" mapstructure:"steps"`
	StartDate       int64   `json:"startDate" mapstructure:"startDate"`
	EndDate         int64   `json:"endDate" mapstructure:"endDate"`
	Distance        float64 `json:"distance" mapstructure:"distance"`
	FloorsAscended  *int64  `json:"floorsAscended,omitempty" mapstructure:"floorsAscended"`
	FloorsDescended *int64  `json:"floorsDescended,omitempty" mapstructure:"floorsDescended"`
}

// SampleSink receives raw samples on whatever goroutine the native module delivers them.
type SampleSink func(raw *RawSample)

// Bridge is the session facing view of the native step counter module.
type Bridge interface {
	// Name identifies the bridge strategy, e.g. turbo, legacy or unlinked.
	Name() string
	Platform() PlatformInfo

	// Available reports whether the named wire method can be called on this bridge. It returns
	// nil, an *UnlinkedError or an *UnavailableError and never has side effects.
	Available(method string) error

	IsStepCountingSupported(ctx context.Context) (CapabilityStatus, error)
	StartStepCounterUpdate(from time.Time, sink SampleSink) error
	StopStepCounterUpdate() error
	StartBackgroundService() error
	StopBackgroundService() error
}

// TurboModule is the typed native module. The probe requests the activity recognition
// permission before it answers, and answers with the KeySupported and KeyGranted flags. A call
// that never reached the module should fail with an error wrapping ErrNotDelivered.
type TurboModule interface {
	IsStepCountingSupported(ctx context.Context) (map[string]bool, error)
}

// TurboUpdateModule is implemented by turbo modules that can stream step updates.
type TurboUpdateModule interface {
	StartStepCounterUpdate(from int64, emit func(payload map[string]interface{})) error
	StopStepCounterUpdate() error
}

// LegacyModule is the bridged native module which answers with JSON documents.
type LegacyModule interface {
	IsStepCountingSupported(ctx context.Context) ([]byte, error)
}

// LegacyUpdateModule is implemented by legacy modules that can stream step updates.
type LegacyUpdateModule interface {
	StartStepCounterUpdate(from int64, emit func(payload []byte)) error
	StopStepCounterUpdate() error
}

// BackgroundModule is implemented by modules, turbo or legacy, that can keep the process
// sampling while it is not in the foreground.
type BackgroundModule interface {
	StartBackgroundService() error
	StopBackgroundService() error
}

// DecodePayload coerces a loosely typed native payload into a RawSample. Numbers may arrive as
// any numeric kind, or as strings from some bridges.
func DecodePayload(payload map[string]interface{}) (*RawSample, error) {
	if payload == nil {
		return nil, errors.New("step counter payload is empty")
	}

	raw := &RawSample{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           raw,
	})
	if err != nil {
		return nil, err
	}

	if err = decoder.Decode(payload); err != nil {
		return nil, errors.Wrap(err, "unable to decode step counter payload")
	}

	return raw, nil
}
