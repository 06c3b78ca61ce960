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

// Package stepcounter is a cross-platform step sensor session: capability probing, a single shared
// upstream sample registration fanned out to any number of listeners, and background continuity
// driven by app state changes.
package stepcounter

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/bus"
	"github.com/stepcounting/sdk-golang/stepcounter/sample"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

const (
	NAME    = sensor.ModuleName
	VERSION = "1.0.0"

	EventName = sensor.EventName
)

type CapabilityStatus = sensor.CapabilityStatus
type StepSample = sample.StepSample
type Listener = bus.Listener
type Subscription = bus.Subscription

var ErrModuleUnlinked = sensor.ErrModuleUnlinked

var ErrSessionClosed = errors.New("step counter session is closed")

// ProbeError is a failure talking to the sensor provider while probing capability. An unsupported
// sensor or a denied permission is never a ProbeError.
type ProbeError struct {
	cause error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("step counting capability probe failed: %v", e.cause)
}

func (e *ProbeError) Unwrap() error {
	return e.cause
}
