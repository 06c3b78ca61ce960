// Package sample holds the canonical step sample delivered to listeners and the normalizer
// that produces it from raw native payloads.
package sample

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

type CounterType string

const (
	CounterTypeHardware      CounterType = "STEP_COUNTER"
	CounterTypeAccelerometer CounterType = "ACCELEROMETER"
	CounterTypePedometer     CounterType = "CMPedometer"
)

// IsKnown reports whether the tag is one of the counter types native modules are known to emit.
// Unknown tags are still delivered unchanged.
func (self CounterType) IsKnown() bool {
	switch self {
	case CounterTypeHardware, CounterTypeAccelerometer, CounterTypePedometer:
		return true
	}
	return false
}

// ParseCounterType maps a native counter tag to a CounterType. Tags are matched case-insensitively
// against the known types; anything else is kept verbatim.
func ParseCounterType(tag string) CounterType {
	for _, known := range []CounterType{CounterTypeHardware, CounterTypeAccelerometer, CounterTypePedometer} {
		if strings.EqualFold(string(known), tag) {
			return known
		}
	}
	return CounterType(tag)
}

// StepSample is a normalized step measurement over [StartTime, EndTime].
type StepSample struct {
	CounterType     CounterType `json:"counterType"`
	Steps           int64       `json:"steps"`
	StartTime       time.Time   `json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	DistanceMeters  float64     `json:"distanceMeters"`
	FloorsAscended  *int64      `json:"floorsAscended,omitempty"`
	FloorsDescended *int64      `json:"floorsDescended,omitempty"`
}

// Validate checks the sample invariants. Normalize never calls it; listeners that need clean
// data decide what to do with invalid samples.
func (self *StepSample) Validate() error {
	if self.Steps < 0 {
		return errors.Errorf("steps must not be negative, got %d", self.Steps)
	}
	if self.EndTime.Before(self.StartTime) {
		return errors.Errorf("sample ends at %v before it starts at %v", self.EndTime, self.StartTime)
	}
	if self.DistanceMeters < 0 {
		return errors.Errorf("distance must not be negative, got %v", self.DistanceMeters)
	}
	if self.FloorsAscended != nil && *self.FloorsAscended < 0 {
		return errors.Errorf("floors ascended must not be negative, got %d", *self.FloorsAscended)
	}
	if self.FloorsDescended != nil && *self.FloorsDescended < 0 {
		return errors.Errorf("floors descended must not be negative, got %d", *self.FloorsDescended)
	}
	return nil
}

// exactTenths is the magnitude from which a float64 has no digits below 0.1 left to round.
const exactTenths = float64(1<<53) / 10

// RoundDistance rounds to one decimal place, halves away from zero for non-negative input.
// Values too large to carry tenths are returned unchanged.
func RoundDistance(distance float64) float64 {
	if math.Abs(distance) >= exactTenths || math.IsNaN(distance) {
		return distance
	}
	return math.Floor(distance*10+0.5) / 10
}

// Normalize converts a raw payload into a StepSample. Values are coerced, not validated.
func Normalize(raw *sensor.RawSample) *StepSample {
	result := &StepSample{
		CounterType:    ParseCounterType(raw.CounterType),
		Steps:          raw.Steps,
		StartTime:      time.UnixMilli(raw.StartDate),
		EndTime:        time.UnixMilli(raw.EndDate),
		DistanceMeters: RoundDistance(raw.Distance),
	}

	if raw.FloorsAscended != nil {
		floors := *raw.FloorsAscended
		result.FloorsAscended = &floors
	}
	if raw.FloorsDescended != nil {
		floors := *raw.FloorsDescended
		result.FloorsDescended = &floors
	}

	return result
}

// NormalizePayload decodes and normalizes a map payload in one step.
func NormalizePayload(payload map[string]interface{}) (*StepSample, error) {
	raw, err := sensor.DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}
