package sensor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type probeOnlyTurbo struct {
	result map[string]bool
	err    error
}

func (self *probeOnlyTurbo) IsStepCountingSupported(context.Context) (map[string]bool, error) {
	return self.result, self.err
}

type streamingTurbo struct {
	probeOnlyTurbo
	from int64
	emit func(map[string]interface{})
}

func (self *streamingTurbo) StartStepCounterUpdate(from int64, emit func(payload map[string]interface{})) error {
	self.from = from
	self.emit = emit
	return nil
}

func (self *streamingTurbo) StopStepCounterUpdate() error {
	self.emit = nil
	return nil
}

type streamingLegacy struct {
	probe []byte
	emit  func([]byte)
}

func (self *streamingLegacy) IsStepCountingSupported(context.Context) ([]byte, error) {
	return self.probe, nil
}

func (self *streamingLegacy) StartStepCounterUpdate(_ int64, emit func(payload []byte)) error {
	self.emit = emit
	return nil
}

func (self *streamingLegacy) StopStepCounterUpdate() error {
	return nil
}

func (self *streamingLegacy) StartBackgroundService() error { return nil }
func (self *streamingLegacy) StopBackgroundService() error  { return nil }

func Test_DecodePayload(t *testing.T) {
	t.Run("numbers of any kind are coerced", func(t *testing.T) {
		req := require.New(t)
		raw, err := DecodePayload(map[string]interface{}{
			"counterType": "STEP_COUNTER",
			"steps":       float64(120),
			"startDate":   float64(1700000000000),
			"endDate":     "1700003600000",
			"distance":    87.456,
		})
		req.NoError(err)
		req.Equal("STEP_COUNTER", raw.CounterType)
		req.Equal(int64(120), raw.Steps)
		req.Equal(int64(1700000000000), raw.StartDate)
		req.Equal(int64(1700003600000), raw.EndDate)
		req.Equal(87.456, raw.Distance)
		req.Nil(raw.FloorsAscended)
		req.Nil(raw.FloorsDescended)
	})

	t.Run("floors are kept when reported", func(t *testing.T) {
		req := require.New(t)
		raw, err := DecodePayload(map[string]interface{}{
			"counterType":     "CMPedometer",
			"floorsAscended":  3,
			"floorsDescended": 0,
		})
		req.NoError(err)
		req.NotNil(raw.FloorsAscended)
		req.Equal(int64(3), *raw.FloorsAscended)
		req.NotNil(raw.FloorsDescended)
		req.Equal(int64(0), *raw.FloorsDescended)
	})

	t.Run("negative values pass through", func(t *testing.T) {
		req := require.New(t)
		raw, err := DecodePayload(map[string]interface{}{"steps": -5, "distance": -1.5})
		req.NoError(err)
		req.Equal(int64(-5), raw.Steps)
		req.Equal(-1.5, raw.Distance)
	})

	t.Run("nil payload is rejected", func(t *testing.T) {
		_, err := DecodePayload(nil)
		require.Error(t, err)
	})
}

func Test_TurboBridge(t *testing.T) {
	linux := StaticPlatform("linux")

	t.Run("probe answers are mapped to a capability status", func(t *testing.T) {
		req := require.New(t)
		bridge := NewTurboBridge(&probeOnlyTurbo{result: map[string]bool{KeySupported: true, KeyGranted: true}}, linux)
		status, err := bridge.IsStepCountingSupported(context.Background())
		req.NoError(err)
		req.Equal(CapabilityStatus{Supported: true, Granted: true}, status)
	})

	t.Run("missing update methods are reported as unavailable", func(t *testing.T) {
		req := require.New(t)
		bridge := NewTurboBridge(&probeOnlyTurbo{}, linux)

		err := bridge.StartStepCounterUpdate(time.Now(), func(*RawSample) {})
		var unavailable *UnavailableError
		req.True(errors.As(err, &unavailable))
		req.Equal(ModuleName, unavailable.Module)
		req.Equal(MethodStartStepCounterUpdate, unavailable.Method)
		req.Equal("linux", unavailable.Platform)
		req.Equal(CodeUnavailable, unavailable.Code())
		req.Contains(err.Error(), "StepCounter.startStepCounterUpdate")

		req.Error(bridge.Available(MethodStopStepCounterUpdate))
		req.Error(bridge.StartBackgroundService())
		req.NoError(bridge.Available(MethodIsStepCountingSupported))
	})

	t.Run("start passes epoch millis and decodes payloads", func(t *testing.T) {
		req := require.New(t)
		module := &streamingTurbo{}
		bridge := NewTurboBridge(module, linux)
		req.NoError(bridge.Available(MethodStartStepCounterUpdate))

		from := time.UnixMilli(1700000000000)
		var received []*RawSample
		req.NoError(bridge.StartStepCounterUpdate(from, func(raw *RawSample) {
			received = append(received, raw)
		}))
		req.Equal(int64(1700000000000), module.from)

		module.emit(map[string]interface{}{"steps": 10})
		module.emit(map[string]interface{}{"steps": []string{"not", "a", "number"}})
		req.Len(received, 1)
		req.Equal(int64(10), received[0].Steps)

		req.NoError(bridge.StopStepCounterUpdate())
	})
}

func Test_LegacyBridge(t *testing.T) {
	t.Run("probe answers are parsed from json", func(t *testing.T) {
		req := require.New(t)
		bridge := NewLegacyBridge(&streamingLegacy{probe: []byte(`{"supported":true,"granted":false}`)}, StaticPlatform("android"))
		status, err := bridge.IsStepCountingSupported(context.Background())
		req.NoError(err)
		req.Equal(CapabilityStatus{Supported: true, Granted: false}, status)
	})

	t.Run("malformed probe answers are errors", func(t *testing.T) {
		bridge := NewLegacyBridge(&streamingLegacy{probe: []byte(`{"supported":`)}, StaticPlatform("android"))
		_, err := bridge.IsStepCountingSupported(context.Background())
		require.Error(t, err)
		require.False(t, IsStructural(err))
	})

	t.Run("json payloads are decoded, non objects are dropped", func(t *testing.T) {
		req := require.New(t)
		module := &streamingLegacy{}
		bridge := NewLegacyBridge(module, StaticPlatform("android"))

		var received []*RawSample
		req.NoError(bridge.StartStepCounterUpdate(time.Now(), func(raw *RawSample) {
			received = append(received, raw)
		}))
		module.emit([]byte(`{"counterType":"ACCELEROMETER","steps":42,"startDate":1,"endDate":2,"distance":3.14}`))
		module.emit([]byte(`[1,2,3]`))
		module.emit([]byte(`nope`))

		req.Len(received, 1)
		req.Equal("ACCELEROMETER", received[0].CounterType)
		req.Equal(int64(42), received[0].Steps)
		req.NoError(bridge.StartBackgroundService())
	})
}

func Test_UnlinkedBridge(t *testing.T) {
	req := require.New(t)
	bridge := NewUnlinkedBridge(StaticPlatform("ios"))

	_, err := bridge.IsStepCountingSupported(context.Background())
	req.ErrorIs(err, ErrModuleUnlinked)

	err = bridge.StartStepCounterUpdate(time.Now(), nil)
	req.ErrorIs(err, ErrModuleUnlinked)
	req.Contains(err.Error(), MethodStartStepCounterUpdate)

	var unlinked *UnlinkedError
	req.True(errors.As(err, &unlinked))
	req.Equal(CodeModuleUnlinked, unlinked.Code())

	for _, err := range []error{
		bridge.StopStepCounterUpdate(),
		bridge.StartBackgroundService(),
		bridge.StopBackgroundService(),
		bridge.Available(MethodIsStepCountingSupported),
	} {
		req.ErrorIs(err, ErrModuleUnlinked)
		req.True(IsStructural(err))
	}
}

func Test_SelectBridge(t *testing.T) {
	req := require.New(t)
	platform := StaticPlatform("android")
	turbo := &probeOnlyTurbo{}
	legacy := &streamingLegacy{}

	req.Equal(BridgeTurbo, SelectBridge(turbo, legacy, platform).Name())
	req.Equal(BridgeLegacy, SelectBridge(nil, legacy, platform).Name())
	req.True(IsUnlinked(SelectBridge(nil, nil, platform)))

	bridge, err := SelectBridgeByName(BridgeLegacy, turbo, legacy, platform)
	req.NoError(err)
	req.Equal(BridgeLegacy, bridge.Name())

	bridge, err = SelectBridgeByName(BridgeTurbo, nil, legacy, platform)
	req.NoError(err)
	req.True(IsUnlinked(bridge))

	_, err = SelectBridgeByName("bluetooth", turbo, legacy, platform)
	req.Error(err)
}

func Test_IsStructural(t *testing.T) {
	req := require.New(t)
	req.False(IsStructural(nil))
	req.False(IsStructural(errors.New("timeout talking to the sensor service")))
	req.True(IsStructural(&UnavailableError{Module: ModuleName, Method: MethodStartBackgroundService, Platform: "ios"}))
	req.True(IsStructural(&UnlinkedError{Method: MethodStopStepCounterUpdate}))
}

func Test_IsNotDelivered(t *testing.T) {
	req := require.New(t)
	req.False(IsNotDelivered(nil))
	req.False(IsNotDelivered(errors.New("permission request interrupted")))
	req.True(IsNotDelivered(ErrNotDelivered))
	req.True(IsNotDelivered(fmt.Errorf("binder died: %w", ErrNotDelivered)))
	req.False(IsStructural(ErrNotDelivered))
}
