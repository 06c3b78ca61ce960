package sensor

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const BridgeUnlinked = "unlinked"

var _ Bridge = (*UnlinkedBridge)(nil)

// UnlinkedBridge stands in for a native module that failed to load. Every operation fails with
// an *UnlinkedError naming the method that was called.
type UnlinkedBridge struct {
	platform PlatformProvider
}

func NewUnlinkedBridge(platform PlatformProvider) *UnlinkedBridge {
	return &UnlinkedBridge{
		platform: platformOrDefault(platform),
	}
}

func (self *UnlinkedBridge) Name() string {
	return BridgeUnlinked
}

func (self *UnlinkedBridge) Platform() PlatformInfo {
	return self.platform.GetPlatformInfo()
}

func (self *UnlinkedBridge) Available(method string) error {
	return &UnlinkedError{Method: method}
}

func (self *UnlinkedBridge) IsStepCountingSupported(context.Context) (CapabilityStatus, error) {
	return CapabilityStatus{}, &UnlinkedError{Method: MethodIsStepCountingSupported}
}

func (self *UnlinkedBridge) StartStepCounterUpdate(time.Time, SampleSink) error {
	return &UnlinkedError{Method: MethodStartStepCounterUpdate}
}

func (self *UnlinkedBridge) StopStepCounterUpdate() error {
	return &UnlinkedError{Method: MethodStopStepCounterUpdate}
}

func (self *UnlinkedBridge) StartBackgroundService() error {
	return &UnlinkedError{Method: MethodStartBackgroundService}
}

func (self *UnlinkedBridge) StopBackgroundService() error {
	return &UnlinkedError{Method: MethodStopBackgroundService}
}

// IsUnlinked reports whether bridge is missing or an UnlinkedBridge.
func IsUnlinked(bridge Bridge) bool {
	if bridge == nil {
		return true
	}
	_, unlinked := bridge.(*UnlinkedBridge)
	return unlinked
}

const BridgeAuto = "auto"

// SelectBridge picks the bridge strategy once: the turbo module when present, then the legacy
// module, and an UnlinkedBridge when neither is linked.
func SelectBridge(turbo TurboModule, legacy LegacyModule, platform PlatformProvider) Bridge {
	if turbo != nil {
		return NewTurboBridge(turbo, platform)
	}
	if legacy != nil {
		return NewLegacyBridge(legacy, platform)
	}
	return NewUnlinkedBridge(platform)
}

// SelectBridgeByName is SelectBridge restricted to one strategy. Asking for a strategy whose
// module is not linked yields an UnlinkedBridge, not an error; only unknown names fail.
func SelectBridgeByName(name string, turbo TurboModule, legacy LegacyModule, platform PlatformProvider) (Bridge, error) {
	switch name {
	case "", BridgeAuto:
		return SelectBridge(turbo, legacy, platform), nil
	case BridgeTurbo:
		return SelectBridge(turbo, nil, platform), nil
	case BridgeLegacy:
		return SelectBridge(nil, legacy, platform), nil
	}
	return nil, errors.Errorf("unknown bridge [%s], expected one of %s, %s or %s", name, BridgeAuto, BridgeTurbo, BridgeLegacy)
}
