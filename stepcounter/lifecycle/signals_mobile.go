//go:build android || ios

package lifecycle

// NewSignalSource is a stand-in for actual mobile app state watching. Until then the host pushes
// app state changes through a ManualSource or Controller.HandleAppStateChange.
func NewSignalSource() SignalSource {
	return &NoOpSignalSource{}
}
