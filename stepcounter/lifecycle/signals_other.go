//go:build !android && !ios
// +build !android,!ios

package lifecycle

// NewSignalSource returns a source that never fires; desktop and server hosts have no app state.
// Hosts that do see app state changes push them through a ManualSource or
// Controller.HandleAppStateChange.
func NewSignalSource() SignalSource {
	return &NoOpSignalSource{}
}
