package lifecycle

import "sync"

// AppState is the host application's foreground/background state as reported by the platform.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
	AppStateUnknown    AppState = "unknown"
	AppStateExtension  AppState = "extension"
)

// SignalSource provides platform-specific monitoring of app state transitions.
type SignalSource interface {
	// ListenForAppState registers a callback for app state changes, returning a function
	// to stop listening.
	ListenForAppState(func(AppState)) (stop func(), err error)
}

var _ SignalSource = (*NoOpSignalSource)(nil)

// NoOpSignalSource stores the callback without watching anything. Hosts that receive app state
// changes themselves should call the controller directly or use a ManualSource.
type NoOpSignalSource struct {
	onAppState func(AppState)
}

func (n *NoOpSignalSource) ListenForAppState(f func(AppState)) (stop func(), err error) {
	n.onAppState = f
	return func() {
		n.onAppState = nil
	}, nil
}

var _ SignalSource = (*ManualSource)(nil)

// ManualSource forwards states passed to Emit to every registered callback.
type ManualSource struct {
	lock      sync.Mutex
	nextId    int
	callbacks map[int]func(AppState)
}

func NewManualSource() *ManualSource {
	return &ManualSource{
		callbacks: map[int]func(AppState){},
	}
}

func (self *ManualSource) ListenForAppState(f func(AppState)) (stop func(), err error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	id := self.nextId
	self.nextId++
	self.callbacks[id] = f

	return func() {
		self.lock.Lock()
		defer self.lock.Unlock()
		delete(self.callbacks, id)
	}, nil
}

// Emit delivers state to every callback in registration order.
func (self *ManualSource) Emit(state AppState) {
	self.lock.Lock()
	var callbacks []func(AppState)
	for id := 0; id < self.nextId; id++ {
		if cb, ok := self.callbacks[id]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	self.lock.Unlock()

	for _, cb := range callbacks {
		cb(state)
	}
}

func (self *ManualSource) ListenerCount() int {
	self.lock.Lock()
	defer self.lock.Unlock()
	return len(self.callbacks)
}
