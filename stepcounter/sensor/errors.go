package sensor

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	CodeUnavailable    = "ERR_UNAVAILABLE"
	CodeModuleUnlinked = "LINKING_MODULE_ERROR"
)

// ErrModuleUnlinked is matched by every error an UnlinkedBridge returns.
var ErrModuleUnlinked = errors.New("native step counter module is not linked")

// ErrNotDelivered marks a failure where the call never reached the native module. A probe that
// fails this way has not shown the permission request and can be repeated.
var ErrNotDelivered = errors.New("call was not delivered to the native module")

// UnlinkedError is returned for every call made against a session whose native module failed
// to load.
type UnlinkedError struct {
	Method string
}

func (e *UnlinkedError) Error() string {
	return fmt.Sprintf("%s: unable to call %s.%s", ErrModuleUnlinked.Error(), ModuleName, e.Method)
}

func (e *UnlinkedError) Unwrap() error {
	return ErrModuleUnlinked
}

func (e *UnlinkedError) Code() string {
	return CodeModuleUnlinked
}

// UnavailableError is returned when the native module is linked but does not provide the
// requested method on the current platform.
type UnavailableError struct {
	Module   string
	Method   string
	Platform string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("the method or property %s.%s is not available on %s, "+
		"are you sure you've linked all the native dependencies properly?", e.Module, e.Method, e.Platform)
}

func (e *UnavailableError) Code() string {
	return CodeUnavailable
}

// IsStructural reports whether err is an environment failure (unlinked module or missing
// method) rather than a runtime condition. Structural errors are never retried.
func IsStructural(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModuleUnlinked) {
		return true
	}
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// IsNotDelivered reports whether err shows that the call never reached the native module.
func IsNotDelivered(err error) bool {
	return err != nil && errors.Is(err, ErrNotDelivered)
}
