package stepcounter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/michaelquigley/pfxlog"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

// Prober answers whether step counting is supported and permitted. The provider asks for the
// permission while it answers, so the call is given the caller's context without a deadline and
// may wait for as long as the prompt is shown. Only failures marked sensor.ErrNotDelivered are
// retried, until the probe timeout runs out; every other failure is returned after one call.
// Structural errors from the bridge are returned as is, anything else as a *ProbeError.
type Prober struct {
	bridge  sensor.Bridge
	timeout time.Duration
	metrics Metrics
	last    atomic.Pointer[CapabilityStatus]
}

func NewProber(bridge sensor.Bridge, timeout time.Duration, metrics Metrics) *Prober {
	return &Prober{
		bridge:  bridge,
		timeout: timeout,
		metrics: metrics,
	}
}

func (self *Prober) Probe(ctx context.Context) (CapabilityStatus, error) {
	log := pfxlog.Logger().WithField("bridge", self.bridge.Name())
	start := time.Now()

	attempt := 0
	var status CapabilityStatus
	var lastErr error
	operation := func() error {
		attempt++
		result, err := self.bridge.IsStepCountingSupported(ctx)
		if err != nil {
			lastErr = err
			if !sensor.IsNotDelivered(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			log.WithError(err).WithField("attempt", attempt).Debug("capability probe not delivered, will retry")
			return err
		}
		status = result
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(self.retryPolicy(), ctx))

	if self.metrics != nil {
		self.metrics.ProbeCompleted(time.Since(start))
	}

	if err != nil {
		if sensor.IsStructural(err) {
			return CapabilityStatus{}, err
		}
		if lastErr != nil {
			// a cancel while waiting between attempts hides the provider's error
			err = lastErr
		}
		log.WithError(err).WithField("attempts", attempt).Error("capability probe failed")
		return CapabilityStatus{}, &ProbeError{cause: err}
	}

	if !status.Supported {
		status = CapabilityStatus{}
	}

	self.last.Store(&status)
	log.WithField("supported", status.Supported).WithField("granted", status.Granted).Debug("capability probed")
	return status, nil
}

// Last returns the result of the last successful probe, or nil if there hasn't been one.
func (self *Prober) Last() *CapabilityStatus {
	return self.last.Load()
}

func (self *Prober) retryPolicy() backoff.BackOff {
	if self.timeout <= 0 {
		return &backoff.StopBackOff{}
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 50 * time.Millisecond
	expBackoff.MaxInterval = time.Second
	expBackoff.MaxElapsedTime = self.timeout
	return expBackoff
}
