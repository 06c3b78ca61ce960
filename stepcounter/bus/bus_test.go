package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stepcounting/sdk-golang/stepcounter/sample"
	"github.com/stretchr/testify/require"
)

const testChannel = "StepCounter.stepCounterUpdate"

func newTestSample(steps int64) *sample.StepSample {
	return &sample.StepSample{
		CounterType: sample.CounterTypeHardware,
		Steps:       steps,
		StartTime:   time.UnixMilli(1700000000000),
		EndTime:     time.UnixMilli(1700003600000),
	}
}

func Test_BusDelivery(t *testing.T) {
	t.Run("listeners are called in registration order", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		var order []string
		for _, name := range []string{"a", "b", "c", "d"} {
			name := name
			bus.AddListener(testChannel, func(*sample.StepSample) {
				order = append(order, name)
			})
		}

		bus.Publish(testChannel, newTestSample(1))
		req.Equal([]string{"a", "b", "c", "d"}, order)
	})

	t.Run("every listener sees the same sample", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		var seen []*sample.StepSample
		bus.AddListener(testChannel, func(s *sample.StepSample) { seen = append(seen, s) })
		bus.AddListener(testChannel, func(s *sample.StepSample) { seen = append(seen, s) })

		s := newTestSample(120)
		bus.Publish(testChannel, s)
		req.Len(seen, 2)
		req.Same(s, seen[0])
		req.Same(s, seen[1])
	})

	t.Run("channels are isolated", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		count := 0
		bus.AddListener("other", func(*sample.StepSample) { count++ })
		bus.Publish(testChannel, newTestSample(1))
		req.Equal(0, count)
		req.Equal(1, bus.ListenerCount("other"))
		req.Equal(0, bus.ListenerCount(testChannel))
	})

	t.Run("publishing with no listeners is harmless", func(t *testing.T) {
		New(nil).Publish(testChannel, newTestSample(1))
	})

	t.Run("a panicking listener does not stop the others", func(t *testing.T) {
		req := require.New(t)

		var failed []string
		var failures []error
		bus := New(func(sub *Subscription, err error) {
			failed = append(failed, sub.Id())
			failures = append(failures, err)
		})

		var order []string
		bus.AddListener(testChannel, func(*sample.StepSample) { order = append(order, "first") })
		bad := bus.AddListener(testChannel, func(*sample.StepSample) { panic("boom") })
		bus.AddListener(testChannel, func(*sample.StepSample) { order = append(order, "third") })

		bus.Publish(testChannel, newTestSample(1))
		req.Equal([]string{"first", "third"}, order)
		req.Equal([]string{bad.Id()}, failed)
		req.Contains(failures[0].Error(), "boom")
		req.True(bad.IsActive())
	})
}

func Test_BusRegistry(t *testing.T) {
	t.Run("removing a subscription stops delivery to it only", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		var order []string
		first := bus.AddListener(testChannel, func(*sample.StepSample) { order = append(order, "first") })
		bus.AddListener(testChannel, func(*sample.StepSample) { order = append(order, "second") })

		req.True(first.Remove())
		req.False(first.IsActive())
		req.Equal(1, bus.ListenerCount(testChannel))

		bus.Publish(testChannel, newTestSample(1))
		req.Equal([]string{"second"}, order)
	})

	t.Run("removing twice is a no-op", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)
		sub := bus.AddListener(testChannel, func(*sample.StepSample) {})

		req.True(bus.RemoveListener(sub))
		req.False(bus.RemoveListener(sub))
		req.False(sub.Remove())
		req.False(bus.RemoveListener(nil))
		req.Equal(0, bus.ListenerCount(testChannel))
	})

	t.Run("a subscription from another bus is ignored", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)
		other := New(nil)
		sub := other.AddListener(testChannel, func(*sample.StepSample) {})

		req.False(bus.RemoveListener(sub))
		req.True(sub.IsActive())
		req.Equal(1, other.ListenerCount(testChannel))
	})

	t.Run("the same function can be registered twice", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		count := 0
		listener := func(*sample.StepSample) { count++ }
		first := bus.AddListener(testChannel, listener)
		bus.AddListener(testChannel, listener)
		req.NotEqual(first.Id(), bus.Subscriptions(testChannel)[1].Id())

		bus.Publish(testChannel, newTestSample(1))
		req.Equal(2, count)

		first.Remove()
		bus.Publish(testChannel, newTestSample(1))
		req.Equal(3, count)
	})

	t.Run("remove all clears one channel", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		a := bus.AddListener(testChannel, func(*sample.StepSample) {})
		b := bus.AddListener(testChannel, func(*sample.StepSample) {})
		other := bus.AddListener("other", func(*sample.StepSample) {})

		req.Equal(2, bus.RemoveAllListeners(testChannel))
		req.Equal(0, bus.RemoveAllListeners(testChannel))
		req.False(a.IsActive())
		req.False(b.IsActive())
		req.True(other.IsActive())
		req.Equal(0, bus.ListenerCount(testChannel))
		req.Equal(1, bus.ListenerCount("other"))

		_, found := bus.Subscription(a.Id())
		req.False(found)
		found2, found := bus.Subscription(other.Id())
		req.True(found)
		req.Same(other, found2)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		a := bus.AddListener(testChannel, func(*sample.StepSample) {})
		b := bus.AddListener("other", func(*sample.StepSample) {})
		req.Equal(2, bus.Clear())

		req.False(a.IsActive())
		req.False(b.IsActive())
		req.Equal(0, bus.ListenerCount(testChannel))
		req.Equal(0, bus.ListenerCount("other"))
		req.Empty(bus.Subscriptions(testChannel))
	})
}

func Test_BusMutationDuringDelivery(t *testing.T) {
	t.Run("a listener added during delivery sees the next sample", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		var late []int64
		added := false
		bus.AddListener(testChannel, func(*sample.StepSample) {
			if !added {
				added = true
				bus.AddListener(testChannel, func(s *sample.StepSample) { late = append(late, s.Steps) })
			}
		})

		bus.Publish(testChannel, newTestSample(1))
		req.Empty(late)
		req.Equal(2, bus.ListenerCount(testChannel))

		bus.Publish(testChannel, newTestSample(2))
		req.Equal([]int64{2}, late)
	})

	t.Run("a listener removed during delivery is skipped", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		var second *Subscription
		var order []string
		bus.AddListener(testChannel, func(*sample.StepSample) {
			order = append(order, "first")
			second.Remove()
		})
		second = bus.AddListener(testChannel, func(*sample.StepSample) { order = append(order, "second") })

		bus.Publish(testChannel, newTestSample(1))
		req.Equal([]string{"first"}, order)
	})

	t.Run("a listener can remove itself", func(t *testing.T) {
		req := require.New(t)
		bus := New(nil)

		count := 0
		var self *Subscription
		self = bus.AddListener(testChannel, func(*sample.StepSample) {
			count++
			self.Remove()
		})

		bus.Publish(testChannel, newTestSample(1))
		bus.Publish(testChannel, newTestSample(2))
		req.Equal(1, count)
		req.Equal(0, bus.ListenerCount(testChannel))
	})
}

func Test_BusConcurrentUse(t *testing.T) {
	req := require.New(t)
	bus := New(nil)

	var mu sync.Mutex
	received := 0
	bus.AddListener(testChannel, func(*sample.StepSample) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(testChannel, newTestSample(int64(j)))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.AddListener(testChannel, func(*sample.StepSample) {}).Remove()
			}
		}()
	}
	wg.Wait()

	req.Equal(8*50, received)
	req.Equal(1, bus.ListenerCount(testChannel))
}
