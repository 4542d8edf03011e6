/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type mockUnit struct {
	name          string
	running       *atomic.Int32
	stop          chan struct{}
	startErr      error
	stopWithError bool

	startCalled               atomic.Int32
	stopCalled                atomic.Int32
	stopGracefullyCalled      atomic.Int32
	mustRegisterMetricsCalled atomic.Int32
	unregisterMetricsCalled   atomic.Int32
}

func newMockUnit(name string, running *atomic.Int32, stopWithError bool) *mockUnit {
	return &mockUnit{name: name, running: running, stop: make(chan struct{}, 1), stopWithError: stopWithError}
}

func (u *mockUnit) Start(fatalErr chan<- error) {
	u.startCalled.Inc()
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	u.running.Inc()
	<-u.stop
	u.running.Dec()
}

func (u *mockUnit) Stop(gracefully bool) error {
	u.stopCalled.Inc()
	if gracefully {
		u.stopGracefullyCalled.Inc()
	}
	select {
	case u.stop <- struct{}{}:
	default:
	}
	if u.stopWithError {
		return fmt.Errorf("%s: internal error", u.name)
	}
	return nil
}

func (u *mockUnit) MustRegisterMetrics() {
	u.mustRegisterMetricsCalled.Inc()
}

func (u *mockUnit) UnregisterMetrics() {
	u.unregisterMetricsCalled.Inc()
}

func makeCompositeUnit(n int, running *atomic.Int32, stopWithError func(i int) bool) (*CompositeUnit, []*mockUnit) {
	mocks := make([]*mockUnit, 0, n)
	units := make([]Unit, 0, n)
	for i := 0; i < n; i++ {
		u := newMockUnit(fmt.Sprintf("unit#%d", i), running, stopWithError != nil && stopWithError(i))
		mocks = append(mocks, u)
		units = append(units, u)
	}
	return NewCompositeUnit(units...), mocks
}

func TestCompositeUnit_StartAndStop(t *testing.T) {
	t.Run("stop without errors", func(t *testing.T) {
		var running atomic.Int32
		cu, _ := makeCompositeUnit(20, &running, nil)

		startExited := make(chan struct{})
		go func() {
			defer close(startExited)
			cu.Start(make(chan error, 1))
		}()
		require.Eventually(t, func() bool { return running.Load() == 20 }, time.Second*3, time.Millisecond*10)

		require.NoError(t, cu.Stop(true))
		require.Eventually(t, func() bool { return running.Load() == 0 }, time.Second*3, time.Millisecond*10)
		select {
		case <-startExited:
		case <-time.After(time.Second * 3):
			require.Fail(t, "Start() hasn't returned")
		}
	})

	t.Run("stop with errors", func(t *testing.T) {
		var running atomic.Int32
		cu, _ := makeCompositeUnit(10, &running, func(i int) bool { return i%2 == 0 })

		go cu.Start(make(chan error, 1))
		require.Eventually(t, func() bool { return running.Load() == 10 }, time.Second*3, time.Millisecond*10)

		err := cu.Stop(true)
		var cuErr *CompositeUnitError
		require.ErrorAs(t, err, &cuErr)
		require.Len(t, cuErr.UnitErrors, 5)
	})

	t.Run("fatal error stops other units", func(t *testing.T) {
		var running atomic.Int32
		cu, mocks := makeCompositeUnit(3, &running, nil)
		startErr := errors.New("listen failed")
		mocks[1].startErr = startErr

		fatalErr := make(chan error, 1)
		cu.Start(fatalErr)

		err := <-fatalErr
		require.ErrorIs(t, err, startErr)
		for _, m := range mocks {
			require.EqualValues(t, 1, m.stopCalled.Load())
			require.Zero(t, m.stopGracefullyCalled.Load())
		}
		require.Eventually(t, func() bool { return running.Load() == 0 }, time.Second*3, time.Millisecond*10)
	})
}

func TestCompositeUnit_Metrics(t *testing.T) {
	var running atomic.Int32
	cu, mocks := makeCompositeUnit(3, &running, nil)
	cu.MustRegisterMetrics()
	cu.UnregisterMetrics()
	for _, m := range mocks {
		require.EqualValues(t, 1, m.mustRegisterMetricsCalled.Load())
		require.EqualValues(t, 1, m.unregisterMetricsCalled.Load())
	}
}
