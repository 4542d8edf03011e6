/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log/logtest"
)

func TestService_Start(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	svc := New(logRecorder, unit)

	startErr := make(chan error, 1)
	go func() { startErr <- svc.Start() }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second*3, time.Millisecond*10)
	require.EqualValues(t, 1, unit.mustRegisterMetricsCalled.Load())

	svc.Signals <- os.Interrupt

	require.NoError(t, <-startErr)
	require.Eventually(t, func() bool { return running.Load() == 0 }, time.Second*3, time.Millisecond*10)
	require.EqualValues(t, 1, unit.stopGracefullyCalled.Load())
	require.EqualValues(t, 1, unit.unregisterMetricsCalled.Load())
	_, found := logRecorder.FindEntry("service got signal")
	require.True(t, found)
}

func TestService_StartContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	svc := New(logtest.NewRecorder(), unit)

	startErr := make(chan error, 1)
	go func() { startErr <- svc.StartContext(ctx) }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second*3, time.Millisecond*10)

	cancel()

	require.NoError(t, <-startErr)
	require.EqualValues(t, 1, unit.stopGracefullyCalled.Load())
}

func TestService_FatalError(t *testing.T) {
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	unit.startErr = errors.New("port is busy")
	logRecorder := logtest.NewRecorder()

	err := New(logRecorder, unit).Start()
	require.ErrorIs(t, err, unit.startErr)
	_, found := logRecorder.FindEntry("service fatal error")
	require.True(t, found)
}
