package timers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAfterFuncFires(t *testing.T) {
	g := NewGroup()
	done := make(chan struct{})
	g.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	require.Eventually(t, func() bool { return g.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestTimerStopPreventsCallback(t *testing.T) {
	g := NewGroup()
	var fired atomic.Bool
	tm := g.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	require.Equal(t, 1, g.Pending())

	require.True(t, tm.Stop())
	require.False(t, tm.Stop())
	require.Zero(t, g.Pending())

	time.Sleep(40 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestGroupStopCancelsEverything(t *testing.T) {
	g := NewGroup()
	var fired atomic.Int32
	for i := 0; i < 3; i++ {
		g.AfterFunc(20*time.Millisecond, func() { fired.Add(1) })
	}
	require.Equal(t, 3, g.Pending())

	g.Stop()
	require.True(t, g.Stopped())
	require.Zero(t, g.Pending())
	require.Nil(t, g.AfterFunc(time.Millisecond, func() { fired.Add(1) }))

	time.Sleep(40 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestNilTimerStop(t *testing.T) {
	var tm *Timer
	require.False(t, tm.Stop())
}
