package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTimer_Fires(t *testing.T) {
	begin := time.Now()
	timer := GetTimer(50 * time.Millisecond)
	require.NotNil(t, timer)
	defer PutTimer(timer)

	select {
	case fired := <-timer.C:
		assert.GreaterOrEqual(t, fired.Sub(begin), 45*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestPutTimer_ActiveTimerIsReusable(t *testing.T) {
	timer := GetTimer(20 * time.Millisecond)
	PutTimer(timer) // still running

	time.Sleep(40 * time.Millisecond)

	begin := time.Now()
	reused := GetTimer(200 * time.Millisecond)
	defer PutTimer(reused)

	select {
	case fired := <-reused.C:
		assert.GreaterOrEqual(t, fired.Sub(begin), 180*time.Millisecond, "stale expiry delivered")
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestPutTimer_StoppedTimerDoesNotFire(t *testing.T) {
	timer := GetTimer(30 * time.Millisecond)
	PutTimer(timer)

	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestTimerPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer := GetTimer(5 * time.Millisecond)
			defer PutTimer(timer)
			<-timer.C
		}()
	}
	wg.Wait()
}
