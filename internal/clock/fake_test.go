package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(5*time.Second, func() { fired++ })

	c.Advance(4 * time.Second)
	assert.Equal(t, 0, fired)

	c.Advance(time.Second)
	assert.Equal(t, 1, fired)

	c.Advance(time.Minute)
	assert.Equal(t, 1, fired, "one-shot timer must not refire")
}

func TestFake_StopPreventsFire(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(time.Hour)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_TickerDropsWhenFull(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	c.Advance(350 * time.Millisecond)

	select {
	case at := <-ticker.C:
		assert.Equal(t, epoch.Add(100*time.Millisecond), at)
	default:
		require.Fail(t, "expected a tick")
	}

	select {
	case <-ticker.C:
		require.Fail(t, "buffered ticks beyond capacity must be dropped")
	default:
	}
}

func TestFake_CallbacksRunInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "late") })
	c.AfterFunc(time.Second, func() { order = append(order, "early") })

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, epoch.Add(5*time.Second), c.Now())
}
