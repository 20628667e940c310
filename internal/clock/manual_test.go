package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_NowDoesNotMove(t *testing.T) {
	c := NewManual(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch, c.Now())
}

func TestManual_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := NewManual(epoch)

	var fired []string
	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "never") })

	c.Advance(500 * time.Millisecond)

	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, epoch.Add(500*time.Millisecond), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestManual_CallbackSeesDeadlineAsNow(t *testing.T) {
	c := NewManual(epoch)

	var seen time.Time
	c.AfterFunc(250*time.Millisecond, func() { seen = c.Now() })
	c.Advance(time.Second)

	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
}

func TestManual_StopPreventsFiring(t *testing.T) {
	c := NewManual(epoch)

	fired := false
	timer := c.AfterFunc(100*time.Millisecond, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second Stop reports already stopped")

	c.Advance(time.Second)
	assert.False(t, fired)
}

func TestManual_CallbackMayScheduleMore(t *testing.T) {
	c := NewManual(epoch)

	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(100*time.Millisecond, tick)
		}
	}
	c.AfterFunc(100*time.Millisecond, tick)

	c.Advance(time.Second)
	assert.Equal(t, 3, count)
	assert.Zero(t, c.Pending())
}

func TestReal_NowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Real().Now().Location())
}
