package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterDefaults(t *testing.T) {
	l := newLimiter(120)
	assert.Equal(t, 0, l.Weight())
	assert.Equal(t, 120, l.MaxWeight())
}

func TestLimiterUpdateWeight(t *testing.T) {
	l := newLimiter(1000)
	l.UpdateWeight(512)
	assert.Equal(t, 512, l.Weight())
	l.UpdateWeight(3)
	assert.Equal(t, 3, l.Weight())
}

func TestLimiterCheckWeightUnderCeiling(t *testing.T) {
	l := newLimiter(100)
	l.UpdateWeight(100)

	done := make(chan struct{})
	go func() {
		l.CheckWeight()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckWeight blocked although weight is within the ceiling")
	}
}

func TestLimiterCheckWeightOverCeiling(t *testing.T) {
	l := newLimiter(100)
	l.cooldown = 10 * time.Millisecond
	l.UpdateWeight(101)

	start := time.Now()
	l.CheckWeight()
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
