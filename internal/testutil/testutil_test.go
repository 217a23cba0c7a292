package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StepsOnRead(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewDeterministicClock(start, time.Second)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start.Add(time.Second), clock.Now())
	assert.Equal(t, start.Add(2*time.Second), clock.Peek())
	assert.Equal(t, start.Add(2*time.Second), clock.Peek(), "peek does not advance")
}

func TestDeterministicClock_Defaults(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, 0)

	assert.Equal(t, DefaultStart, clock.Now())
	assert.Equal(t, DefaultStart, clock.Now(), "zero step freezes")
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Minute)
	clock.Now()
	clock.Now()
	clock.Reset()
	assert.Equal(t, DefaultStart, clock.Now())
}

func TestDeterministicClock_NormalizesToUTC(t *testing.T) {
	local := time.Date(2026, 1, 1, 1, 0, 0, 0, time.FixedZone("X", 3600))
	clock := NewDeterministicClock(local, 0)
	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestDeterministicClock_ConcurrentReads(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultStart.Add(50*time.Second), clock.Peek())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("evt")
	assert.Equal(t, "evt-0001", gen.Generate())
	assert.Equal(t, "evt-0002", gen.Generate())

	assert.Equal(t, "change-0001", NewSequenceGenerator("").Generate())
}
