package test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockFiresTimersAtDeadline(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	late := clock.After(100 * time.Millisecond)
	early := clock.After(10 * time.Millisecond)
	require.Equal(t, 2, clock.Waiters())

	clock.Advance(50 * time.Millisecond)
	select {
	case fired := <-early:
		assert.Equal(t, start.Add(50*time.Millisecond), fired)
	default:
		t.Fatal("early timer should have fired")
	}
	select {
	case <-late:
		t.Fatal("late timer fired before its deadline")
	default:
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case <-late:
	default:
		t.Fatal("late timer should have fired")
	}
	assert.Equal(t, 0, clock.Waiters())
	assert.Equal(t, start.Add(100*time.Millisecond), clock.Now())
}

func TestManualClockZeroDurationFiresImmediately(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Unix(0, 0))
	select {
	case <-clock.After(0):
	default:
		t.Fatal("zero-duration timer should fire immediately")
	}
	assert.Equal(t, 0, clock.Waiters())
}

func TestWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	dir := TempDir(t)
	path := WriteFile(t, dir, filepath.Join(".sandbox", "config.toml"), "scenario = \"turtle\"\n")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "scenario = \"turtle\"\n", string(content))
}
