// Package test provides shared testing utilities for the sandbox packages:
// contexts, temp directories, a manually advanced clock and polling helpers.
package test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Context returns a test context cancelled at cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// TempDir creates a temporary directory removed when the test completes.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sandbox-test-*")
	require.NoError(t, err, "failed to create temp dir")
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// WriteFile writes content to name under dir, creating parents.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create parent dir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "failed to write file")
	return path
}

// Chdir changes to dir for the duration of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	err = os.Chdir(dir)
	require.NoError(t, err, "failed to change directory")

	t.Cleanup(func() {
		err := os.Chdir(original)
		assert.NoError(t, err, "failed to restore working directory")
	})
}

// Eventually polls cond until it holds or two seconds pass.
func Eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msgAndArgs...)
}

// ManualClock is a clock that only moves when Advance is called. Timers
// returned by After fire once the clock reaches their deadline.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []manualWaiter
}

type manualWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives once the clock has advanced by d.
func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	deadline := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, manualWaiter{deadline: deadline, ch: ch})
	return ch
}

// Advance moves the clock forward by d and fires due timers in deadline order.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	sort.SliceStable(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
	remaining := c.waiters[:0]
	var due []manualWaiter
	for _, waiter := range c.waiters {
		if waiter.deadline.After(now) {
			remaining = append(remaining, waiter)
			continue
		}
		due = append(due, waiter)
	}
	c.waiters = remaining
	c.mu.Unlock()

	for _, waiter := range due {
		waiter.ch <- now
	}
}

// Waiters reports the number of timers not yet fired.
func (c *ManualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntilWaiters waits until at least n timers are pending.
func (c *ManualClock) BlockUntilWaiters(t *testing.T, n int) {
	t.Helper()
	Eventually(t, func() bool { return c.Waiters() >= n }, "expected %d pending timers", n)
}
