package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/program"
	"github.com/studentcode/sandbox/internal/tui/components"
	"github.com/studentcode/sandbox/internal/turtle"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// runSummary is the YAML document printed by --summary.
type runSummary struct {
	Scenario string          `yaml:"scenario"`
	Program  string          `yaml:"program"`
	State    string          `yaml:"state"`
	Duration string          `yaml:"duration"`
	Error    string          `yaml:"error,omitempty"`
	Lines    []string        `yaml:"lines"`
	Paths    []pathSummary   `yaml:"paths,omitempty"`
	Turtles  []turtleSummary `yaml:"turtles,omitempty"`
}

type pathSummary struct {
	Color  string  `yaml:"color"`
	Points int     `yaml:"points"`
	Length float64 `yaml:"length"`
}

type turtleSummary struct {
	ID      int     `yaml:"id"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading_degrees"`
	Steps   int     `yaml:"steps"`
}

// headless drives one run without a terminal UI: a ticker refreshes the
// duration and echoes new transcript lines, a frame loop advances the scene,
// a feeder answers input requests from stdin, and a waiter ends the group
// when the run goroutine returns.
type headless struct {
	backend  console.Interactive
	graphics *turtle.Console
	in       io.Reader
	out      io.Writer
	clock    console.Clock
	tick     time.Duration
	frame    time.Duration

	printed map[uuid.UUID]struct{}
}

func (a *app) runHeadless(ctx context.Context, scenario program.Scenario, backend console.Interactive) error {
	h := &headless{
		backend: backend,
		in:      a.in,
		out:     a.out,
		clock:   console.SystemClock{},
		tick:    a.cfg.TickInterval,
		frame:   a.cfg.FrameInterval(),
		printed: make(map[uuid.UUID]struct{}),
	}
	if graphics, ok := backend.(*turtle.Console); ok {
		h.graphics = graphics
	}

	if err := h.run(ctx); err != nil {
		return err
	}
	a.logger.Info("headless run finished", "state", string(backend.State()), "duration", backend.DurationString())

	if a.summary {
		if err := writeSummary(a.out, summarize(scenario, backend)); err != nil {
			return err
		}
	}
	if backend.State() == console.StateFailed {
		return backend.Err()
	}
	return nil
}

func (h *headless) run(ctx context.Context) error {
	if h.tick <= 0 {
		h.tick = 10 * time.Millisecond
	}
	if h.frame <= 0 {
		h.frame = time.Second / turtle.DefaultFrameRate
	}
	if err := h.backend.Start(); err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	lines := readLines(h.in)
	finished := make(chan struct{})
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(finished)
		select {
		case <-groupCtx.Done():
			h.backend.Stop()
		case <-waitDone(h.backend):
		}
		return h.backend.Wait(context.Background())
	})

	group.Go(func() error {
		ticker := time.NewTicker(h.tick)
		defer ticker.Stop()
		for {
			select {
			case <-finished:
				h.backend.Tick(h.clock.Now())
				return h.flush()
			case <-ticker.C:
				h.backend.Tick(h.clock.Now())
				if err := h.flush(); err != nil {
					return err
				}
			}
		}
	})

	if h.graphics != nil {
		group.Go(func() error {
			ticker := time.NewTicker(h.frame)
			defer ticker.Stop()
			for {
				select {
				case <-finished:
					h.graphics.Frame(h.clock.Now())
					return nil
				case <-ticker.C:
					h.graphics.Frame(h.clock.Now())
				}
			}
		})
	}

	group.Go(func() error {
		return h.feed(finished, lines)
	})

	return group.Wait()
}

// feed answers each pending read with the next stdin line. End of input
// stops the run if the program is still waiting for a value.
func (h *headless) feed(finished <-chan struct{}, lines <-chan string) error {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	for {
		select {
		case <-finished:
			return nil
		case <-ticker.C:
		}
		if _, pending := h.backend.AwaitingInput(); !pending {
			continue
		}
		select {
		case <-finished:
			return nil
		case line, ok := <-lines:
			if !ok {
				h.backend.Stop()
				return nil
			}
			h.backend.SetDraft(line)
			h.backend.Submit()
		}
	}
}

// flush prints output lines not printed before, in transcript order. A
// pending-input placeholder is printed once it has been resolved.
func (h *headless) flush() error {
	for _, line := range h.backend.Lines() {
		if line.Kind != console.LineOutput {
			break
		}
		if _, done := h.printed[line.ID]; done {
			continue
		}
		h.printed[line.ID] = struct{}{}
		if _, err := fmt.Fprintln(h.out, components.RenderStyledText(line.Text)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

// waitDone closes when the run has left the Running state and its goroutine
// has returned.
func waitDone(backend console.Interactive) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = backend.Wait(context.Background())
	}()
	return done
}

// readLines streams stdin lines. The reader goroutine cannot be interrupted
// and ends with the process when stdin never closes.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		if in == nil {
			return
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func summarize(scenario program.Scenario, backend console.Interactive) runSummary {
	summary := runSummary{
		Scenario: string(scenario),
		Program:  scenario.ProgramName(),
		State:    string(backend.State()),
		Duration: backend.DurationString(),
		Lines:    make([]string, 0),
	}
	if err := backend.Err(); err != nil {
		summary.Error = err.Error()
	}
	for _, line := range backend.Lines() {
		summary.Lines = append(summary.Lines, line.Text.String())
	}

	graphics, ok := backend.(*turtle.Console)
	if !ok {
		return summary
	}
	snapshot := graphics.Scene().Snapshot(graphics.Clock().Now())
	for _, path := range snapshot.Paths {
		summary.Paths = append(summary.Paths, pathSummary{
			Color:  path.Color,
			Points: len(path.Points),
			Length: round2(path.Length()),
		})
	}
	for _, t := range snapshot.Turtles {
		summary.Turtles = append(summary.Turtles, turtleSummary{
			ID:      t.ID,
			X:       round2(t.Pose.Position.X),
			Y:       round2(t.Pose.Position.Y),
			Heading: round2(t.Pose.HeadingDegrees()),
			Steps:   t.Steps,
		})
	}
	return summary
}

func writeSummary(out io.Writer, summary runSummary) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flush run summary: %w", err)
	}
	return nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
